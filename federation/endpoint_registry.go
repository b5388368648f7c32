package federation

import (
	"crypto"
	"crypto/x509"
	"sync"

	"github.com/spiffe/go-spiffe/v2/svid/x509svid"

	"github.com/sufield/federationd/internal/ferrors"
)

// Endpoint is a base URL, its swappable TLS credential, and the live
// listener workers currently serving it. It is owned by the server and
// mutated only through the facade.
type Endpoint struct {
	baseURL    string
	credential *credentialHolder

	mu      sync.Mutex
	workers map[uint16]*worker
}

// EndpointInfo is the opaque handle GetEndpointInfo and the Add* methods
// return. Its only exported accessor is BaseURL; Serve*/Stop* look endpoints
// up by base URL, not through this handle.
type EndpointInfo struct {
	endpoint *Endpoint
}

// BaseURL returns the base URL the endpoint was registered under.
func (i *EndpointInfo) BaseURL() string {
	return i.endpoint.baseURL
}

func newEndpoint(baseURL string, cred *tlsCredential) *Endpoint {
	return &Endpoint{
		baseURL:    baseURL,
		credential: newCredentialHolder(cred),
		workers:    make(map[uint16]*worker),
	}
}

// addWebPKIEndpoint registers baseURL with Web-PKI certificate material.
// Callers must hold s.mu.
func (s *Server) addWebPKIEndpoint(baseURL string, certs []*x509.Certificate, key crypto.Signer) (*EndpointInfo, error) {
	if baseURL == "" {
		return nil, ferrors.New("AddHttpsWebEndpoint", baseURL, ferrors.ErrBadArgument)
	}
	cred, err := newWebPKICredential(certs, key)
	if err != nil {
		return nil, ferrors.New("AddHttpsWebEndpoint", baseURL, err)
	}
	if _, exists := s.endpoints[baseURL]; exists {
		return nil, ferrors.New("AddHttpsWebEndpoint", baseURL, ferrors.ErrExists)
	}

	ep := newEndpoint(baseURL, cred)
	s.endpoints[baseURL] = ep
	return &EndpointInfo{endpoint: ep}, nil
}

// setWebPKIEndpointAuth swaps the Web-PKI credential of an existing
// endpoint. Callers must hold s.mu.
func (s *Server) setWebPKIEndpointAuth(baseURL string, certs []*x509.Certificate, key crypto.Signer) error {
	if baseURL == "" {
		return ferrors.New("SetHttpsWebEndpointAuth", baseURL, ferrors.ErrBadArgument)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return ferrors.New("SetHttpsWebEndpointAuth", baseURL, ferrors.ErrNotFound)
	}
	cred, err := newWebPKICredential(certs, key)
	if err != nil {
		return ferrors.New("SetHttpsWebEndpointAuth", baseURL, err)
	}
	ep.credential.swap(cred)
	return nil
}

// addSPIFFEEndpoint registers baseURL with a SPIFFE SVID source. Callers
// must hold s.mu.
func (s *Server) addSPIFFEEndpoint(baseURL string, source x509svid.Source) (*EndpointInfo, error) {
	if baseURL == "" {
		return nil, ferrors.New("AddHttpsSpiffeEndpoint", baseURL, ferrors.ErrBadArgument)
	}
	cred, err := newSPIFFECredential(source)
	if err != nil {
		return nil, ferrors.New("AddHttpsSpiffeEndpoint", baseURL, err)
	}
	if _, exists := s.endpoints[baseURL]; exists {
		return nil, ferrors.New("AddHttpsSpiffeEndpoint", baseURL, ferrors.ErrExists)
	}

	ep := newEndpoint(baseURL, cred)
	s.endpoints[baseURL] = ep
	return &EndpointInfo{endpoint: ep}, nil
}

// setSPIFFEEndpointSource swaps the SVID source of an existing endpoint.
// Callers must hold s.mu.
func (s *Server) setSPIFFEEndpointSource(baseURL string, source x509svid.Source) error {
	if baseURL == "" {
		return ferrors.New("SetHttpsSpiffeEndpointSource", baseURL, ferrors.ErrBadArgument)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return ferrors.New("SetHttpsSpiffeEndpointSource", baseURL, ferrors.ErrNotFound)
	}
	cred, err := newSPIFFECredential(source)
	if err != nil {
		return ferrors.New("SetHttpsSpiffeEndpointSource", baseURL, err)
	}
	ep.credential.swap(cred)
	return nil
}

// getEndpointInfo looks up the handle for baseURL. Callers must hold s.mu.
func (s *Server) getEndpointInfo(baseURL string) (*EndpointInfo, error) {
	if baseURL == "" {
		return nil, ferrors.New("GetEndpointInfo", baseURL, ferrors.ErrBadArgument)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return nil, ferrors.New("GetEndpointInfo", baseURL, ferrors.ErrNotFound)
	}
	return &EndpointInfo{endpoint: ep}, nil
}

// removeEndpoint signals any active workers on baseURL and removes the
// endpoint, returning the workers so the caller can join them once s.mu is
// released, rather than leaving them dangling or joining them under lock.
// Callers must hold s.mu.
func (s *Server) removeEndpoint(baseURL string) ([]*worker, error) {
	if baseURL == "" {
		return nil, ferrors.New("RemoveEndpoint", baseURL, ferrors.ErrBadArgument)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return nil, ferrors.New("RemoveEndpoint", baseURL, ferrors.ErrNotFound)
	}

	toJoin := ep.collectActiveWorkersLocked()
	delete(s.endpoints, baseURL)
	return toJoin, nil
}
