package federation

import (
	"crypto"
	"crypto/x509"
	"log/slog"
	"sync"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/svid/x509svid"

	"github.com/sufield/federationd/internal/ferrors"
)

// Server is a federation endpoint server a caller creates once, populates
// with bundle bindings and endpoints, and serves from. Multiple independent
// Servers may coexist in one process; there is no package-level mutable
// state.
type Server struct {
	mu sync.Mutex

	bindings  map[string]*binding
	endpoints map[string]*Endpoint

	logger *slog.Logger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an empty Server: no bindings, no endpoints.
func NewServer(opts ...Option) *Server {
	s := &Server{
		bindings:  make(map[string]*binding),
		endpoints: make(map[string]*Endpoint),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterBundle binds path to source for trust domain td.
func (s *Server) RegisterBundle(path string, source BundleSource, td spiffeid.TrustDomain) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerBundle(path, source, td)
}

// UpdateBundle atomically replaces the source and trust domain bound to
// path.
func (s *Server) UpdateBundle(path string, source BundleSource, td spiffeid.TrustDomain) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateBundle(path, source, td)
}

// RemoveBundle unbinds path.
func (s *Server) RemoveBundle(path string) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeBundle(path)
}

// AddHttpsWebEndpoint registers a new Web-PKI authenticated endpoint at
// baseURL.
func (s *Server) AddHttpsWebEndpoint(baseURL string, certs []*x509.Certificate, key crypto.Signer) (*EndpointInfo, error) {
	if s == nil {
		return nil, ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addWebPKIEndpoint(baseURL, certs, key)
}

// SetHttpsWebEndpointAuth replaces the Web-PKI credential of an existing
// endpoint.
func (s *Server) SetHttpsWebEndpointAuth(baseURL string, certs []*x509.Certificate, key crypto.Signer) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setWebPKIEndpointAuth(baseURL, certs, key)
}

// AddHttpsSpiffeEndpoint registers a new SPIFFE-authenticated endpoint at
// baseURL.
func (s *Server) AddHttpsSpiffeEndpoint(baseURL string, source x509svid.Source) (*EndpointInfo, error) {
	if s == nil {
		return nil, ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSPIFFEEndpoint(baseURL, source)
}

// SetHttpsSpiffeEndpointSource replaces the SVID source of an existing
// SPIFFE-authenticated endpoint.
func (s *Server) SetHttpsSpiffeEndpointSource(baseURL string, source x509svid.Source) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSPIFFEEndpointSource(baseURL, source)
}

// GetEndpointInfo returns the opaque handle for the endpoint at baseURL.
func (s *Server) GetEndpointInfo(baseURL string) (*EndpointInfo, error) {
	if s == nil {
		return nil, ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getEndpointInfo(baseURL)
}

// RemoveEndpoint removes baseURL, stopping any active workers transitively
// first. See the Open Question resolution in DESIGN.md. The workers are
// joined only after s.mu is released, so an in-flight request on another
// worker of the same server can still acquire s.mu to look up its bundle
// and finish while this call waits on the join.
func (s *Server) RemoveEndpoint(baseURL string) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	workers, err := s.removeEndpoint(baseURL)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	joinWorkers(workers)
	return nil
}

// ServeEndpoint starts a listener worker for (baseURL, port). It blocks
// until the worker is ready to accept connections.
func (s *Server) ServeEndpoint(baseURL string, port uint16) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveEndpoint(baseURL, port)
}

// StopEndpointThread stops and joins the worker serving (baseURL, port).
// The worker is signalled under s.mu but joined only after s.mu is
// released: joining while holding s.mu could deadlock against a request in
// flight on another worker of the same server blocked taking s.mu to look
// up its bundle.
func (s *Server) StopEndpointThread(baseURL string, port uint16) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	w, err := s.stopEndpointThread(baseURL, port)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	w.join()
	return nil
}

// StopEndpoint stops and joins every worker serving baseURL. The workers
// are signalled under s.mu but joined only after s.mu is released, for the
// same deadlock-avoidance reason as StopEndpointThread.
func (s *Server) StopEndpoint(baseURL string) error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	workers, err := s.stopEndpoint(baseURL)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	joinWorkers(workers)
	return nil
}

// Stop stops and joins every worker on the server. Idempotent: calling Stop
// twice is a no-op the second time. Every worker is signalled under s.mu
// but joined only after s.mu is released, so requests in flight elsewhere
// on the server can still acquire s.mu and complete while this call waits
// on the join.
func (s *Server) Stop() error {
	if s == nil {
		return ferrors.ErrNull
	}
	s.mu.Lock()
	workers := s.stopAll()
	s.mu.Unlock()
	joinWorkers(workers)
	return nil
}
