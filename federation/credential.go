package federation

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"sync/atomic"

	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/svid/x509svid"

	"github.com/sufield/federationd/internal/ferrors"
)

// tlsCredential is a tagged union: either Web-PKI material or a SPIFFE SVID
// source. Exactly one of the two fields is set.
type tlsCredential struct {
	webPKI *webPKICredential
	spiffe x509svid.Source
}

type webPKICredential struct {
	cert tls.Certificate
}

// buildTLSConfig turns the current credential into a *tls.Config for one
// handshake. Called from a GetConfigForClient callback so a credential swap
// takes effect on the very next handshake without touching in-flight ones.
func (c *tlsCredential) buildTLSConfig() *tls.Config {
	if c.webPKI != nil {
		return &tls.Config{
			Certificates: []tls.Certificate{c.webPKI.cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
	// SPIFFE authentication: server-only TLS auth against the SVID source.
	// No client certificate is required — federation exposes no
	// authorization beyond TLS server authentication (see Non-goals).
	return tlsconfig.TLSServerConfig(c.spiffe)
}

// credentialHolder is the thread-safe credential slot an Endpoint holds.
// Reads take a stable snapshot with one atomic load; writes swap the
// pointer and let the garbage collector reclaim the old value once every
// handshake using it has finished, no manual refcounting needed.
type credentialHolder struct {
	slot atomic.Pointer[tlsCredential]
}

func newCredentialHolder(cred *tlsCredential) *credentialHolder {
	h := &credentialHolder{}
	h.slot.Store(cred)
	return h
}

func (h *credentialHolder) snapshot() *tlsCredential {
	return h.slot.Load()
}

func (h *credentialHolder) swap(cred *tlsCredential) {
	h.slot.Store(cred)
}

// tlsConfig returns a *tls.Config whose GetConfigForClient always rebuilds
// from the current snapshot, which is how a hot swap reaches new handshakes
// on a listener that was already bound before the swap.
func (h *credentialHolder) tlsConfig() *tls.Config {
	return &tls.Config{
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			return h.snapshot().buildTLSConfig(), nil
		},
	}
}

// newWebPKICredential validates that certs[0]'s public key matches key and
// builds the Web-PKI shape of a tlsCredential, exactly as
// AddHttpsWebEndpoint / SetHttpsWebEndpointAuth require.
func newWebPKICredential(certs []*x509.Certificate, key crypto.Signer) (*tlsCredential, error) {
	if len(certs) == 0 || certs[0] == nil {
		return nil, ferrors.ErrCertificateValidation
	}
	if key == nil {
		return nil, ferrors.ErrPrivateKeyValidation
	}
	if !publicKeysEqual(certs[0].PublicKey, key.Public()) {
		return nil, ferrors.ErrPrivateKeyValidation
	}

	raw := make([][]byte, len(certs))
	for i, c := range certs {
		raw[i] = c.Raw
	}

	return &tlsCredential{
		webPKI: &webPKICredential{
			cert: tls.Certificate{
				Certificate: raw,
				PrivateKey:  key,
				Leaf:        certs[0],
			},
		},
	}, nil
}

// publicKeysEqual checks that a certificate's public key matches a signer's
// public key. go-spiffe/v2's x509svid package only exposes this check as an
// unexported helper behind SVID parsing, so it is reimplemented here
// directly against crypto/x509's public key types, covering the key kinds
// the SDK itself supports (RSA, ECDSA, Ed25519).
func publicKeysEqual(certKey, signerKey crypto.PublicKey) bool {
	switch certPub := certKey.(type) {
	case *rsa.PublicKey:
		signerPub, ok := signerKey.(*rsa.PublicKey)
		return ok && certPub.Equal(signerPub)
	case *ecdsa.PublicKey:
		signerPub, ok := signerKey.(*ecdsa.PublicKey)
		return ok && certPub.Equal(signerPub)
	case ed25519.PublicKey:
		signerPub, ok := signerKey.(ed25519.PublicKey)
		return ok && certPub.Equal(signerPub)
	default:
		return false
	}
}

// newSPIFFECredential wraps an SVID source as the SPIFFE shape of a
// tlsCredential. No key validation happens here: the source is trusted to
// provide correct material at handshake time.
func newSPIFFECredential(source x509svid.Source) (*tlsCredential, error) {
	if source == nil {
		return nil, ferrors.ErrNullSVID
	}
	return &tlsCredential{spiffe: source}, nil
}
