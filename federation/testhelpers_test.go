package federation

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/spiffe/go-spiffe/v2/bundle/spiffebundle"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// generateSelfSignedCert builds a minimal self-signed RSA leaf certificate
// for exercising the credential holder in tests.
func generateSelfSignedCert(t *testing.T, commonName string) ([]*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	return []*x509.Certificate{cert}, key
}

func testTrustDomain(t *testing.T, name string) spiffeid.TrustDomain {
	t.Helper()
	td, err := spiffeid.TrustDomainFromString(name)
	if err != nil {
		t.Fatalf("trust domain %q: %v", name, err)
	}
	return td
}

func emptyBundle(t *testing.T, td spiffeid.TrustDomain) *spiffebundle.Bundle {
	t.Helper()
	return spiffebundle.New(td)
}

// spiffeidZeroTrustDomain returns the zero value of spiffeid.TrustDomain,
// matching what RegisterBundle/UpdateBundle reject via IsZero().
func spiffeidZeroTrustDomain() spiffeid.TrustDomain {
	return spiffeid.TrustDomain{}
}
