// Package federation implements a SPIFFE bundle federation endpoint server:
// the concurrent registry of bundle paths and TLS-serving endpoints that
// lets peer trust domains fetch a trust bundle document over authenticated
// HTTPS. It is the Go-native reimplementation of the spiffebundle endpoint
// server found in github.com/spiffe/c-spiffe's federation/server.c.
package federation

import (
	"errors"

	"github.com/spiffe/go-spiffe/v2/bundle/spiffebundle"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// ErrBundleNotFound is returned by a BundleSource when it has no bundle for
// the requested trust domain. The serve handler maps this (and any other
// error) to a 404 response.
var ErrBundleNotFound = errors.New("federation: bundle not found")

// BundleSource produces the current bundle document for a trust domain on
// demand. Implementations are supplied by the host application; the
// registry only ever holds a non-owning reference to one, exactly as the
// data model in the component design specifies — callers must not let a
// source become invalid while any path is still bound to it.
type BundleSource interface {
	GetBundleForTrustDomain(td spiffeid.TrustDomain) (*spiffebundle.Bundle, error)
}

// BundleSourceFunc adapts a function to BundleSource.
type BundleSourceFunc func(td spiffeid.TrustDomain) (*spiffebundle.Bundle, error)

// GetBundleForTrustDomain implements BundleSource.
func (f BundleSourceFunc) GetBundleForTrustDomain(td spiffeid.TrustDomain) (*spiffebundle.Bundle, error) {
	return f(td)
}

// StaticBundleSource serves one fixed bundle for exactly one trust domain,
// the simplest host-supplied BundleSource and the one used by the end-to-end
// scenarios in the testable properties section.
type StaticBundleSource struct {
	TrustDomain spiffeid.TrustDomain
	Bundle      *spiffebundle.Bundle
}

// GetBundleForTrustDomain implements BundleSource.
func (s *StaticBundleSource) GetBundleForTrustDomain(td spiffeid.TrustDomain) (*spiffebundle.Bundle, error) {
	if s.TrustDomain != td {
		return nil, ErrBundleNotFound
	}
	if s.Bundle == nil {
		return nil, ErrBundleNotFound
	}
	return s.Bundle, nil
}
