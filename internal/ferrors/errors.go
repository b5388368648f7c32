// Package ferrors provides the stable error taxonomy shared by every
// federation facade operation.
package ferrors

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by facade operations. Callers should compare
// with errors.Is, since operations wrap these with operation-specific
// context via FederationError.
var (
	// ErrNull is returned when the server argument itself is absent.
	ErrNull = errors.New("server is nil")

	// ErrBadArgument is returned when a required identifier (path or base
	// URL) is missing or malformed. Port problems use ErrBadPort.
	ErrBadArgument = errors.New("bad argument")

	// ErrNullData is returned when a required data argument (bundle
	// source) is missing.
	ErrNullData = errors.New("data argument is nil")

	// ErrInvalidTrustDomain is returned when a trust domain name is
	// missing or empty.
	ErrInvalidTrustDomain = errors.New("invalid trust domain")

	// ErrCertificateValidation is returned when the certificate list is
	// empty or the leaf certificate is absent.
	ErrCertificateValidation = errors.New("certificate validation failed")

	// ErrPrivateKeyValidation is returned when the private key does not
	// match the leaf certificate's public key.
	ErrPrivateKeyValidation = errors.New("private key does not match leaf certificate")

	// ErrNullSVID is returned when an SVID source argument is missing.
	ErrNullSVID = errors.New("svid source is nil")

	// ErrExists is returned when a path or base URL is already registered.
	ErrExists = errors.New("already exists")

	// ErrNotFound is returned when a lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrBadPort is returned when a port is out of range or a worker
	// already exists for it.
	ErrBadPort = errors.New("bad port")
)

// FederationError wraps one of the sentinels above with the operation and
// identifier that triggered it, so logs and error messages stay specific
// without giving up errors.Is/errors.As compatibility.
type FederationError struct {
	Op   string // operation name, e.g. "RegisterBundle"
	Arg  string // the offending identifier, e.g. a path or base URL
	Kind error  // one of the sentinels above
}

func (e *FederationError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s(%q): %v", e.Op, e.Arg, e.Kind)
}

func (e *FederationError) Unwrap() error {
	return e.Kind
}

// New builds a FederationError for op/arg wrapping kind.
func New(op, arg string, kind error) error {
	return &FederationError{Op: op, Arg: arg, Kind: kind}
}
