package federation

import (
	"strings"

	"github.com/spiffe/go-spiffe/v2/spiffeid"

	"github.com/sufield/federationd/internal/ferrors"
)

// binding is the immutable triple (path, bundle source, trust domain) the
// bundle registry hands out to readers. It is always replaced wholesale
// under the server lock, never mutated in place, so a concurrent reader can
// only ever observe a pre- or post-update value.
type binding struct {
	path        string
	source      BundleSource
	trustDomain spiffeid.TrustDomain
}

// registerBundle binds path to source for trust domain td. Callers must hold s.mu.
func (s *Server) registerBundle(path string, source BundleSource, td spiffeid.TrustDomain) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ferrors.New("RegisterBundle", path, ferrors.ErrBadArgument)
	}
	if td.IsZero() {
		return ferrors.New("RegisterBundle", path, ferrors.ErrInvalidTrustDomain)
	}
	if source == nil {
		return ferrors.New("RegisterBundle", path, ferrors.ErrNullData)
	}
	if _, exists := s.bindings[path]; exists {
		return ferrors.New("RegisterBundle", path, ferrors.ErrExists)
	}
	s.bindings[path] = &binding{path: path, source: source, trustDomain: td}
	return nil
}

// updateBundle atomically replaces the binding at path. Callers must hold s.mu.
func (s *Server) updateBundle(path string, source BundleSource, td spiffeid.TrustDomain) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ferrors.New("UpdateBundle", path, ferrors.ErrBadArgument)
	}
	if td.IsZero() {
		return ferrors.New("UpdateBundle", path, ferrors.ErrInvalidTrustDomain)
	}
	if source == nil {
		return ferrors.New("UpdateBundle", path, ferrors.ErrNullData)
	}
	if _, exists := s.bindings[path]; !exists {
		return ferrors.New("UpdateBundle", path, ferrors.ErrNotFound)
	}
	// Replace the whole triple atomically: readers never see a torn value.
	s.bindings[path] = &binding{path: path, source: source, trustDomain: td}
	return nil
}

// removeBundle unbinds path. Callers must hold s.mu.
func (s *Server) removeBundle(path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ferrors.New("RemoveBundle", path, ferrors.ErrBadArgument)
	}
	if _, exists := s.bindings[path]; !exists {
		return ferrors.New("RemoveBundle", path, ferrors.ErrNotFound)
	}
	delete(s.bindings, path)
	return nil
}

// lookupBundle takes a snapshot of the binding for path under s.mu and
// releases the lock before returning, matching the "capture and release"
// rule the Bundle Serve Handler relies on.
func (s *Server) lookupBundle(path string) (*binding, bool) {
	s.mu.Lock()
	b, ok := s.bindings[path]
	s.mu.Unlock()
	return b, ok
}
