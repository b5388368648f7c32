package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/federationd/internal/ferrors"
)

func TestRegisterBundle_RejectsBadInputs(t *testing.T) {
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	cases := map[string]string{
		"empty path":        "",
		"no leading slash":  "bundles/example.org",
	}

	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewServer()
			err := s.RegisterBundle(path, src, td)
			require.Error(t, err)
			assert.ErrorIs(t, err, ferrors.ErrBadArgument)
		})
	}
}

func TestRegisterBundle_RejectsZeroTrustDomain(t *testing.T) {
	s := NewServer()
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	err := s.RegisterBundle("/bundles/example", src, spiffeidZeroTrustDomain())
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrInvalidTrustDomain)
}

func TestRegisterBundle_RejectsNilSource(t *testing.T) {
	s := NewServer()
	td := testTrustDomain(t, "example.org")

	err := s.RegisterBundle("/bundles/example", nil, td)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNullData)
}

func TestRegisterBundle_RejectsDuplicatePath(t *testing.T) {
	s := NewServer()
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	require.NoError(t, s.RegisterBundle("/bundles/example", src, td))
	err := s.RegisterBundle("/bundles/example", src, td)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrExists)
}

func TestUpdateBundle_ReplacesBindingAtomically(t *testing.T) {
	s := NewServer()
	tdA := testTrustDomain(t, "a.example.org")
	tdB := testTrustDomain(t, "b.example.org")
	srcA := &StaticBundleSource{TrustDomain: tdA, Bundle: emptyBundle(t, tdA)}
	srcB := &StaticBundleSource{TrustDomain: tdB, Bundle: emptyBundle(t, tdB)}

	require.NoError(t, s.RegisterBundle("/bundles/x", srcA, tdA))
	require.NoError(t, s.UpdateBundle("/bundles/x", srcB, tdB))

	b, ok := s.lookupBundle("/bundles/x")
	require.True(t, ok)
	assert.Equal(t, tdB, b.trustDomain)
}

func TestUpdateBundle_NotFound(t *testing.T) {
	s := NewServer()
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	err := s.UpdateBundle("/bundles/missing", src, td)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestRemoveBundle(t *testing.T) {
	s := NewServer()
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	require.NoError(t, s.RegisterBundle("/bundles/x", src, td))
	require.NoError(t, s.RemoveBundle("/bundles/x"))

	_, ok := s.lookupBundle("/bundles/x")
	assert.False(t, ok)

	err := s.RemoveBundle("/bundles/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestServerMethods_NilReceiverReturnsErrNull(t *testing.T) {
	var s *Server
	td := testTrustDomain(t, "example.org")
	src := &StaticBundleSource{TrustDomain: td, Bundle: emptyBundle(t, td)}

	assert.ErrorIs(t, s.RegisterBundle("/x", src, td), ferrors.ErrNull)
	assert.ErrorIs(t, s.UpdateBundle("/x", src, td), ferrors.ErrNull)
	assert.ErrorIs(t, s.RemoveBundle("/x"), ferrors.ErrNull)
	assert.ErrorIs(t, s.Stop(), ferrors.ErrNull)
}
