package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/federationd/internal/ferrors"
)

func TestAddHttpsWebEndpoint_RejectsDuplicateBaseURL(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")

	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)

	_, err = s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrExists)
}

func TestAddHttpsWebEndpoint_RejectsEmptyBaseURL(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")

	_, err := s.AddHttpsWebEndpoint("", certs, key)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrBadArgument)
}

func TestSetHttpsWebEndpointAuth_SwapsCredentialOfExistingEndpoint(t *testing.T) {
	s := NewServer()
	certsA, keyA := generateSelfSignedCert(t, "service-a")
	certsB, keyB := generateSelfSignedCert(t, "service-b")

	info, err := s.AddHttpsWebEndpoint("https://example.org", certsA, keyA)
	require.NoError(t, err)

	require.NoError(t, s.SetHttpsWebEndpointAuth("https://example.org", certsB, keyB))

	snap := info.endpoint.credential.snapshot()
	assert.Equal(t, certsB[0], snap.webPKI.cert.Leaf)
}

func TestSetHttpsWebEndpointAuth_NotFound(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")

	err := s.SetHttpsWebEndpointAuth("https://missing.example.org", certs, key)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestGetEndpointInfo(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")

	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)

	info, err := s.GetEndpointInfo("https://example.org")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", info.BaseURL())

	_, err = s.GetEndpointInfo("https://missing.example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestRemoveEndpoint_StopsActiveWorkersFirst(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")

	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)
	require.NoError(t, s.ServeEndpoint("https://example.org", 17443))

	info, err := s.GetEndpointInfo("https://example.org")
	require.NoError(t, err)

	info.endpoint.mu.Lock()
	var w *worker
	for _, worker := range info.endpoint.workers {
		w = worker
	}
	info.endpoint.mu.Unlock()
	require.NotNil(t, w)

	require.NoError(t, s.RemoveEndpoint("https://example.org"))

	assert.False(t, w.active.Load())
	_, err = s.GetEndpointInfo("https://example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestRemoveEndpoint_NotFound(t *testing.T) {
	s := NewServer()
	err := s.RemoveEndpoint("https://missing.example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}
