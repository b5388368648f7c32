package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/federationd/internal/ferrors"
)

func TestServeEndpoint_RejectsUnknownEndpoint(t *testing.T) {
	s := NewServer()
	err := s.ServeEndpoint("https://missing.example.org", 17500)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrNotFound)
}

func TestServeEndpoint_RejectsZeroPort(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")
	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)

	err = s.ServeEndpoint("https://example.org", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrBadPort)
}

func TestServeEndpoint_RejectsAlreadyServingPort(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")
	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)

	require.NoError(t, s.ServeEndpoint("https://example.org", 17501))
	t.Cleanup(func() { _ = s.Stop() })

	err = s.ServeEndpoint("https://example.org", 17501)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrBadPort)
}

func TestStopEndpointThread_SecondStopReportsBadPort(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")
	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)
	require.NoError(t, s.ServeEndpoint("https://example.org", 17502))

	require.NoError(t, s.StopEndpointThread("https://example.org", 17502))

	// The port has been removed from the registry entirely, so a second
	// stop reports ErrBadPort rather than silently succeeding again; the
	// underlying worker itself still tolerates a repeated stop() call,
	// exercised directly below.
	err = s.StopEndpointThread("https://example.org", 17502)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrBadPort)
}

func TestWorkerStop_IsIdempotentWhenCalledDirectlyTwice(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")
	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)
	require.NoError(t, s.ServeEndpoint("https://example.org", 17503))

	info, err := s.GetEndpointInfo("https://example.org")
	require.NoError(t, err)

	info.endpoint.mu.Lock()
	var w *worker
	for _, worker := range info.endpoint.workers {
		w = worker
	}
	info.endpoint.mu.Unlock()
	require.NotNil(t, w)

	w.stop()
	assert.NotPanics(t, func() { w.stop() })
}

func TestStop_IsIdempotent(t *testing.T) {
	s := NewServer()
	certs, key := generateSelfSignedCert(t, "service-a")
	_, err := s.AddHttpsWebEndpoint("https://example.org", certs, key)
	require.NoError(t, err)
	require.NoError(t, s.ServeEndpoint("https://example.org", 17504))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
