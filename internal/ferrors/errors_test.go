package ferrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sufield/federationd/internal/ferrors"
)

func TestNew_WrapsSentinelForErrorsIs(t *testing.T) {
	err := ferrors.New("RegisterBundle", "/bundles/x", ferrors.ErrExists)

	assert.True(t, errors.Is(err, ferrors.ErrExists))
	assert.False(t, errors.Is(err, ferrors.ErrNotFound))
}

func TestNew_UnwrapReturnsKind(t *testing.T) {
	err := ferrors.New("ServeEndpoint", "https://example.org", ferrors.ErrBadPort)

	var fe *ferrors.FederationError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, ferrors.ErrBadPort, fe.Unwrap())
}

func TestFederationError_ErrorMessageIncludesOpAndArg(t *testing.T) {
	err := ferrors.New("RegisterBundle", "/bundles/x", ferrors.ErrExists)
	assert.Contains(t, err.Error(), "RegisterBundle")
	assert.Contains(t, err.Error(), "/bundles/x")
}

func TestFederationError_ErrorMessageOmitsEmptyArg(t *testing.T) {
	err := ferrors.New("Stop", "", ferrors.ErrNull)
	assert.NotContains(t, err.Error(), `("")`)
}
