package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidFieldNamesField(t *testing.T) {
	err := InvalidField("rates.volatility", "must be in [0,1], got %v", 1.5)

	assert.Equal(t, "rates.volatility", err.Field)
	assert.Contains(t, err.Error(), "rates.volatility")
	assert.Contains(t, err.Error(), "1.5")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
}

func TestWithFieldDoesNotMutateSentinel(t *testing.T) {
	derived := ErrInvalidPathCount.WithField("monte_carlo.paths")

	assert.Empty(t, ErrInvalidPathCount.Field)
	assert.Equal(t, "monte_carlo.paths", derived.Field)
	assert.True(t, errors.Is(derived, ErrInvalidPathCount))
	assert.False(t, errors.Is(derived, ErrInvalidConfig))
}

func TestWrapKeepsTypeAndUnwraps(t *testing.T) {
	base := InvalidField("grid.horizon_years", "must be positive")
	wrapped := fmt.Errorf("engine: %w", Wrap(base, ErrInternal, "validate config"))

	var xe *Error
	require.True(t, errors.As(wrapped, &xe))
	assert.Equal(t, ErrInvalidArg, xe.Type)
	assert.Equal(t, "grid.horizon_years", xe.Field)
	assert.True(t, errors.Is(wrapped, ErrInvalidConfig))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "noop"))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Internal("boom", nil).HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, New(ErrUnavailable, 503, "down", "", nil).HTTPStatus())
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	before := ErrShapeMismatch.Detail
	derived := ErrShapeMismatch.WithDetail("got %d points", 3)

	assert.Equal(t, before, ErrShapeMismatch.Detail)
	assert.NotEqual(t, before, derived.Detail)
	assert.Contains(t, derived.Error(), "got 3 points")
	assert.True(t, errors.Is(derived, ErrShapeMismatch))
}
