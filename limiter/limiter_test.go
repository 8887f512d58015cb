package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wyfcoding/creditpool/xerrors"
)

func acquireWithin(l *SemaphoreLimiter, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.Acquire(ctx)
}

func TestSemaphoreLimiter(t *testing.T) {
	l := NewSemaphoreLimiter(2)
	require.NoError(t, acquireWithin(l, time.Second))
	require.NoError(t, acquireWithin(l, time.Second))

	err := acquireWithin(l, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConcurrencyLimit))

	var xe *xerrors.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, 503, xe.HTTPStatus())

	l.Release()
	assert.NoError(t, acquireWithin(l, time.Second))
}

func TestSemaphoreLimiterDisabled(t *testing.T) {
	l := NewSemaphoreLimiter(0)
	for range 10 {
		assert.NoError(t, acquireWithin(l, time.Millisecond))
	}
	assert.NotPanics(t, l.Release)
}

func TestKeyedLimiterIsolatesClients(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(time.Hour), 1)

	ok, err := l.Allow(t.Context(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(t.Context(), "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(t.Context(), "10.0.0.2")
	assert.True(t, ok)
}

func TestKeyedLimiterResetsWhenFull(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(time.Hour), 1)
	l.maxKeys = 2

	_, _ = l.Allow(t.Context(), "a")
	_, _ = l.Allow(t.Context(), "b")
	_, _ = l.Allow(t.Context(), "c")

	l.mu.Lock()
	assert.Len(t, l.buckets, 1)
	l.mu.Unlock()

	ok, _ := l.Allow(t.Context(), "a")
	assert.True(t, ok)
}
