package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/metrics"
)

type payload struct {
	Mean float64 `json:"mean"`
	Tag  string  `json:"tag"`
}

func newStore(t *testing.T) *BigCache {
	t.Helper()
	c, err := NewBigCache(time.Minute, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBigCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newStore(t)

	require.NoError(t, c.Set(ctx, "k", payload{Mean: 0.12, Tag: "pool"}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Mean: 0.12, Tag: "pool"}, got)

	err := c.Get(ctx, "missing", &got)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestFingerprint(t *testing.T) {
	cfg := config.DefaultSimulation()
	a, err := Fingerprint(cfg)
	require.NoError(t, err)

	cfg.MonteCarlo.Workers = 8
	b, err := Fingerprint(cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b, "worker count must not change the key")

	cfg.MonteCarlo.Seed++
	c, err := Fingerprint(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	cfg = config.DefaultSimulation()
	cfg.Loan.Coupon = 0.13
	d, err := Fingerprint(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestResultsHitAndMiss(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMetrics("test")
	r := NewResults[payload](newStore(t), m, nil)
	cfg := config.DefaultSimulation()

	_, ok := r.Get(ctx, cfg)
	assert.False(t, ok)

	r.Put(ctx, cfg, payload{Mean: 0.1, Tag: "x"})
	got, ok := r.Get(ctx, cfg)
	require.True(t, ok)
	assert.Equal(t, "x", got.Tag)

	other := cfg
	other.Pool.NumProjects = 5
	_, ok = r.Get(ctx, other)
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("miss")))
}
