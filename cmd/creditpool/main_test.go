package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/creditpool/analytics"
	"github.com/wyfcoding/creditpool/app"
	"github.com/wyfcoding/creditpool/config"
)

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	f, fs, err := parseFlags([]string{"--paths", "200", "--capital"})
	require.NoError(t, err)

	cfg := config.DefaultSimulation()
	applyFlags(&cfg, f, fs)

	assert.Equal(t, 200, cfg.MonteCarlo.Paths)
	assert.True(t, cfg.Capital.Enabled)
	assert.Equal(t, uint64(42), cfg.MonteCarlo.Seed)
	assert.False(t, f.serve)
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	_, _, err := parseFlags([]string{"--bogus"})
	assert.Error(t, err)
}

func TestRunOncePrintsSummary(t *testing.T) {
	rt, err := app.Bootstrap("")
	require.NoError(t, err)
	rt.Config.Simulation.MonteCarlo.Paths = 40

	var out bytes.Buffer
	require.NoError(t, runOnce(t.Context(), rt, &out))

	var s analytics.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, 40, s.Paths)
	assert.Equal(t, "pool", s.Variant)
	assert.Len(t, s.AnnualCashFlows, 10)
}

func TestRunOnceRejectsInvalidConfig(t *testing.T) {
	rt, err := app.Bootstrap("")
	require.NoError(t, err)
	rt.Config.Simulation.Loan.Coupon = 2

	var out bytes.Buffer
	assert.Error(t, runOnce(t.Context(), rt, &out))
	assert.Zero(t, out.Len())
}
