package finance

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/creditpool/xerrors"
)

func TestIRRTwoFlowsConvergesToTenPercent(t *testing.T) {
	res := IRR([]float64{-100, 110}, []float64{0, 1})

	assert.True(t, res.Converged)
	assert.False(t, res.Clamped)
	assert.InDelta(t, 0.10, res.Rate, 1e-9)
}

func TestIRRQuarterlyTimePoints(t *testing.T) {
	cf := []float64{-100, 0, 0, 0, 110}
	res := IRR(cf, YearFractions(len(cf), 0.25))

	assert.True(t, res.Converged)
	assert.InDelta(t, 0.10, res.Rate, 1e-6)
}

func TestIRRBulletLoan(t *testing.T) {
	// 票息 12%，平价买入，IRR 等于票息.
	cf := []float64{-100, 12, 12, 12, 12, 112}
	assert.InDelta(t, 0.12, IRRRate(cf, nil), 1e-6)
}

func TestIRRClampPolicy(t *testing.T) {
	cases := []struct {
		name string
		cf   []float64
		want float64
	}{
		{"all zero", []float64{0, 0, 0}, IRRLowerBound},
		{"total loss", []float64{-100, 0, 0, 0}, IRRLowerBound},
		{"empty", nil, IRRLowerBound},
		{"gift", []float64{0, 10, 10}, IRRUpperBound},
		{"runaway root", []float64{-1, 1000}, IRRUpperBound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := IRR(tc.cf, nil)
			assert.Equal(t, tc.want, res.Rate)
			assert.True(t, res.Clamped)
		})
	}
}

func TestIRRStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		cf := make([]float64, 6)
		cf[0] = -100
		for i := 1; i < len(cf); i++ {
			cf[i] = rng.Float64() * 60
		}
		r := IRRRate(cf, nil)
		require.GreaterOrEqual(t, r, IRRLowerBound)
		require.LessOrEqual(t, r, IRRUpperBound)
	}
}

func TestYearFractions(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, YearFractions(4, 0.5))
	assert.Empty(t, YearFractions(0, 1))
}

func TestNPVHandFixture(t *testing.T) {
	cf := []float64{-100, 30, 40, 50}
	df := []float64{1, 0.75, 0.5, 0.25}

	npv, err := NPV(cf, df)
	require.NoError(t, err)
	assert.Equal(t, -100+30*0.75+40*0.5+50*0.25, npv)
	assert.Equal(t, -45.0, npv)
}

func TestNPVShapeMismatch(t *testing.T) {
	_, err := NPV([]float64{1, 2}, []float64{1})
	assert.True(t, errors.Is(err, xerrors.ErrShapeMismatch))
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestAllocatePriority(t *testing.T) {
	cases := []struct {
		name                           string
		proceeds                       float64
		interest, principal, equity    float64
		wantDebt, wantEquity, wantRest float64
	}{
		{"short of debt", 50, 10, 70, 30, 50, 0, 0},
		{"covers interest only", 8, 10, 70, 30, 8, 0, 0},
		{"debt repaid, equity partial", 100, 10, 70, 30, 80, 20, 0},
		{"full with upside", 150, 10, 70, 30, 80, 30, 40},
		{"nothing to distribute", 0, 10, 70, 30, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Allocate(WaterfallInput{
				Proceeds:      d(tc.proceeds),
				DebtInterest:  d(tc.interest),
				DebtPrincipal: d(tc.principal),
				Equity:        d(tc.equity),
				ProfitSplit:   d(0.8),
			})
			assert.True(t, a.ToDebt().Equal(d(tc.wantDebt)), "debt %s", a.ToDebt())
			assert.True(t, a.EquityReturn.Equal(d(tc.wantEquity)), "equity %s", a.EquityReturn)
			rest := a.ProfitShare.Add(a.Carry)
			assert.True(t, rest.Equal(d(tc.wantRest)), "rest %s", rest)
			assert.True(t, a.Total().Equal(d(tc.proceeds)))
		})
	}
}

func TestAllocateInterestBeforePrincipal(t *testing.T) {
	a := Allocate(WaterfallInput{Proceeds: d(15), DebtInterest: d(10), DebtPrincipal: d(70)})
	assert.True(t, a.DebtInterest.Equal(d(10)))
	assert.True(t, a.DebtPrincipal.Equal(d(5)))
}

func TestAllocateProfitSplit(t *testing.T) {
	a := Allocate(WaterfallInput{Proceeds: d(150), DebtPrincipal: d(70), DebtInterest: d(10), Equity: d(30), ProfitSplit: d(0.8)})
	assert.True(t, a.ProfitShare.Equal(d(32)))
	assert.True(t, a.Carry.Equal(d(8)))
	assert.True(t, a.ToSponsor().Equal(d(62)))
	assert.True(t, a.ToManager().Equal(d(8)))
}

func TestAllocateNegativeInputsClampToZero(t *testing.T) {
	a := Allocate(WaterfallInput{Proceeds: d(-5), DebtPrincipal: d(10), Equity: d(-3), ProfitSplit: d(1.5)})
	assert.True(t, a.Total().IsZero())

	a = Allocate(WaterfallInput{Proceeds: d(20), DebtPrincipal: d(-10), Equity: d(-3), ProfitSplit: d(1.5)})
	assert.True(t, a.ToDebt().IsZero())
	assert.True(t, a.EquityReturn.IsZero())
	assert.True(t, a.ProfitShare.Equal(d(20)))
	assert.True(t, a.Carry.IsZero())
}

func TestAllocateConservesProceeds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 500 {
		in := WaterfallInput{
			Proceeds:      d(rng.Float64() * 1e8),
			DebtPrincipal: d(rng.Float64() * 7e7),
			DebtInterest:  d(rng.Float64() * 1e7),
			Equity:        d(rng.Float64() * 3e7),
			ProfitSplit:   d(rng.Float64()),
		}
		a := Allocate(in)
		require.True(t, a.Total().Equal(in.Proceeds))
		for _, part := range []decimal.Decimal{a.DebtInterest, a.DebtPrincipal, a.EquityReturn, a.ProfitShare, a.Carry} {
			require.False(t, part.IsNegative())
		}
	}
}
