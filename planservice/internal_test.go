package planservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/money"
)

func mustMoneyAt(t *testing.T, cur, amt string, scale int) money.Money {
	t.Helper()
	m, err := money.New(cur, decimal.MustNew(amt, scale))
	require.NoError(t, err)

	return m
}

func TestDeriveSpendWindow_SplitsAroundDesired(t *testing.T) {
	desired := mustMoneyAt(t, "USD", "100.00", 2)
	tMax := decimal.MustNew("0.10", 2)

	window, err := deriveSpendWindow(desired, tMax)
	require.NoError(t, err)
	assert.Equal(t, "USD 90.00", window.Min.String())
	assert.Equal(t, "USD 110.00", window.Max.String())
}

func TestDeriveSpendWindow_ZeroToleranceCollapsesToDesiredWithoutError(t *testing.T) {
	desired := mustMoneyAt(t, "USD", "100.00", 2)
	zero := decimal.MustNew("0", 2)

	window, err := deriveSpendWindow(desired, zero)
	require.NoError(t, err)
	assert.Equal(t, "USD 100.00", window.Min.String())
	assert.Equal(t, "USD 100.00", window.Max.String())
}

func TestDeriveSpendWindow_PrecisionViolationWhenScaleCollapsesWindow(t *testing.T) {
	desired := mustMoneyAt(t, "USD", "100", 0)
	tMax := decimal.MustNew("0.001", 3)

	_, err := deriveSpendWindow(desired, tMax)
	assert.ErrorIs(t, err, ErrPrecisionViolation)
}

func TestResidualTolerance_SignedFraction(t *testing.T) {
	desired := mustMoneyAt(t, "USD", "100.00", 2)
	actual := mustMoneyAt(t, "USD", "105.00", 2)

	residual, err := residualTolerance(desired, actual)
	require.NoError(t, err)
	assert.Equal(t, "-0.050000000000000000", residual.String())
}

func TestWithinToleranceWindow_ChecksAbsoluteValueAgainstBand(t *testing.T) {
	tMin := decimal.MustNew("0.01", 2)
	tMax := decimal.MustNew("0.10", 2)

	assert.True(t, withinToleranceWindow(decimal.MustNew("-0.05", 2), tMin, tMax))
	assert.True(t, withinToleranceWindow(decimal.MustNew("0.10", 2), tMin, tMax))
	assert.False(t, withinToleranceWindow(decimal.MustNew("0.00", 2), tMin, tMax))
	assert.False(t, withinToleranceWindow(decimal.MustNew("0.11", 2), tMin, tMax))
}

func TestValidate_RejectsZeroSpend(t *testing.T) {
	req := Request{
		SpendAmount:       mustMoneyAt(t, "USD", "0.00", 2),
		TargetCurrency:    "AAA",
		MaxHops:           3,
		MinHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}
	assert.ErrorIs(t, validate(req), ErrZeroSpend)
}

func TestValidate_RejectsEmptyTargetCurrency(t *testing.T) {
	req := Request{
		SpendAmount:       mustMoneyAt(t, "USD", "100.00", 2),
		MaxHops:           3,
		MinHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}
	assert.ErrorIs(t, validate(req), ErrEmptyTargetCurrency)
}

func TestValidate_RejectsInvertedToleranceWindow(t *testing.T) {
	req := Request{
		SpendAmount:       mustMoneyAt(t, "USD", "100.00", 2),
		TargetCurrency:    "AAA",
		ToleranceMin:      decimal.MustNew("0.20", 2),
		ToleranceMax:      decimal.MustNew("0.10", 2),
		MaxHops:           3,
		MinHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}
	assert.ErrorIs(t, validate(req), ErrBadToleranceWindow)
}

func TestValidate_RejectsBadHopLimits(t *testing.T) {
	req := Request{
		SpendAmount:       mustMoneyAt(t, "USD", "100.00", 2),
		TargetCurrency:    "AAA",
		MinHops:           3,
		MaxHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}
	assert.ErrorIs(t, validate(req), ErrBadHopLimits)
}

func TestValidate_RejectsBadResultLimit(t *testing.T) {
	req := Request{
		SpendAmount:       mustMoneyAt(t, "USD", "100.00", 2),
		TargetCurrency:    "AAA",
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       0,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}
	assert.ErrorIs(t, validate(req), ErrBadResultLimit)
}
