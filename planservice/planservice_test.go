package planservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/planservice"
)

func mustMoney(t *testing.T, cur, amt string, scale int) money.Money {
	t.Helper()
	m, err := money.New(cur, decimal.MustNew(amt, scale))
	require.NoError(t, err)

	return m
}

func mustOrder(t *testing.T, side order.Side, base, quote, rate, min, max string, fee order.FeePolicy) *order.Order {
	t.Helper()
	r, err := money.NewRate(base, quote, decimal.MustNew(rate, 2))
	require.NoError(t, err)
	bounds, err := order.NewBounds(mustMoney(t, base, min, 2), mustMoney(t, base, max, 2))
	require.NoError(t, err)
	o, err := order.New(side, base, quote, bounds, r, fee)
	require.NoError(t, err)

	return o
}

func zeroTolerance() decimal.Decimal { return decimal.MustNew("0", 2) }

func TestFindBestPlans_DirectSingleHop(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "USDT", "1.00", "10.00", "100.00", nil)

	req := planservice.Request{
		OrderBook:         []*order.Order{o},
		SpendAmount:       mustMoney(t, "USD", "100.00", 2),
		TargetCurrency:    "USDT",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    1000,
		VisitedStateLimit: 1000,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Plans, 1)

	plan := out.Plans[0]
	assert.Equal(t, "USD 100.00", plan.TotalSpent.String())
	assert.Equal(t, "USDT 100.00", plan.TotalReceived.String())
	assert.True(t, plan.ResidualTolerance.IsZero())
	assert.Equal(t, 1, plan.StepCount)
	assert.True(t, plan.IsLinear)
	assert.Empty(t, plan.FeeBreakdown)
	assert.False(t, out.GuardReport.AnyLimitReached())
}

func TestFindBestPlans_TwoHopBridge(t *testing.T) {
	eurUsd := mustOrder(t, order.BUY, "EUR", "USD", "1.10", "1.00", "100.00", nil)
	usdJpy := mustOrder(t, order.BUY, "USD", "JPY", "150.00", "1.00", "1000.00", nil)

	req := planservice.Request{
		OrderBook:         []*order.Order{eurUsd, usdJpy},
		SpendAmount:       mustMoney(t, "EUR", "100.00", 2),
		TargetCurrency:    "JPY",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           1,
		MaxHops:           3,
		ResultLimit:       1,
		ExpansionLimit:    1000,
		VisitedStateLimit: 1000,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Plans, 1)

	plan := out.Plans[0]
	assert.Equal(t, "EUR 100.00", plan.TotalSpent.String())
	assert.Equal(t, "JPY 16500.00", plan.TotalReceived.String())
	assert.Equal(t, 2, plan.StepCount)
	assert.True(t, plan.IsLinear)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "EUR", plan.Steps[0].From)
	assert.Equal(t, "USD", plan.Steps[0].To)
	assert.Equal(t, "USD", plan.Steps[1].From)
	assert.Equal(t, "JPY", plan.Steps[1].To)
}

func TestFindBestPlans_GuardedExhaustionThrowsWhenRequested(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "2.00", "10.00", "100.00", nil)

	req := planservice.Request{
		OrderBook:         []*order.Order{o},
		SpendAmount:       mustMoney(t, "USD", "100.00", 2),
		TargetCurrency:    "AAA",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    1,
		VisitedStateLimit: 1000,
		ThrowOnGuardLimit: true,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, out.Plans)
	assert.True(t, out.GuardReport.ExpansionLimitReached)

	var guardErr *planservice.GuardLimitExceededError
	require.True(t, errors.As(err, &guardErr))
	assert.Equal(t, "Search terminated: expansions 1/1", guardErr.Error())
}

func TestFindBestPlans_MinimumHopsFilterRejectsDirectPath(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "1.00", "10.00", "100.00", nil)

	req := planservice.Request{
		OrderBook:         []*order.Order{o},
		SpendAmount:       mustMoney(t, "USD", "100.00", 2),
		TargetCurrency:    "AAA",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           2,
		MaxHops:           3,
		ResultLimit:       1,
		ExpansionLimit:    1000,
		VisitedStateLimit: 1000,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, out.Plans)
	assert.False(t, out.GuardReport.AnyLimitReached())
}

func TestFindBestPlans_TopKAlternativesRankedByCost(t *testing.T) {
	best := mustOrder(t, order.BUY, "USD", "RUB", "99.00", "1.00", "500.00", nil)
	mid := mustOrder(t, order.BUY, "USD", "RUB", "97.00", "1.00", "500.00", nil)
	worst := mustOrder(t, order.BUY, "USD", "RUB", "95.00", "1.00", "500.00", nil)

	req := planservice.Request{
		OrderBook:         []*order.Order{worst, mid, best},
		SpendAmount:       mustMoney(t, "USD", "110.00", 2),
		TargetCurrency:    "RUB",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       3,
		ExpansionLimit:    1000,
		VisitedStateLimit: 1000,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Plans, 3)

	for _, plan := range out.Plans {
		assert.Equal(t, "USD 110.00", plan.TotalSpent.String())
	}
	assert.Equal(t, "RUB 10890.00", out.Plans[0].TotalReceived.String())
	assert.Equal(t, "RUB 10670.00", out.Plans[1].TotalReceived.String())
	assert.Equal(t, "RUB 10450.00", out.Plans[2].TotalReceived.String())
}

func TestFindBestPlans_FeeAwareTwoHop(t *testing.T) {
	leg1Fee := order.PercentFeePolicy{BaseFeeRate: decimal.MustNew("0.05", 2), QuoteFeeRate: decimal.MustNew("0.02", 2)}
	leg2Fee := order.PercentFeePolicy{QuoteFeeRate: decimal.MustNew("0.02", 2)}

	usdAaa := mustOrder(t, order.BUY, "USD", "AAA", "2.00", "1.00", "38.00", leg1Fee)
	aaaEur := mustOrder(t, order.BUY, "AAA", "EUR", "1.00", "1.00", "100.00", leg2Fee)

	req := planservice.Request{
		OrderBook:         []*order.Order{usdAaa, aaaEur},
		SpendAmount:       mustMoney(t, "USD", "40.00", 2),
		TargetCurrency:    "EUR",
		ToleranceMin:      zeroTolerance(),
		ToleranceMax:      zeroTolerance(),
		MinHops:           1,
		MaxHops:           3,
		ResultLimit:       1,
		ExpansionLimit:    1000,
		VisitedStateLimit: 1000,
	}

	out, err := planservice.FindBestPlans(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Plans, 1)

	plan := out.Plans[0]
	assert.Equal(t, "USD 40.00", plan.TotalSpent.String())
	assert.Equal(t, "EUR 79.07", plan.TotalReceived.String())
	assert.True(t, plan.ResidualTolerance.IsZero())

	require.Len(t, plan.FeeBreakdown, 3)
	assert.Equal(t, "AAA", plan.FeeBreakdown[0].Currency)
	assert.Equal(t, "AAA 1.52", plan.FeeBreakdown[0].Amount.String())
	assert.Equal(t, "EUR", plan.FeeBreakdown[1].Currency)
	assert.Equal(t, "EUR 1.55", plan.FeeBreakdown[1].Amount.String())
	assert.Equal(t, "USD", plan.FeeBreakdown[2].Currency)
	assert.Equal(t, "USD 2.00", plan.FeeBreakdown[2].Amount.String())
}

func TestFindBestPlans_RejectsZeroSpend(t *testing.T) {
	req := planservice.Request{
		SpendAmount:       mustMoney(t, "USD", "0.00", 2),
		TargetCurrency:    "AAA",
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}

	_, err := planservice.FindBestPlans(context.Background(), req)
	assert.ErrorIs(t, err, planservice.ErrZeroSpend)
}

func TestFindBestPlans_RejectsPrecisionCollapsedToleranceWindow(t *testing.T) {
	req := planservice.Request{
		SpendAmount:       mustMoney(t, "USD", "100", 0),
		TargetCurrency:    "AAA",
		ToleranceMax:      decimal.MustNew("0.001", 3),
		MinHops:           1,
		MaxHops:           1,
		ResultLimit:       1,
		ExpansionLimit:    10,
		VisitedStateLimit: 10,
	}

	_, err := planservice.FindBestPlans(context.Background(), req)
	assert.ErrorIs(t, err, planservice.ErrPrecisionViolation)
}
