package reachability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/graphbuilder"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/reachability"
	"github.com/p2pflow/routefinder/routegraph"
)

func mustMoney(t *testing.T, cur, amt string, scale int) money.Money {
	t.Helper()
	m, err := money.New(cur, decimal.MustNew(amt, scale))
	require.NoError(t, err)

	return m
}

func twoHopGraph(t *testing.T) *routegraph.RouteGraph {
	t.Helper()
	rate1, err := money.NewRate("USD", "EUR", decimal.MustNew("0.9000", 4))
	require.NoError(t, err)
	bounds1, err := order.NewBounds(mustMoney(t, "USD", "1.00", 2), mustMoney(t, "USD", "100.00", 2))
	require.NoError(t, err)
	o1, err := order.New(order.BUY, "USD", "EUR", bounds1, rate1, nil)
	require.NoError(t, err)

	rate2, err := money.NewRate("EUR", "GBP", decimal.MustNew("0.8500", 4))
	require.NoError(t, err)
	bounds2, err := order.NewBounds(mustMoney(t, "EUR", "1.00", 2), mustMoney(t, "EUR", "100.00", 2))
	require.NoError(t, err)
	o2, err := order.New(order.BUY, "EUR", "GBP", bounds2, rate2, nil)
	require.NoError(t, err)

	b := graphbuilder.New()
	g, err := b.Build([]*order.Order{o1, o2})
	require.NoError(t, err)

	return g
}

func TestReachable_WithinHops(t *testing.T) {
	g := twoHopGraph(t)
	ok, err := reachability.Reachable(g, "USD", "GBP", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachable_ExceedsHops(t *testing.T) {
	g := twoHopGraph(t)
	ok, err := reachability.Reachable(g, "USD", "GBP", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReachable_SourceNotFound(t *testing.T) {
	g := twoHopGraph(t)
	_, err := reachability.Reachable(g, "JPY", "GBP", 2)
	require.ErrorIs(t, err, reachability.ErrSourceNotFound)
}

func TestMinHops(t *testing.T) {
	g := twoHopGraph(t)
	hops, ok, err := reachability.MinHops(g, "USD", "GBP", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, hops)
}

func TestMinHops_SameCurrency(t *testing.T) {
	g := twoHopGraph(t)
	hops, ok, err := reachability.MinHops(g, "USD", "USD", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, hops)
}
