package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/graphbuilder"
	"github.com/p2pflow/routefinder/guard"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/routegraph"
	"github.com/p2pflow/routefinder/search"
)

func mustMoney(t *testing.T, cur, amt string, scale int) money.Money {
	t.Helper()
	m, err := money.New(cur, decimal.MustNew(amt, scale))
	require.NoError(t, err)

	return m
}

func mustOrder(t *testing.T, side order.Side, base, quote, rate string, min, max string) *order.Order {
	t.Helper()
	r, err := money.NewRate(base, quote, decimal.MustNew(rate, 4))
	require.NoError(t, err)
	bounds, err := order.NewBounds(mustMoney(t, base, min, 2), mustMoney(t, base, max, 2))
	require.NoError(t, err)
	o, err := order.New(side, base, quote, bounds, r, nil)
	require.NoError(t, err)

	return o
}

func mustGuard(t *testing.T, expansionLimit, visitedStateLimit int) *guard.Guard {
	t.Helper()
	g, err := guard.New(expansionLimit, visitedStateLimit, nil, nil)
	require.NoError(t, err)

	return g
}

func buildGraph(t *testing.T, orders ...*order.Order) *routegraph.RouteGraph {
	t.Helper()
	g, err := graphbuilder.New().Build(orders)
	require.NoError(t, err)

	return g
}

func TestRun_DirectSingleHopFindsTarget(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	g := buildGraph(t, o)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, 1, out.Candidates[0].Hops)
	assert.Equal(t, "500.000000000000000000", out.Candidates[0].Cost.String())
}

func TestRun_TwoHopBridgeFindsTarget(t *testing.T) {
	first := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	second := mustOrder(t, order.BUY, "AAA", "BBB", "3.0000", "1.00", "1000.00")
	g := buildGraph(t, first, second)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "BBB",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, 2, out.Candidates[0].Hops)
	assert.Equal(t, []string{"USD", "AAA", "BBB"}, []string{
		out.Candidates[0].Edges[0].From,
		out.Candidates[0].Edges[0].To,
		out.Candidates[0].Edges[1].To,
	})
}

func TestRun_MaxHopsCutoffExcludesDeeperTarget(t *testing.T) {
	first := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	second := mustOrder(t, order.BUY, "AAA", "BBB", "3.0000", "1.00", "1000.00")
	g := buildGraph(t, first, second)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "BBB",
		MaxHops:     1,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestRun_GuardExpansionLimitStopsSearchBeforeDeeperTarget(t *testing.T) {
	first := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	second := mustOrder(t, order.BUY, "AAA", "BBB", "3.0000", "1.00", "1000.00")
	g := buildGraph(t, first, second)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "BBB",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
	assert.True(t, out.Report.ExpansionLimitReached)
}

func TestRun_ResultLimitKeepsOnlyBestCandidates(t *testing.T) {
	cheap := mustOrder(t, order.BUY, "USD", "AAA", "4.0000", "10.00", "1000.00")
	expensive := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	g := buildGraph(t, cheap, expensive)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 1,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "250.000000000000000000", out.Candidates[0].Cost.String())
}

func TestRun_AcceptCallbackRejectsCandidate(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	g := buildGraph(t, o)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
		Accept:      func(search.CandidatePath) (bool, error) { return false, nil },
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestRun_AcceptCallbackErrorAbortsSearch(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	g := buildGraph(t, o)
	boom := assert.AnError

	_, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
		Accept:      func(search.CandidatePath) (bool, error) { return false, boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_ToleranceAmplifierPrunesCostlyLongerPath(t *testing.T) {
	direct := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	bridgeOut := mustOrder(t, order.BUY, "USD", "CCC", "0.1000", "10.00", "1000.00")
	bridgeBack := mustOrder(t, order.BUY, "CCC", "AAA", "2.0000", "1.00", "100000.00")
	g := buildGraph(t, direct, bridgeOut, bridgeBack)

	out, err := search.Run(g, search.Config{
		Source:             "USD",
		Target:             "AAA",
		MaxHops:            3,
		ResultLimit:        5,
		Guard:              mustGuard(t, 1000, 1000),
		InitialCost:        decimal.MustNew("1000", 18),
		ToleranceAmplifier: decimal.MustNew("0.01", 2),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1, "the two-hop bridge should be pruned by the tolerance frontier")
	assert.Equal(t, 1, out.Candidates[0].Hops)
}

func TestRun_WithoutToleranceAmplifierBothPathsSurvive(t *testing.T) {
	direct := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	bridgeOut := mustOrder(t, order.BUY, "USD", "CCC", "0.1000", "10.00", "1000.00")
	bridgeBack := mustOrder(t, order.BUY, "CCC", "AAA", "2.0000", "1.00", "100000.00")
	g := buildGraph(t, direct, bridgeOut, bridgeBack)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, 1, out.Candidates[0].Hops)
	assert.Equal(t, 2, out.Candidates[1].Hops)
}

func TestRun_MissingSourceReturnsNoCandidates(t *testing.T) {
	o := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	g := buildGraph(t, o)

	out, err := search.Run(g, search.Config{
		Source:      "EUR",
		Target:      "AAA",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestRun_NegativeMaxHopsRejected(t *testing.T) {
	_, err := search.Run(routegraph.New(), search.Config{
		Source:  "USD",
		Target:  "AAA",
		MaxHops: -1,
		Guard:   mustGuard(t, 1000, 1000),
	})
	assert.ErrorIs(t, err, search.ErrBadMaxHops)
}

func TestRun_UsedOrdersReportsEdgeOrders(t *testing.T) {
	first := mustOrder(t, order.BUY, "USD", "AAA", "2.0000", "10.00", "1000.00")
	second := mustOrder(t, order.BUY, "AAA", "BBB", "3.0000", "1.00", "1000.00")
	g := buildGraph(t, first, second)

	out, err := search.Run(g, search.Config{
		Source:      "USD",
		Target:      "BBB",
		MaxHops:     3,
		ResultLimit: 5,
		Guard:       mustGuard(t, 1000, 1000),
		InitialCost: decimal.MustNew("1000", 18),
	})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)

	used := search.UsedOrders(out.Candidates[0].Edges)
	require.Len(t, used, 2)
	assert.Same(t, first, used[0])
	assert.Same(t, second, used[1])
}
