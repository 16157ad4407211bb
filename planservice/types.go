package planservice

import (
	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/guard"
	"github.com/p2pflow/routefinder/materialize"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/ports"
)

// Request bundles everything FindBestPlans needs to produce an Outcome:
// the order book to search, the spend/target pair, the tolerance and hop
// windows, the top-K and guard configuration, and a handful of optional
// pluggable ports. Every field follows spec §6's "Request" external
// interface plus the §4.8/§9 supplements.
type Request struct {
	// OrderBook is the full set of orders to project into a graph. Orders
	// rejected by OrderFilters contribute no edge.
	OrderBook []*order.Order

	// SpendAmount is D, the requested source-currency spend. Its currency
	// is the search's source node. Must be strictly positive.
	SpendAmount money.Money

	// TargetCurrency is the destination asset every returned plan ends at.
	TargetCurrency string

	// ToleranceMin/ToleranceMax are tMin/tMax, both in [0,1), tMin <= tMax.
	ToleranceMin decimal.Decimal
	ToleranceMax decimal.Decimal

	// MinHops/MaxHops bound a plan's step count, minHops >= 1.
	MinHops int
	MaxHops int

	// ResultLimit is K: the top-K driver returns at most this many plans.
	ResultLimit int

	// ExpansionLimit/VisitedStateLimit/TimeBudgetMs configure the shared
	// resource budget, consumed cumulatively across every top-K iteration
	// (see DESIGN.md Open Question (c): aggregated, not per-iteration).
	ExpansionLimit    int
	VisitedStateLimit int
	TimeBudgetMs      *float64

	// ThrowOnGuardLimit, when true, makes FindBestPlans return a
	// *GuardLimitExceededError once the aggregated guard report shows any
	// breach, alongside whatever plans were already found.
	ThrowOnGuardLimit bool

	// Ordering ranks candidate paths; nil defaults to ports.DefaultOrdering.
	Ordering ports.PathOrdering

	// OrderFilters admit or reject orders before graph construction; an
	// empty slice admits everything.
	OrderFilters []ports.OrderFilter

	// Clock drives the guard's wall-clock budget; nil disables time-based
	// cancellation entirely (matching guard.New's own nil-clock default).
	Clock guard.Clock
}

// Step is one concrete hop of a materialised Plan.
type Step struct {
	SequenceNumber int
	From           string
	To             string
	Spent          money.Money
	Received       money.Money
	Fees           order.FeeBreakdown
	Order          *order.Order
}

// Plan is a concrete, fully materialised, tolerance-accepted conversion
// sequence from Request.SpendAmount.Currency() to Request.TargetCurrency.
type Plan struct {
	SourceCurrency    string
	TargetCurrency    string
	TotalSpent        money.Money
	TotalReceived     money.Money
	ResidualTolerance decimal.Decimal
	StepCount         int
	IsLinear          bool
	Steps             []Step
	FeeBreakdown      []materialize.FeeEntry
}

// Outcome is the result of one FindBestPlans call: the plans found, in
// discovery order, and the aggregated guard report across every top-K
// iteration that ran.
type Outcome struct {
	Plans       []Plan
	GuardReport guard.SearchGuardReport
}
