// Package routefinder finds concrete, fee-aware conversion paths through a
// peer-to-peer order book: given a spend amount, a target currency, and a
// tolerance window, it builds a routing graph from the order book, searches
// it for the best-ranked paths within a hop budget, and materialises each
// accepted candidate into a step-by-step execution plan.
//
// Subpackages:
//
//	decimal/      — fixed-scale decimal arithmetic, HALF_UP rounding
//	money/        — currency-tagged amounts and exchange rates
//	order/        — Order, Bounds, FeePolicy
//	routegraph/   — the graph model: nodes, edges, capacity segments
//	graphbuilder/ — projects an order book into a routegraph.RouteGraph
//	reachability/ — bounded-hop BFS precheck
//	guard/        — expansion/visited-state/time budgets for a search run
//	search/       — best-first path search with tolerance-frontier pruning
//	materialize/  — resolves a candidate edge sequence into concrete fills
//	planservice/  — the public entry point: FindBestPlans
package routefinder
