// Package ports collects the small interfaces the routing core consumes
// but never implements: order admission filtering and candidate-path
// ordering. Both mirror the teacher's hook/option shape (bfs.BFSOptions'
// OnVisit and FilterNeighbor callbacks) generalized from a single function
// value to a named, testable interface — callers get a type they can unit
// test in isolation rather than an anonymous closure.
package ports

import (
	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/order"
)

// OrderFilter admits or rejects an Order before graphbuilder projects it
// into an edge. A chain of filters behaves as a logical AND: an order must
// be admitted by every filter to reach the graph.
type OrderFilter interface {
	Admit(o *order.Order) bool
}

// OrderFilterFunc adapts a plain function to OrderFilter.
type OrderFilterFunc func(o *order.Order) bool

// Admit calls f(o).
func (f OrderFilterFunc) Admit(o *order.Order) bool { return f(o) }

// Chain combines filters with logical AND: an order is admitted only if
// every filter in filters admits it. An empty chain admits everything.
func Chain(filters ...OrderFilter) OrderFilter {
	return OrderFilterFunc(func(o *order.Order) bool {
		for _, f := range filters {
			if !f.Admit(o) {
				return false
			}
		}

		return true
	})
}

// PathOrderKey is the tuple the search and top-K driver rank candidate
// paths by. Fields are compared in declaration order: Cost ascending, Hops
// ascending, RouteSignature ascending, InsertionOrder ascending. Every
// field participates so the ordering is total — no two distinct candidates
// compare equal.
type PathOrderKey struct {
	Cost           decimal.Decimal
	Hops           int
	RouteSignature string
	InsertionOrder int
}

// PathOrdering compares two candidate-path keys, returning <0, 0, or >0 as
// a sorts before, the same as, or after b.
type PathOrdering interface {
	Compare(a, b PathOrderKey) int
}

// DefaultOrdering is the canonical PathOrdering from spec §4.6/§4.8: lower
// cost first, then fewer hops, then lexicographically smaller route
// signature, then earlier insertion order.
type DefaultOrdering struct{}

// Compare implements PathOrdering.
func (DefaultOrdering) Compare(a, b PathOrderKey) int {
	if c := decimal.Compare(a.Cost, b.Cost, -1); c != 0 {
		return c
	}
	if a.Hops != b.Hops {
		if a.Hops < b.Hops {
			return -1
		}

		return 1
	}
	if a.RouteSignature != b.RouteSignature {
		if a.RouteSignature < b.RouteSignature {
			return -1
		}

		return 1
	}
	if a.InsertionOrder != b.InsertionOrder {
		if a.InsertionOrder < b.InsertionOrder {
			return -1
		}

		return 1
	}

	return 0
}
