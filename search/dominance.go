package search

import (
	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/guard"
)

// domRecord is the single non-dominated (cost, hops) record a registry
// keeps per signature.
type domRecord struct {
	cost decimal.Decimal
	hops int
}

// dominates reports whether (costA, hopsA) dominates (costB, hopsB): no
// worse on both fields, strictly better on at least one.
func dominates(costA decimal.Decimal, hopsA int, costB decimal.Decimal, hopsB int) bool {
	c := decimal.Compare(costA, costB, decimal.CanonicalScale)
	if c > 0 || hopsA > hopsB {
		return false
	}

	return c < 0 || hopsA < hopsB
}

// registry is the signature-keyed dominance table described in spec §4.4:
// at most one non-dominated (cost, hops) record survives per signature.
type registry struct {
	records map[string]domRecord
}

func newRegistry() *registry {
	return &registry{records: make(map[string]domRecord)}
}

// tryRegister applies the registration rules on insertion: a brand-new
// signature is always stored (and counts against the guard's visited-state
// ceiling); a new record that dominates the prior one overwrites it without
// consuming the ceiling (the registry did not grow); a dominated or
// incomparable new record is dropped, prior retained ("first-seen wins").
// Returns whether the candidate state should be enqueued.
func (r *registry) tryRegister(sig string, cost decimal.Decimal, hops int, g *guard.Guard) bool {
	prior, ok := r.records[sig]
	if !ok {
		if g != nil && !g.RegisterVisitedState() {
			return false
		}
		r.records[sig] = domRecord{cost: cost, hops: hops}

		return true
	}
	if dominates(cost, hops, prior.cost, prior.hops) {
		r.records[sig] = domRecord{cost: cost, hops: hops}

		return true
	}

	return false
}

// isStale reports whether a popped state's (cost, hops) no longer matches
// the registry's current, possibly-since-improved record for its
// signature — the lazy decrease-key check that lets an overtaken queue
// entry be skipped without a heap decrease-key operation.
func (r *registry) isStale(sig string, cost decimal.Decimal, hops int) bool {
	cur, ok := r.records[sig]
	if !ok {
		return true
	}
	if decimal.Compare(cur.cost, cost, decimal.CanonicalScale) == 0 && cur.hops == hops {
		return false
	}

	return dominates(cur.cost, cur.hops, cost, hops)
}

// size is the number of distinct signatures currently registered.
func (r *registry) size() int { return len(r.records) }
