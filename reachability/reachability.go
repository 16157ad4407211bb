// Package reachability provides a bounded breadth-first precheck over a
// RouteGraph's currencies, ignoring capacity: it answers "is target within
// maxHops edges of source" cheaply, before the full cost-aware search
// spends any expansions. Grounded on the teacher's bfs package (MaxDepth
// bound, OnVisit hook shape, ErrStartVertexNotFound/ErrGraphNil sentinels).
//
// Errors:
//
//	ErrSourceNotFound - source is not a node in the graph.
//	ErrNilGraph        - g is nil.
package reachability

import (
	"fmt"

	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/routegraph"
)

var (
	// ErrSourceNotFound indicates source has no node in the graph.
	ErrSourceNotFound = fmt.Errorf("%w: reachability: source currency not found", faults.ErrInvalidInput)

	// ErrNilGraph indicates a nil *routegraph.RouteGraph was passed in.
	ErrNilGraph = fmt.Errorf("%w: reachability: graph is nil", faults.ErrInvalidInput)
)

// Reachable reports whether target can be reached from source by following
// at most maxHops edges, ignoring every edge's capacity — a structural,
// not cost-aware, check. A negative maxHops is treated as zero hops
// (source == target only).
func Reachable(g *routegraph.RouteGraph, source, target string, maxHops int) (bool, error) {
	if g == nil {
		return false, ErrNilGraph
	}
	if _, ok := g.Node(source); !ok {
		return false, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if maxHops < 0 {
		maxHops = 0
	}
	if source == target {
		return true, nil
	}

	visited := map[string]bool{source: true}
	frontier := []string{source}
	for hop := 0; hop < maxHops; hop++ {
		var next []string
		for _, cur := range frontier {
			node, ok := g.Node(cur)
			if !ok {
				continue
			}
			for _, e := range node.Edges {
				if visited[e.To] {
					continue
				}
				if e.To == target {
					return true, nil
				}
				visited[e.To] = true
				next = append(next, e.To)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return false, nil
}

// MinHops returns the fewest edges needed to reach target from source,
// capped at maxHops (returns (maxHops+1, false) if unreachable within that
// bound, matching BFS level-by-level distance semantics).
func MinHops(g *routegraph.RouteGraph, source, target string, maxHops int) (int, bool, error) {
	if g == nil {
		return 0, false, ErrNilGraph
	}
	if _, ok := g.Node(source); !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if source == target {
		return 0, true, nil
	}
	if maxHops < 0 {
		maxHops = 0
	}

	visited := map[string]bool{source: true}
	frontier := []string{source}
	for hop := 1; hop <= maxHops; hop++ {
		var next []string
		for _, cur := range frontier {
			node, ok := g.Node(cur)
			if !ok {
				continue
			}
			for _, e := range node.Edges {
				if visited[e.To] {
					continue
				}
				if e.To == target {
					return hop, true, nil
				}
				visited[e.To] = true
				next = append(next, e.To)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return maxHops + 1, false, nil
}
