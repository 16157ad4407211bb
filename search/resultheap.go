package search

import (
	"container/heap"

	"github.com/p2pflow/routefinder/ports"
)

// resultEntry pairs a CandidatePath with the PathOrderKey it was ranked
// by, since RouteSignature/insertion order are computed once at insertion.
type resultEntry struct {
	candidate CandidatePath
	key       ports.PathOrderKey
}

// resultHeap is a bounded max-heap of size resultLimit ordered by a
// PathOrdering: the worst-ranked candidate sits at the root so it can be
// evicted in O(log n) when a better candidate arrives and the heap is
// already full. Final output is produced by draining and reversing, which
// yields ascending (best-first) order.
type resultHeap struct {
	entries  []resultEntry
	ordering ports.PathOrdering
}

func newResultHeap(ordering ports.PathOrdering) *resultHeap {
	if ordering == nil {
		ordering = ports.DefaultOrdering{}
	}

	return &resultHeap{ordering: ordering}
}

func (h *resultHeap) Len() int { return len(h.entries) }

// Less makes the WORST entry (per ordering) sort first, so it is the root
// a max-heap can evict.
func (h *resultHeap) Less(i, j int) bool {
	return h.ordering.Compare(h.entries[i].key, h.entries[j].key) > 0
}

func (h *resultHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *resultHeap) Push(x any) { h.entries = append(h.entries, x.(resultEntry)) }

func (h *resultHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]

	return e
}

var _ heap.Interface = (*resultHeap)(nil)

// Offer inserts candidate keyed by key, evicting the current worst entry
// if the heap already holds limit entries and the new candidate ranks
// better than that worst entry.
func (h *resultHeap) Offer(candidate CandidatePath, key ports.PathOrderKey, limit int) {
	if limit <= 0 {
		return
	}
	if h.Len() < limit {
		heap.Push(h, resultEntry{candidate: candidate, key: key})

		return
	}
	if h.ordering.Compare(key, h.entries[0].key) >= 0 {
		return
	}
	h.entries[0] = resultEntry{candidate: candidate, key: key}
	heap.Fix(h, 0)
}

// Sorted drains the heap into ascending (best-first) order.
func (h *resultHeap) Sorted() []CandidatePath {
	n := h.Len()
	out := make([]CandidatePath, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(resultEntry).candidate
	}

	return out
}
