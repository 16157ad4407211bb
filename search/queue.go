package search

import (
	"container/heap"

	"github.com/p2pflow/routefinder/decimal"
)

// queueItem wraps a SearchState for the container/heap min-priority queue,
// ordered by (Cost, Hops, Signature, insertionIndex) per spec §4.4.
type queueItem struct {
	state *SearchState
	index int
}

// priorityQueue is a container/heap min-heap over queueItem, grounded on
// the teacher's dijkstra package's heap usage.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i].state, pq[j].state
	if c := decimal.Compare(a.Cost, b.Cost, decimal.CanonicalScale); c != 0 {
		return c < 0
	}
	if a.Hops != b.Hops {
		return a.Hops < b.Hops
	}
	if a.Signature != b.Signature {
		return a.Signature < b.Signature
	}

	return a.insertionIndex < b.insertionIndex
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]

	return item
}

var _ heap.Interface = (*priorityQueue)(nil)
