package router

// queueItem is one frontier entry in the search priority queue.
type queueItem struct {
	node     int64
	state    searchState
	priority float64
}

// queue is a min-heap over priority, then the cost → hops → risk ordering so
// equal-priority pops are deterministic.
type queue []*queueItem

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].state.better(q[j].state)
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
