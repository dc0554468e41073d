package combat

import (
	"container/heap"

	"github.com/cory-johannsen/skirmish/internal/game/army"
)

// turnItem is one queued unit with its insertion order.
type turnItem struct {
	unit *army.Unit
	seq  int
}

// turnQueue orders units by descending BaseAttack; equal attack keeps the
// order the units were pushed in.
type turnQueue []turnItem

func (q turnQueue) Len() int { return len(q) }

func (q turnQueue) Less(i, j int) bool {
	if q[i].unit.BaseAttack != q[j].unit.BaseAttack {
		return q[i].unit.BaseAttack > q[j].unit.BaseAttack
	}
	return q[i].seq < q[j].seq
}

func (q turnQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *turnQueue) Push(x any) { *q = append(*q, x.(turnItem)) }

func (q *turnQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = turnItem{}
	*q = old[:n-1]
	return it
}

// newTurnQueue snapshots units into a round-scoped queue.
func newTurnQueue(units []*army.Unit) *turnQueue {
	q := make(turnQueue, len(units))
	for i, u := range units {
		q[i] = turnItem{unit: u, seq: i}
	}
	heap.Init(&q)
	return &q
}

// next pops the next unit still alive, discarding dead entries. It returns
// nil once the queue is drained.
func (q *turnQueue) next() *army.Unit {
	for q.Len() > 0 {
		it := heap.Pop(q).(turnItem)
		if it.unit.Alive() {
			return it.unit
		}
	}
	return nil
}
