package grid

import (
	"container/heap"
	"math"
)

// directions lists the neighbour offsets in expansion order: -x, +x, -y, +y.
var directions = [4]Edge{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}

// Pathfinder computes shortest walkable routes on a fixed board.
// The zero value is unusable; Bounds must be positive in both dimensions.
type Pathfinder struct {
	Bounds Bounds
}

// NewPathfinder returns a Pathfinder for b.
//
// Precondition: b.Width > 0 and b.Height > 0.
func NewPathfinder(b Bounds) *Pathfinder {
	if b.Width <= 0 || b.Height <= 0 {
		panic("grid: NewPathfinder requires positive bounds")
	}
	return &Pathfinder{Bounds: b}
}

// FindPath returns the shortest 4-directional route from origin to target.
//
// A cell in occupied blocks movement unless it is the target itself, so an
// occupied target is still reachable. The search is uniform-cost with a
// min-priority frontier keyed by distance; entries of equal distance leave the
// frontier in insertion order, which makes the returned cell sequence a pure
// function of the inputs. The search stops when the target is popped.
//
// Postcondition: the result is empty if origin or target is off the board or
// the target cannot be reached; [origin] if origin == target; otherwise it
// starts at origin, ends at target and every step is orthogonally adjacent.
func (pf *Pathfinder) FindPath(origin, target Edge, occupied Occupied) Path {
	b := pf.Bounds
	if !b.Contains(origin) || !b.Contains(target) {
		return Path{}
	}
	if origin == target {
		return Path{origin}
	}

	n := b.Width * b.Height
	dist := make([]int, n)
	for i := range dist {
		dist[i] = math.MaxInt
	}
	visited := make([]bool, n)
	prev := make([]Edge, n)
	reached := make([]bool, n)

	dist[b.index(origin)] = 0
	f := &frontier{}
	f.push(origin, 0)

	for f.Len() > 0 {
		cur := f.pop()
		ci := b.index(cur.cell)
		if visited[ci] {
			continue
		}
		visited[ci] = true
		if cur.cell == target {
			break
		}
		for _, d := range directions {
			next := Edge{X: cur.cell.X + d.X, Y: cur.cell.Y + d.Y}
			if !pf.walkable(next, target, occupied) {
				continue
			}
			ni := b.index(next)
			nd := dist[ci] + 1
			if nd < dist[ni] {
				dist[ni] = nd
				prev[ni] = cur.cell
				reached[ni] = true
				f.push(next, nd)
			}
		}
	}

	if !reached[b.index(target)] {
		return Path{}
	}
	return pf.reconstruct(prev, origin, target)
}

func (pf *Pathfinder) walkable(e, target Edge, occupied Occupied) bool {
	if !pf.Bounds.Contains(e) {
		return false
	}
	return e == target || !occupied.Has(e)
}

// reconstruct walks predecessor links from target back to origin.
func (pf *Pathfinder) reconstruct(prev []Edge, origin, target Edge) Path {
	var rev Path
	for at := target; at != origin; at = prev[pf.Bounds.index(at)] {
		rev = append(rev, at)
	}
	rev = append(rev, origin)

	path := make(Path, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path
}

// frontierItem is one pending cell in the search frontier.
type frontierItem struct {
	cell Edge
	dist int
	seq  uint64
}

// frontier is a min-heap on (dist, seq). seq increases with every push so
// equal distances pop first-in first-out.
type frontier struct {
	items []frontierItem
	seq   uint64
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	if f.items[i].dist != f.items[j].dist {
		return f.items[i].dist < f.items[j].dist
	}
	return f.items[i].seq < f.items[j].seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) { f.items = append(f.items, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := f.items
	n := len(old)
	it := old[n-1]
	f.items = old[:n-1]
	return it
}

func (f *frontier) push(cell Edge, dist int) {
	heap.Push(f, frontierItem{cell: cell, dist: dist, seq: f.seq})
	f.seq++
}

func (f *frontier) pop() frontierItem {
	return heap.Pop(f).(frontierItem)
}
