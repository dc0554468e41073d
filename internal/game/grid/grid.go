// Package grid models the battlefield board and routes units across it.
package grid

import "fmt"

// Default board dimensions.
const (
	DefaultWidth  = 27
	DefaultHeight = 21
)

// Edge is one (x, y) cell of the board. It is a position, not an entity.
type Edge struct {
	X int
	Y int
}

// String renders the cell as "(x,y)".
func (e Edge) String() string { return fmt.Sprintf("(%d,%d)", e.X, e.Y) }

// Adjacent reports whether o is one orthogonal step away from e.
func (e Edge) Adjacent(o Edge) bool {
	return Manhattan(e, o) == 1
}

// Manhattan returns |a.X-b.X| + |a.Y-b.Y|.
func Manhattan(a, b Edge) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Bounds describes a Width × Height board with cells [0,Width) × [0,Height).
type Bounds struct {
	Width  int
	Height int
}

// DefaultBounds returns the 27 × 21 board.
func DefaultBounds() Bounds {
	return Bounds{Width: DefaultWidth, Height: DefaultHeight}
}

// Contains reports whether e lies on the board.
func (b Bounds) Contains(e Edge) bool {
	return e.X >= 0 && e.X < b.Width && e.Y >= 0 && e.Y < b.Height
}

// index maps an on-board cell to a dense slice index.
func (b Bounds) index(e Edge) int { return e.X*b.Height + e.Y }

// Occupied is the set of cells held by obstacle units for one path query.
// It is built fresh per query and treated as read-only afterwards.
type Occupied map[Edge]struct{}

// NewOccupied builds an Occupied set from the given cells.
func NewOccupied(cells ...Edge) Occupied {
	o := make(Occupied, len(cells))
	for _, c := range cells {
		o[c] = struct{}{}
	}
	return o
}

// Has reports whether e is occupied. A nil set holds nothing.
func (o Occupied) Has(e Edge) bool {
	_, ok := o[e]
	return ok
}

// Path is an ordered walk from origin to target, both inclusive.
// An empty Path means no route exists.
type Path []Edge

// Found reports whether the path is non-empty.
func (p Path) Found() bool { return len(p) > 0 }

// Steps returns the number of moves in the path, or -1 if no path was found.
func (p Path) Steps() int {
	if len(p) == 0 {
		return -1
	}
	return len(p) - 1
}
