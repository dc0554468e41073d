package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// SuitableUnits returns, for every row, the living unit that can be engaged
// from the opposing side of the board. For the left army (leftArmyTarget)
// that is the unit with the greatest x inside columns [0, flankWidth); for
// the right army it is the unit with the smallest x inside columns
// [Width-flankWidth, Width). Rows without such a unit contribute nothing;
// ties keep the first unit of the row.
func SuitableUnits(rows [][]*army.Unit, leftArmyTarget bool, b grid.Bounds, flankWidth int) []*army.Unit {
	lo, hi := 0, flankWidth-1
	if !leftArmyTarget {
		lo, hi = b.Width-flankWidth, b.Width-1
	}

	var out []*army.Unit
	for _, row := range rows {
		var best *army.Unit
		for _, u := range row {
			if u == nil || !u.Alive() || u.Pos.X < lo || u.Pos.X > hi {
				continue
			}
			switch {
			case best == nil:
				best = u
			case leftArmyTarget && u.Pos.X > best.Pos.X:
				best = u
			case !leftArmyTarget && u.Pos.X < best.Pos.X:
				best = u
			}
		}
		if best != nil {
			out = append(out, best)
		}
	}
	return out
}
