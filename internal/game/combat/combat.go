// Package combat runs a battle between two armies: it binds an attack
// program to every unit, schedules attacks round by round and resolves
// damage.
package combat

import (
	"errors"

	"github.com/cory-johannsen/skirmish/internal/game/army"
)

// ErrRoundLimit is returned by Simulate when Scheduler.MaxRounds is reached
// before either side is eliminated.
var ErrRoundLimit = errors.New("combat: round limit reached")

// Outcome interprets the survivors of a battle.
type Outcome int

const (
	// Undecided means both sides still have living units.
	Undecided Outcome = iota
	SideAWins
	SideBWins
	// MutualDestruction means both sides were eliminated.
	MutualDestruction
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Undecided:
		return "undecided"
	case SideAWins:
		return "side A wins"
	case SideBWins:
		return "side B wins"
	case MutualDestruction:
		return "mutual destruction"
	default:
		return "unknown"
	}
}

// Decide reports the outcome implied by the living units of a and b.
func Decide(a, b *army.Army) Outcome {
	aDown, bDown := a.Defeated(), b.Defeated()
	switch {
	case aDown && bDown:
		return MutualDestruction
	case bDown:
		return SideAWins
	case aDown:
		return SideBWins
	default:
		return Undecided
	}
}
