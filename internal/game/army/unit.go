// Package army defines units, armies and the catalog they are built from.
package army

import (
	"context"

	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Program is a unit's attack-resolution behaviour. Each call performs at most
// one attack and returns the unit it attacked, or nil when the unit only
// moved or held position.
type Program interface {
	Attack(ctx context.Context) (*Unit, error)
}

// ProgramFunc adapts a function into a Program.
type ProgramFunc func(ctx context.Context) (*Unit, error)

// Attack calls f.
func (f ProgramFunc) Attack(ctx context.Context) (*Unit, error) { return f(ctx) }

// Unit is one combatant instance.
type Unit struct {
	ID         string
	Name       string
	Type       string
	Health     int
	MaxHealth  int
	BaseAttack int
	Cost       int
	AttackType string
	// AttackBonuses multiplies outgoing damage, keyed by target unit type.
	AttackBonuses map[string]float64
	// DefenceBonuses divides incoming damage, keyed by attacker attack type.
	DefenceBonuses map[string]float64
	// Speed caps the cells moved per action; 0 means unlimited.
	Speed int
	// Damage is an optional dice expression added to BaseAttack.
	Damage string
	// ProgramKind names the attack program bound to this unit ("melee",
	// "ranged" or "script:<name>").
	ProgramKind string
	Pos         grid.Edge
	Program     Program
}

// Alive reports whether Health > 0.
func (u *Unit) Alive() bool { return u.Health > 0 }

// TakeDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0.
func (u *Unit) TakeDamage(amount int) {
	u.Health -= amount
	if u.Health < 0 {
		u.Health = 0
	}
}

// Army owns an ordered collection of units and the points spent on them.
// Dead units are never removed.
type Army struct {
	Units  []*Unit
	Points int
}

// Alive returns the living units in collection order.
func (a *Army) Alive() []*Unit {
	out := make([]*Unit, 0, len(a.Units))
	for _, u := range a.Units {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// Defeated reports whether no unit of the army is alive.
func (a *Army) Defeated() bool {
	for _, u := range a.Units {
		if u.Alive() {
			return false
		}
	}
	return true
}

// Rows groups units by their y coordinate; row i holds the units with
// Pos.Y == i in collection order. Units outside [0,height) are dropped.
func Rows(units []*Unit, height int) [][]*Unit {
	rows := make([][]*Unit, height)
	for _, u := range units {
		if u.Pos.Y < 0 || u.Pos.Y >= height {
			continue
		}
		rows[u.Pos.Y] = append(rows[u.Pos.Y], u)
	}
	return rows
}
