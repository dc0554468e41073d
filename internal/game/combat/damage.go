package combat

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Resolver computes and applies attack damage.
type Resolver struct {
	roller *dice.Roller
}

// NewResolver returns a Resolver rolling damage dice with roller. roller may
// be nil when no unit carries a Damage expression.
func NewResolver(roller *dice.Roller) *Resolver {
	return &Resolver{roller: roller}
}

// Damage returns the damage attacker deals to target:
//
//	round((BaseAttack + roll(Damage)) * AttackBonuses[target.Type] / DefenceBonuses[attacker.AttackType])
//
// Missing bonuses count as 1. The result is at least 1 so every attack wears
// the target down.
func (r *Resolver) Damage(attacker, target *army.Unit) (int, error) {
	base := float64(attacker.BaseAttack)
	if attacker.Damage != "" {
		if r.roller == nil {
			return 0, fmt.Errorf("rolling %q for %q: no dice roller configured", attacker.Damage, attacker.Name)
		}
		res, err := r.roller.RollExpr(attacker.Damage)
		if err != nil {
			return 0, fmt.Errorf("rolling damage for %q: %w", attacker.Name, err)
		}
		base += float64(res.Total())
	}

	mult := bonus(attacker.AttackBonuses, target.Type)
	def := bonus(target.DefenceBonuses, attacker.AttackType)
	if def <= 0 {
		def = 1
	}

	dmg := int(math.Round(base * mult / def))
	return max(dmg, 1), nil
}

// Strike applies Damage to target and returns the amount dealt.
func (r *Resolver) Strike(attacker, target *army.Unit) (int, error) {
	dmg, err := r.Damage(attacker, target)
	if err != nil {
		return 0, err
	}
	target.TakeDamage(dmg)
	return dmg, nil
}

func bonus(table map[string]float64, key string) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return 1
}
