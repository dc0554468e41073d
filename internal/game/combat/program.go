package combat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// meleeProgram walks towards the nearest reachable front-line enemy and
// strikes it once adjacent.
type meleeProgram struct {
	unit  *army.Unit
	field *Field
}

func (p *meleeProgram) Attack(ctx context.Context) (*army.Unit, error) {
	self := p.unit
	var (
		target *army.Unit
		route  grid.Path
	)
	for _, c := range p.field.FrontLine(self) {
		path := p.field.PathTo(self, c)
		if !path.Found() {
			continue
		}
		if target == nil || len(path) < len(route) {
			target, route = c, path
		}
	}
	if target == nil {
		p.field.logger.Debug("no reachable target, holding", zap.String("unit", self.Name))
		return nil, nil
	}

	return p.field.engage(self, target, route)
}

// rangedProgram shoots the weakest living enemy without moving.
type rangedProgram struct {
	unit  *army.Unit
	field *Field
}

func (p *rangedProgram) Attack(ctx context.Context) (*army.Unit, error) {
	var target *army.Unit
	for _, c := range p.field.Enemies(p.unit).Alive() {
		if target == nil || c.Health < target.Health {
			target = c
		}
	}
	if target == nil {
		return nil, nil
	}
	if _, err := p.field.resolver.Strike(p.unit, target); err != nil {
		return nil, err
	}
	return target, nil
}

// scriptProgram lets a Lua program pick among the living enemies. Melee
// units walk to the chosen target and strike once adjacent; everyone else
// strikes from where they stand.
type scriptProgram struct {
	unit  *army.Unit
	field *Field
	name  string
}

func (p *scriptProgram) Attack(ctx context.Context) (*army.Unit, error) {
	enemies := p.field.Enemies(p.unit).Alive()
	if len(enemies) == 0 {
		return nil, nil
	}
	infos := make([]scripting.UnitInfo, len(enemies))
	for i, e := range enemies {
		infos[i] = unitInfo(e)
	}
	idx, ok, err := p.field.Scripts.ChooseTarget(p.name, unitInfo(p.unit), infos)
	if err != nil {
		return nil, fmt.Errorf("%q choosing target: %w", p.unit.Name, err)
	}
	if !ok {
		return nil, nil
	}
	target := enemies[idx]
	if p.unit.AttackType == army.ProgramMelee {
		route := p.field.PathTo(p.unit, target)
		if !route.Found() {
			p.field.logger.Debug("scripted target unreachable, holding",
				zap.String("unit", p.unit.Name),
				zap.String("target", target.Name),
			)
			return nil, nil
		}
		return p.field.engage(p.unit, target, route)
	}
	if _, err := p.field.resolver.Strike(p.unit, target); err != nil {
		return nil, err
	}
	return target, nil
}

func unitInfo(u *army.Unit) scripting.UnitInfo {
	return scripting.UnitInfo{
		Name:       u.Name,
		Type:       u.Type,
		Health:     u.Health,
		MaxHealth:  u.MaxHealth,
		BaseAttack: u.BaseAttack,
		AttackType: u.AttackType,
		X:          u.Pos.X,
		Y:          u.Pos.Y,
	}
}
