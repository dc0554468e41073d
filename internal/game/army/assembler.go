package army

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// ErrNoDeploymentSpace is returned when an army has more units than free
// deployment cells.
var ErrNoDeploymentSpace = errors.New("army: no free deployment cell")

// DefaultMaxPerType caps how many clones of one template an army may field.
const DefaultMaxPerType = 11

// DefaultDeployWidth is the number of edge columns an army deploys into.
const DefaultDeployWidth = 3

// Assembler builds armies from catalog templates under a point budget.
type Assembler struct {
	Bounds      grid.Bounds
	DeployWidth int
	MaxPerType  int
	// Mirror deploys on the right edge instead of the left one.
	Mirror bool

	src dice.Source
}

// NewAssembler returns an Assembler placing units with src.
//
// Precondition: src must be non-nil.
func NewAssembler(src dice.Source, b grid.Bounds) *Assembler {
	return &Assembler{
		Bounds:      b,
		DeployWidth: DefaultDeployWidth,
		MaxPerType:  DefaultMaxPerType,
		src:         src,
	}
}

// Generate builds an army from templates spending at most maxPoints.
//
// Templates are taken in descending efficiency order; each contributes
// min(MaxPerType, remaining/Cost) clones named "<Name> <n>". Every clone is
// placed on a distinct cell drawn from a shuffle of the deployment columns.
// The templates slice is not modified.
//
// Postcondition: army.Points <= maxPoints; no two units share a cell.
func (a *Assembler) Generate(templates []*Template, maxPoints int) (*Army, error) {
	ordered := slices.Clone(templates)
	slices.SortStableFunc(ordered, func(x, y *Template) int {
		ex, ey := x.Efficiency(), y.Efficiency()
		switch {
		case ex > ey:
			return -1
		case ex < ey:
			return 1
		}
		return 0
	})

	cells := a.deploymentCells()
	next := 0
	out := &Army{}

	for _, tmpl := range ordered {
		n := min(a.MaxPerType, (maxPoints-out.Points)/tmpl.Cost)
		for i := 0; i < n; i++ {
			if next >= len(cells) {
				return nil, fmt.Errorf("placing %s %d: %w", tmpl.Name, i+1, ErrNoDeploymentSpace)
			}
			out.Units = append(out.Units, clone(tmpl, i, cells[next]))
			out.Points += tmpl.Cost
			next++
		}
	}
	return out, nil
}

// deploymentCells returns every deployment cell in a shuffled order.
func (a *Assembler) deploymentCells() []grid.Edge {
	width := min(a.DeployWidth, a.Bounds.Width)
	cells := make([]grid.Edge, 0, width*a.Bounds.Height)
	for x := 0; x < width; x++ {
		col := x
		if a.Mirror {
			col = a.Bounds.Width - 1 - x
		}
		for y := 0; y < a.Bounds.Height; y++ {
			cells = append(cells, grid.Edge{X: col, Y: y})
		}
	}
	dice.Shuffle(a.src, len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	return cells
}

func clone(t *Template, index int, at grid.Edge) *Unit {
	kind := t.Program
	if kind == "" {
		kind = ProgramMelee
	}
	return &Unit{
		ID:             uuid.New().String(),
		Name:           fmt.Sprintf("%s %d", t.Name, index+1),
		Type:           t.Type,
		Health:         t.Health,
		MaxHealth:      t.Health,
		BaseAttack:     t.BaseAttack,
		Cost:           t.Cost,
		AttackType:     t.AttackType,
		AttackBonuses:  maps.Clone(t.AttackBonuses),
		DefenceBonuses: maps.Clone(t.DefenceBonuses),
		Speed:          t.Speed,
		Damage:         t.Damage,
		ProgramKind:    kind,
		Pos:            at,
	}
}
