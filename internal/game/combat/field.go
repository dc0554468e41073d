package combat

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// DefaultFlankWidth is the number of edge columns a flank spans.
const DefaultFlankWidth = 3

// Field is the shared battlefield: the two armies, the board, and the
// collaborators attack programs consult. Left deploys on the low-x edge and
// Right on the high-x edge.
type Field struct {
	Left       *army.Army
	Right      *army.Army
	Bounds     grid.Bounds
	FlankWidth int
	// Scripts serves "script:<name>" programs; nil disables them.
	Scripts *scripting.Manager

	pathfinder *grid.Pathfinder
	resolver   *Resolver
	logger     *zap.Logger
	left       map[*army.Unit]bool
}

// NewField builds a Field over left and right.
//
// Precondition: all arguments non-nil; b has positive dimensions.
func NewField(left, right *army.Army, b grid.Bounds, resolver *Resolver, logger *zap.Logger) *Field {
	f := &Field{
		Left:       left,
		Right:      right,
		Bounds:     b,
		FlankWidth: DefaultFlankWidth,
		pathfinder: grid.NewPathfinder(b),
		resolver:   resolver,
		logger:     logger,
		left:       make(map[*army.Unit]bool, len(left.Units)),
	}
	for _, u := range left.Units {
		f.left[u] = true
	}
	return f
}

// IsLeft reports whether u belongs to the left army.
func (f *Field) IsLeft(u *army.Unit) bool { return f.left[u] }

// Enemies returns the army opposing u.
func (f *Field) Enemies(u *army.Unit) *army.Army {
	if f.IsLeft(u) {
		return f.Right
	}
	return f.Left
}

// Occupied returns the cells of every living unit on the field except
// mover and target. It is rebuilt on every call.
func (f *Field) Occupied(mover, target *army.Unit) grid.Occupied {
	occ := make(grid.Occupied)
	for _, a := range []*army.Army{f.Left, f.Right} {
		for _, u := range a.Units {
			if u == mover || u == target || !u.Alive() {
				continue
			}
			occ[u.Pos] = struct{}{}
		}
	}
	return occ
}

// PathTo returns the shortest route from mover to target around every other
// living unit. The target's own cell is always walkable.
func (f *Field) PathTo(mover, target *army.Unit) grid.Path {
	return f.pathfinder.FindPath(mover.Pos, target.Pos, f.Occupied(mover, target))
}

// FrontLine returns the enemy units u may engage in melee: the flank-most
// living unit of every row of the enemy army. When no enemy stands inside its
// flank band any more, every living enemy is eligible.
func (f *Field) FrontLine(u *army.Unit) []*army.Unit {
	enemy := f.Enemies(u)
	rows := army.Rows(enemy.Units, f.Bounds.Height)
	front := SuitableUnits(rows, !f.IsLeft(u), f.Bounds, f.FlankWidth)
	if len(front) == 0 {
		return enemy.Alive()
	}
	return front
}

// Bind attaches an attack program to every unit of both armies according
// to its ProgramKind.
func (f *Field) Bind() error {
	for _, a := range []*army.Army{f.Left, f.Right} {
		for _, u := range a.Units {
			p, err := f.programFor(u)
			if err != nil {
				return fmt.Errorf("binding %q: %w", u.Name, err)
			}
			u.Program = p
		}
	}
	return nil
}

func (f *Field) programFor(u *army.Unit) (army.Program, error) {
	switch kind := u.ProgramKind; {
	case kind == "" || kind == army.ProgramMelee:
		return &meleeProgram{unit: u, field: f}, nil
	case kind == army.ProgramRanged:
		return &rangedProgram{unit: u, field: f}, nil
	case strings.HasPrefix(kind, army.ProgramScriptPrefix):
		name := strings.TrimPrefix(kind, army.ProgramScriptPrefix)
		if f.Scripts == nil || !f.Scripts.Has(name) {
			return nil, fmt.Errorf("scripted program %q is not loaded", name)
		}
		return &scriptProgram{unit: u, field: f, name: name}, nil
	default:
		return nil, fmt.Errorf("unknown program kind %q", kind)
	}
}

// engage advances u along route and strikes target if that leaves them
// adjacent. A nil target means u only moved.
func (f *Field) engage(u, target *army.Unit, route grid.Path) (*army.Unit, error) {
	f.advance(u, route)
	if !u.Pos.Adjacent(target.Pos) {
		return nil, nil
	}
	if _, err := f.resolver.Strike(u, target); err != nil {
		return nil, err
	}
	return target, nil
}

// advance moves u along path towards its last cell, stopping one cell short
// of it and after at most u.Speed steps (0 = unlimited).
func (f *Field) advance(u *army.Unit, path grid.Path) {
	stop := len(path) - 2
	if u.Speed > 0 && u.Speed < stop {
		stop = u.Speed
	}
	if stop <= 0 {
		return
	}
	from := u.Pos
	u.Pos = path[stop]
	f.logger.Debug("unit moved",
		zap.String("unit", u.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", u.Pos),
		zap.Int("steps", stop),
	)
}
