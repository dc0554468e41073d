// Package battle wires army generation, program binding, scheduling and
// optional report persistence into one simulation run.
package battle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// OutcomeAborted is the report outcome of a battle that ended with an error.
const OutcomeAborted = "aborted"

const finishTimeout = 5 * time.Second

// Options controls one battle.
type Options struct {
	Bounds          grid.Bounds
	DeployWidth     int
	FlankWidth      int
	MaxUnitsPerType int
	PointBudget     int
	Pace            time.Duration
	MaxRounds       int
	// Seed is recorded with the report; the randomness itself comes from
	// the roller's source.
	Seed uint64
}

// OptionsFromConfig converts the battle configuration section.
func OptionsFromConfig(cfg config.BattleConfig) Options {
	return Options{
		Bounds:          grid.Bounds{Width: cfg.GridWidth, Height: cfg.GridHeight},
		DeployWidth:     cfg.DeployWidth,
		FlankWidth:      cfg.FlankWidth,
		MaxUnitsPerType: cfg.MaxUnitsPerType,
		PointBudget:     cfg.PointBudget,
		Pace:            cfg.ActionDelay,
		MaxRounds:       cfg.MaxRounds,
		Seed:            cfg.Seed,
	}
}

// ReportStore persists battle reports. postgres.ReportRepository implements it.
type ReportStore interface {
	postgres.EventAppender
	Begin(ctx context.Context, b postgres.Battle) (postgres.Battle, error)
	Finish(ctx context.Context, id uuid.UUID, rounds int, outcome string) error
}

// Result describes a finished (or aborted) battle.
type Result struct {
	// ID tags the battle's log lines and, when Reported, its report.
	ID       uuid.UUID
	Reported bool
	Left     *army.Army
	Right    *army.Army
	Rounds   int
	Outcome  combat.Outcome
	Elapsed  time.Duration
}

// Runner runs battles between two armies generated from one catalog.
type Runner struct {
	opts      Options
	templates []*army.Template
	scripts   *scripting.Manager
	roller    *dice.Roller
	reports   ReportStore
	logger    *zap.Logger
}

// NewRunner creates a Runner. scripts and reports may be nil.
//
// Precondition: templates non-empty; roller and logger non-nil.
func NewRunner(opts Options, templates []*army.Template, scripts *scripting.Manager, roller *dice.Roller, reports ReportStore, logger *zap.Logger) *Runner {
	return &Runner{
		opts:      opts,
		templates: templates,
		scripts:   scripts,
		roller:    roller,
		reports:   reports,
		logger:    logger,
	}
}

// Run generates both armies, binds their programs and fights the battle.
// A partially fought battle is returned alongside a scheduler error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	left, err := r.assemble(false)
	if err != nil {
		return nil, fmt.Errorf("assembling left army: %w", err)
	}
	right, err := r.assemble(true)
	if err != nil {
		return nil, fmt.Errorf("assembling right army: %w", err)
	}
	r.logger.Info("armies assembled",
		zap.Int("left_units", len(left.Units)),
		zap.Int("left_points", left.Points),
		zap.Int("right_units", len(right.Units)),
		zap.Int("right_points", right.Points),
	)

	res := &Result{ID: uuid.New(), Left: left, Right: right}
	logger := observability.WithBattle(r.logger, res.ID.String(), r.opts.Seed)

	field := combat.NewField(left, right, r.opts.Bounds, combat.NewResolver(r.roller), logger)
	if r.opts.FlankWidth > 0 {
		field.FlankWidth = r.opts.FlankWidth
	}
	field.Scripts = r.scripts
	if err := field.Bind(); err != nil {
		return nil, err
	}

	logs := combat.MultiLog{combat.NewZapLog(logger)}
	if r.reports != nil {
		b, err := r.reports.Begin(ctx, postgres.Battle{
			ID:          res.ID,
			Seed:        r.opts.Seed,
			GridWidth:   r.opts.Bounds.Width,
			GridHeight:  r.opts.Bounds.Height,
			SideAUnits:  len(left.Units),
			SideBUnits:  len(right.Units),
			SideAPoints: left.Points,
			SideBPoints: right.Points,
		})
		if err != nil {
			return nil, fmt.Errorf("starting battle report: %w", err)
		}
		res.Reported = true
		logs = append(logs, postgres.NewReportLog(r.reports, b.ID))
	}

	sched := combat.NewScheduler(logs, logger)
	sched.Pace = r.opts.Pace
	sched.MaxRounds = r.opts.MaxRounds
	simErr := sched.Simulate(ctx, left, right)

	res.Rounds = sched.Rounds()
	res.Outcome = combat.Decide(left, right)
	res.Elapsed = time.Since(start)
	if simErr != nil {
		if res.Reported {
			if err := r.finishAborted(ctx, res); err != nil {
				return res, errors.Join(simErr, err)
			}
		}
		return res, simErr
	}

	if res.Reported {
		if err := r.reports.Finish(ctx, res.ID, res.Rounds, res.Outcome.String()); err != nil {
			return res, fmt.Errorf("finishing battle report: %w", err)
		}
	}
	return res, nil
}

// finishAborted closes the report of a battle the scheduler gave up on. It
// still runs when ctx has been cancelled.
func (r *Runner) finishAborted(ctx context.Context, res *Result) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := r.reports.Finish(ctx, res.ID, res.Rounds, OutcomeAborted); err != nil {
		return fmt.Errorf("finishing aborted battle report: %w", err)
	}
	return nil
}

func (r *Runner) assemble(mirror bool) (*army.Army, error) {
	asm := army.NewAssembler(r.roller.Source(), r.opts.Bounds)
	if r.opts.DeployWidth > 0 {
		asm.DeployWidth = r.opts.DeployWidth
	}
	if r.opts.MaxUnitsPerType > 0 {
		asm.MaxPerType = r.opts.MaxUnitsPerType
	}
	asm.Mirror = mirror
	return asm.Generate(r.templates, r.opts.PointBudget)
}

// WriteSummary prints the outcome and the survivors of both sides.
func (res *Result) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s after %d rounds [%s]\n", res.Outcome, res.Rounds, res.Elapsed.Round(time.Millisecond)); err != nil {
		return err
	}
	if res.Reported {
		if _, err := fmt.Fprintf(w, "report %s\n", res.ID); err != nil {
			return err
		}
	}
	for _, side := range []struct {
		label string
		army  *army.Army
	}{{"left", res.Left}, {"right", res.Right}} {
		alive := side.army.Alive()
		if _, err := fmt.Fprintf(w, "%s: %d/%d alive\n", side.label, len(alive), len(side.army.Units)); err != nil {
			return err
		}
		for _, u := range alive {
			if _, err := fmt.Fprintf(w, "  %-12s %3d/%-3d at %s\n", u.Name, u.Health, u.MaxHealth, u.Pos); err != nil {
				return err
			}
		}
	}
	return nil
}
