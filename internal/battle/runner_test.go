package battle_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/battle"
	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

type memStore struct {
	begun    []postgres.Battle
	events   []postgres.BattleEvent
	finished map[uuid.UUID]string
	rounds   int
}

func (m *memStore) Begin(_ context.Context, b postgres.Battle) (postgres.Battle, error) {
	m.begun = append(m.begun, b)
	return b, nil
}

func (m *memStore) AppendEvent(_ context.Context, _ uuid.UUID, ev postgres.BattleEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) Finish(_ context.Context, id uuid.UUID, rounds int, outcome string) error {
	if m.finished == nil {
		m.finished = map[uuid.UUID]string{}
	}
	m.finished[id] = outcome
	m.rounds = rounds
	return nil
}

var errFinish = errors.New("finish failed")

type failingFinishStore struct{ memStore }

func (f *failingFinishStore) Finish(context.Context, uuid.UUID, int, string) error {
	return errFinish
}

func catalog() []*army.Template {
	return []*army.Template{
		{ID: "knight", Name: "Knight", Type: "Knight", Health: 100, BaseAttack: 20, Cost: 100, AttackType: "melee", Damage: "1d6"},
		{ID: "archer", Name: "Archer", Type: "Archer", Health: 60, BaseAttack: 15, Cost: 80, AttackType: "ranged", Program: army.ProgramRanged},
	}
}

func options() battle.Options {
	return battle.Options{
		Bounds:      grid.DefaultBounds(),
		PointBudget: 600,
		MaxRounds:   1000,
		Seed:        11,
	}
}

func newRunner(t *testing.T, opts battle.Options, templates []*army.Template, scripts *scripting.Manager, store battle.ReportStore) *battle.Runner {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	roller := dice.NewLoggedRoller(dice.NewSeededSource(opts.Seed), logger)
	return battle.NewRunner(opts, templates, scripts, roller, store, logger)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := battle.OptionsFromConfig(config.BattleConfig{
		GridWidth: 15, GridHeight: 9, DeployWidth: 2, FlankWidth: 4,
		MaxUnitsPerType: 5, PointBudget: 700, MaxRounds: 50, Seed: 3,
	})
	assert.Equal(t, grid.Bounds{Width: 15, Height: 9}, opts.Bounds)
	assert.Equal(t, 2, opts.DeployWidth)
	assert.Equal(t, 4, opts.FlankWidth)
	assert.Equal(t, 5, opts.MaxUnitsPerType)
	assert.Equal(t, 700, opts.PointBudget)
	assert.Equal(t, 50, opts.MaxRounds)
	assert.Equal(t, uint64(3), opts.Seed)
}

func TestRunner_Run_RecordsReport(t *testing.T) {
	store := &memStore{}
	res, err := newRunner(t, options(), catalog(), nil, store).Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, combat.Undecided, res.Outcome)
	assert.Positive(t, res.Rounds)
	require.Len(t, store.begun, 1)
	assert.True(t, res.Reported)
	assert.Equal(t, res.ID, store.begun[0].ID)
	assert.Equal(t, uint64(11), store.begun[0].Seed)
	assert.Equal(t, len(res.Left.Units), store.begun[0].SideAUnits)
	assert.Equal(t, res.Outcome.String(), store.finished[res.ID])
	assert.Equal(t, res.Rounds, store.rounds)
	require.NotEmpty(t, store.events)
	for i, ev := range store.events {
		assert.Equal(t, i+1, ev.Seq)
	}
}

func TestRunner_Run_SameSeedSameBattle(t *testing.T) {
	run := func() *battle.Result {
		res, err := newRunner(t, options(), catalog(), nil, nil).Run(context.Background())
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.Outcome, b.Outcome)
	assert.False(t, a.Reported)
	assert.NotEqual(t, a.ID, b.ID)
	require.Len(t, b.Left.Units, len(a.Left.Units))
	for i := range a.Left.Units {
		assert.Equal(t, a.Left.Units[i].Health, b.Left.Units[i].Health)
		assert.Equal(t, a.Left.Units[i].Pos, b.Left.Units[i].Pos)
	}
}

func TestRunner_Run_ScriptedUnits(t *testing.T) {
	logger := zap.NewNop()
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(1), logger), logger, 0)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.Load("first", `
function choose_target(attacker, candidates)
  return 1
end
`))
	templates := append(catalog(), &army.Template{
		ID: "berserker", Name: "Berserker", Type: "Berserker", Health: 90, BaseAttack: 25, Cost: 120,
		AttackType: "melee", Program: "script:first",
	})
	res, err := newRunner(t, options(), templates, mgr, nil).Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, combat.Undecided, res.Outcome)
}

func TestRunner_Run_UnloadedScript(t *testing.T) {
	templates := []*army.Template{{ID: "x", Name: "X", Type: "X", Health: 1, BaseAttack: 1, Cost: 1, Program: "script:ghost"}}
	_, err := newRunner(t, options(), templates, nil, nil).Run(context.Background())
	assert.ErrorContains(t, err, "not loaded")
}

func TestRunner_Run_NoDeploymentSpace(t *testing.T) {
	opts := options()
	opts.Bounds = grid.Bounds{Width: 4, Height: 1}
	opts.DeployWidth = 1
	_, err := newRunner(t, opts, catalog(), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, army.ErrNoDeploymentSpace)
}

func TestRunner_Run_CancelledReturnsPartialResult(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newRunner(t, options(), catalog(), nil, store).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, combat.Undecided, res.Outcome)
	assert.Equal(t, battle.OutcomeAborted, store.finished[res.ID])
	assert.Equal(t, res.Rounds, store.rounds)
}

func TestRunner_Run_RoundLimit(t *testing.T) {
	store := &memStore{}
	opts := options()
	opts.MaxRounds = 1
	res, err := newRunner(t, opts, catalog(), nil, store).Run(context.Background())
	require.ErrorIs(t, err, combat.ErrRoundLimit)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, battle.OutcomeAborted, store.finished[res.ID])
	assert.Equal(t, 1, store.rounds)
}

func TestRunner_Run_AbortedReportFailureIsJoined(t *testing.T) {
	store := &failingFinishStore{}
	opts := options()
	opts.MaxRounds = 1
	_, err := newRunner(t, opts, catalog(), nil, store).Run(context.Background())
	assert.ErrorIs(t, err, combat.ErrRoundLimit)
	assert.ErrorIs(t, err, errFinish)
}

func TestResult_WriteSummary(t *testing.T) {
	res := &battle.Result{
		ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Reported: true,
		Left: &army.Army{Units: []*army.Unit{
			{Name: "Knight 1", Health: 40, MaxHealth: 100, Pos: grid.Edge{X: 3, Y: 4}},
			{Name: "Knight 2", Health: 0, MaxHealth: 100},
		}},
		Right:   &army.Army{Units: []*army.Unit{{Name: "Archer 1", Health: 0, MaxHealth: 60}}},
		Rounds:  7,
		Outcome: combat.SideAWins,
	}
	var buf bytes.Buffer
	require.NoError(t, res.WriteSummary(&buf))
	out := buf.String()
	assert.Contains(t, out, "side A wins after 7 rounds")
	assert.Contains(t, out, "report 00000000-0000-0000-0000-000000000001")
	assert.Contains(t, out, "left: 1/2 alive")
	assert.Contains(t, out, "Knight 1")
	assert.Contains(t, out, "(3,4)")
	assert.Contains(t, out, "right: 0/1 alive")
	assert.NotContains(t, out, "Knight 2")
}
