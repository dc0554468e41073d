package combat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// recorder collects every event.
type recorder struct {
	events []combat.Event
}

func (r *recorder) Record(_ context.Context, ev combat.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) attacksBy(u *army.Unit) int {
	n := 0
	for _, ev := range r.events {
		if ev.Attacker == u {
			n++
		}
	}
	return n
}

// hitFirst binds u to a program hitting the first living unit of enemy for
// dmg points.
func hitFirst(u *army.Unit, enemy *army.Army, dmg int) {
	u.Program = army.ProgramFunc(func(context.Context) (*army.Unit, error) {
		alive := enemy.Alive()
		if len(alive) == 0 {
			return nil, nil
		}
		alive[0].TakeDamage(dmg)
		return alive[0], nil
	})
}

func TestSimulate_RoundFairness(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 10, Health: 100}
	b5 := &army.Unit{Name: "b5", BaseAttack: 5, Health: 10}
	b3 := &army.Unit{Name: "b3", BaseAttack: 3, Health: 100}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b5, b3}}
	hitFirst(a, sideB, 10)
	hitFirst(b5, sideA, 1)
	hitFirst(b3, sideA, 1)

	rec := &recorder{}
	s := combat.NewScheduler(rec, zap.NewNop())
	s.MaxRounds = 1
	err := s.Simulate(context.Background(), sideA, sideB)
	require.ErrorIs(t, err, combat.ErrRoundLimit)
	assert.Equal(t, 1, s.Rounds())

	require.Len(t, rec.events, 2)
	assert.Equal(t, combat.Event{Round: 1, Attacker: a, Target: b5}, rec.events[0])
	assert.Equal(t, combat.Event{Round: 1, Attacker: b3, Target: a}, rec.events[1])
	assert.Zero(t, rec.attacksBy(b5))
	assert.Equal(t, 99, a.Health)
}

func TestSimulate_AlternatesSidesByDescendingAttack(t *testing.T) {
	a1 := &army.Unit{Name: "a1", BaseAttack: 1, Health: 50}
	a2 := &army.Unit{Name: "a2", BaseAttack: 7, Health: 50}
	b1 := &army.Unit{Name: "b1", BaseAttack: 4, Health: 50}
	b2 := &army.Unit{Name: "b2", BaseAttack: 4, Health: 50}
	b3 := &army.Unit{Name: "b3", BaseAttack: 9, Health: 50}
	sideA := &army.Army{Units: []*army.Unit{a1, a2}}
	sideB := &army.Army{Units: []*army.Unit{b1, b2, b3}}
	for _, u := range sideA.Units {
		hitFirst(u, sideB, 1)
	}
	for _, u := range sideB.Units {
		hitFirst(u, sideA, 1)
	}

	rec := &recorder{}
	s := combat.NewScheduler(rec, zap.NewNop())
	s.MaxRounds = 1
	require.ErrorIs(t, s.Simulate(context.Background(), sideA, sideB), combat.ErrRoundLimit)

	var order []string
	for _, ev := range rec.events {
		order = append(order, ev.Attacker.Name)
	}
	assert.Equal(t, []string{"a2", "b3", "a1", "b1", "b2"}, order)
}

func TestSimulate_RunsUntilOneSideIsEliminated(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 2, Health: 30}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 30}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b}}
	hitFirst(a, sideB, 3)
	hitFirst(b, sideA, 2)

	rec := &recorder{}
	s := combat.NewScheduler(rec, zap.NewNop())
	require.NoError(t, s.Simulate(context.Background(), sideA, sideB))

	// a deals 3 per round and acts first: b dies in round 10 before acting.
	assert.Equal(t, 10, s.Rounds())
	assert.Equal(t, 0, b.Health)
	assert.Equal(t, 30-2*9, a.Health)
	assert.Equal(t, combat.SideAWins, combat.Decide(sideA, sideB))
	assert.Equal(t, 10, rec.attacksBy(a))
	assert.Equal(t, 9, rec.attacksBy(b))
}

func TestSimulate_EmptySideReturnsImmediately(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 1}
	a.Program = army.ProgramFunc(func(context.Context) (*army.Unit, error) {
		t.Fatal("no attack expected")
		return nil, nil
	})
	rec := &recorder{}
	s := combat.NewScheduler(rec, zap.NewNop())
	require.NoError(t, s.Simulate(context.Background(), &army.Army{Units: []*army.Unit{a}}, &army.Army{}))
	assert.Zero(t, s.Rounds())
	assert.Empty(t, rec.events)
}

func TestSimulate_ProgramErrorStopsBattle(t *testing.T) {
	boom := errors.New("boom")
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 1}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 1}
	a.Program = army.ProgramFunc(func(context.Context) (*army.Unit, error) { return nil, boom })
	b.Program = army.ProgramFunc(func(context.Context) (*army.Unit, error) {
		t.Fatal("b must not act after a failed")
		return nil, nil
	})

	rec := &recorder{}
	err := combat.NewScheduler(rec, zap.NewNop()).Simulate(context.Background(),
		&army.Army{Units: []*army.Unit{a}}, &army.Army{Units: []*army.Unit{b}})
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `"a"`)
	assert.Empty(t, rec.events)
}

func TestSimulate_LogErrorStopsBattle(t *testing.T) {
	sink := errors.New("sink full")
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 5}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 5}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b}}
	hitFirst(a, sideB, 1)
	hitFirst(b, sideA, 1)

	log := combat.LogFunc(func(context.Context, combat.Event) error { return sink })
	err := combat.NewScheduler(log, zap.NewNop()).Simulate(context.Background(), sideA, sideB)
	require.ErrorIs(t, err, sink)
	// The attack was applied before the log failed.
	assert.Equal(t, 4, b.Health)
	assert.Equal(t, 5, a.Health)
}

func TestSimulate_NilProgram(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 1}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 1}
	err := combat.NewScheduler(&recorder{}, zap.NewNop()).Simulate(context.Background(),
		&army.Army{Units: []*army.Unit{a}}, &army.Army{Units: []*army.Unit{b}})
	assert.ErrorContains(t, err, "no attack program")
}

func TestSimulate_CancelledContext(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 1}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 1}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b}}
	hitFirst(a, sideB, 1)
	hitFirst(b, sideA, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	err := combat.NewScheduler(rec, zap.NewNop()).Simulate(ctx, sideA, sideB)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.events)
	assert.True(t, a.Alive())
	assert.True(t, b.Alive())
}

func TestSimulate_PaceHonoursDeadline(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 1, Health: 1}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 1}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b}}
	hitFirst(a, sideB, 1)
	hitFirst(b, sideA, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s := combat.NewScheduler(&recorder{}, zap.NewNop())
	s.Pace = time.Hour
	start := time.Now()
	err := s.Simulate(ctx, sideA, sideB)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSimulate_PacedBattleCompletes(t *testing.T) {
	a := &army.Unit{Name: "a", BaseAttack: 2, Health: 3}
	b := &army.Unit{Name: "b", BaseAttack: 1, Health: 3}
	sideA := &army.Army{Units: []*army.Unit{a}}
	sideB := &army.Army{Units: []*army.Unit{b}}
	hitFirst(a, sideB, 1)
	hitFirst(b, sideA, 1)

	rec := &recorder{}
	s := combat.NewScheduler(rec, zap.NewNop())
	s.Pace = time.Millisecond
	require.NoError(t, s.Simulate(context.Background(), sideA, sideB))
	assert.False(t, b.Alive())
	assert.Len(t, rec.events, 5)
}

func TestMultiLog_StopsAtFirstError(t *testing.T) {
	first := &recorder{}
	bad := errors.New("bad")
	var reached bool
	m := combat.MultiLog{
		first,
		combat.LogFunc(func(context.Context, combat.Event) error { return bad }),
		combat.LogFunc(func(context.Context, combat.Event) error { reached = true; return nil }),
	}
	err := m.Record(context.Background(), combat.Event{Round: 1, Attacker: &army.Unit{Name: "x"}})
	assert.ErrorIs(t, err, bad)
	assert.Len(t, first.events, 1)
	assert.False(t, reached)
}

func TestProperty_Simulate_Terminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := func(label string) *army.Army {
			n := rapid.IntRange(1, 8).Draw(rt, label+"_size")
			a := &army.Army{}
			for i := 0; i < n; i++ {
				a.Units = append(a.Units, &army.Unit{
					Name:       label,
					BaseAttack: rapid.IntRange(0, 10).Draw(rt, label+"_attack"),
					Health:     rapid.IntRange(1, 40).Draw(rt, label+"_health"),
				})
			}
			return a
		}
		sideA, sideB := gen("a"), gen("b")
		for _, u := range sideA.Units {
			hitFirst(u, sideB, rapid.IntRange(1, 5).Draw(rt, "dmg"))
		}
		for _, u := range sideB.Units {
			hitFirst(u, sideA, rapid.IntRange(1, 5).Draw(rt, "dmg"))
		}

		rec := &recorder{}
		s := combat.NewScheduler(rec, zap.NewNop())
		if err := s.Simulate(context.Background(), sideA, sideB); err != nil {
			rt.Fatalf("simulate: %v", err)
		}
		if !sideA.Defeated() && !sideB.Defeated() {
			rt.Fatalf("both sides still alive after %d rounds", s.Rounds())
		}
		perRound := map[int]map[*army.Unit]int{}
		for _, ev := range rec.events {
			if perRound[ev.Round] == nil {
				perRound[ev.Round] = map[*army.Unit]int{}
			}
			perRound[ev.Round][ev.Attacker]++
			if perRound[ev.Round][ev.Attacker] > 1 {
				rt.Fatalf("%s attacked twice in round %d", ev.Attacker.Name, ev.Round)
			}
		}
	})
}
