package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

type memAppender struct {
	ids    []uuid.UUID
	events []postgres.BattleEvent
	err    error
}

func (m *memAppender) AppendEvent(_ context.Context, id uuid.UUID, ev postgres.BattleEvent) error {
	if m.err != nil {
		return m.err
	}
	m.ids = append(m.ids, id)
	m.events = append(m.events, ev)
	return nil
}

func TestReportLog_MapsEvents(t *testing.T) {
	mem := &memAppender{}
	id := uuid.New()
	log := postgres.NewReportLog(mem, id)

	att := &army.Unit{Name: "Knight 1", Pos: grid.Edge{X: 5, Y: 6}}
	tgt := &army.Unit{Name: "Archer 3", Health: 7}
	require.NoError(t, log.Record(context.Background(), combat.Event{Round: 2, Attacker: att, Target: tgt}))
	require.NoError(t, log.Record(context.Background(), combat.Event{Round: 2, Attacker: tgt}))

	require.Len(t, mem.events, 2)
	assert.Equal(t, []uuid.UUID{id, id}, mem.ids)
	first := mem.events[0]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, first.Round)
	assert.Equal(t, "Knight 1", first.Attacker)
	assert.Equal(t, 5, first.AttackerX)
	assert.Equal(t, 6, first.AttackerY)
	assert.Equal(t, "Archer 3", first.Target)
	require.NotNil(t, first.TargetHealth)
	assert.Equal(t, 7, *first.TargetHealth)

	second := mem.events[1]
	assert.Equal(t, 2, second.Seq)
	assert.Empty(t, second.Target)
	assert.Nil(t, second.TargetHealth)
	assert.Equal(t, 2, log.Recorded())
}

func TestReportLog_PropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	log := postgres.NewReportLog(&memAppender{err: boom}, uuid.New())
	err := log.Record(context.Background(), combat.Event{Round: 1, Attacker: &army.Unit{Name: "x"}})
	assert.ErrorIs(t, err, boom)
}
