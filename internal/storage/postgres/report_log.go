package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// EventAppender stores one battle event. ReportRepository implements it.
type EventAppender interface {
	AppendEvent(ctx context.Context, id uuid.UUID, ev BattleEvent) error
}

// ReportLog records scheduler events into a battle report.
// It is not safe for concurrent use.
type ReportLog struct {
	repo EventAppender
	id   uuid.UUID
	seq  int
}

// NewReportLog returns a combat.BattleLog appending to battle id.
//
// Precondition: id must have been created with ReportRepository.Begin.
// Events are numbered from 1 in the order they are recorded.
func NewReportLog(repo EventAppender, id uuid.UUID) *ReportLog {
	return &ReportLog{repo: repo, id: id}
}

// Record appends ev to the report.
func (l *ReportLog) Record(ctx context.Context, ev combat.Event) error {
	l.seq++
	row := BattleEvent{
		Seq:       l.seq,
		Round:     ev.Round,
		Attacker:  ev.Attacker.Name,
		AttackerX: ev.Attacker.Pos.X,
		AttackerY: ev.Attacker.Pos.Y,
	}
	if ev.Target != nil {
		hp := ev.Target.Health
		row.Target = ev.Target.Name
		row.TargetHealth = &hp
	}
	return l.repo.AppendEvent(ctx, l.id, row)
}

// Recorded returns the number of events appended so far.
func (l *ReportLog) Recorded() int { return l.seq }
