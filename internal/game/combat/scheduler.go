package combat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/army"
)

// Scheduler runs rounds of alternating attacks until one side is eliminated.
// It is not safe for concurrent use; one Scheduler runs one battle at a time.
type Scheduler struct {
	// Pace is waited before every attack; 0 disables pacing.
	Pace time.Duration
	// MaxRounds aborts the battle with ErrRoundLimit; 0 means unlimited.
	MaxRounds int

	log    BattleLog
	logger *zap.Logger
	rounds int
}

// NewScheduler returns a Scheduler reporting every action to log.
//
// Precondition: log and logger must be non-nil.
func NewScheduler(log BattleLog, logger *zap.Logger) *Scheduler {
	return &Scheduler{log: log, logger: logger}
}

// Rounds returns the number of rounds started by the last Simulate call.
func (s *Scheduler) Rounds() int { return s.rounds }

// Simulate fights sideA against sideB until either has no living unit.
//
// Each round snapshots the living units of both sides into queues ordered by
// descending BaseAttack (ties keep army order) and alternates one action
// from sideA's queue with one from sideB's until both are drained. A unit
// killed before its turn is skipped. Living units are re-read from the armies
// after every round.
//
// Cancellation is checked before every attack. Errors from a unit's program,
// from the battle log or from ctx end the battle immediately; unit health
// keeps whatever damage was already applied.
//
// Postcondition: on nil error at least one side has no living unit.
func (s *Scheduler) Simulate(ctx context.Context, sideA, sideB *army.Army) error {
	s.rounds = 0
	start := time.Now()

	aliveA, aliveB := sideA.Alive(), sideB.Alive()
	for len(aliveA) > 0 && len(aliveB) > 0 {
		if s.MaxRounds > 0 && s.rounds >= s.MaxRounds {
			return fmt.Errorf("after %d rounds: %w", s.rounds, ErrRoundLimit)
		}
		s.rounds++
		s.logger.Debug("round started",
			zap.Int("round", s.rounds),
			zap.Int("side_a_alive", len(aliveA)),
			zap.Int("side_b_alive", len(aliveB)),
		)

		qa, qb := newTurnQueue(aliveA), newTurnQueue(aliveB)
		for qa.Len() > 0 || qb.Len() > 0 {
			if err := s.act(ctx, qa); err != nil {
				return err
			}
			if err := s.act(ctx, qb); err != nil {
				return err
			}
		}

		aliveA, aliveB = sideA.Alive(), sideB.Alive()
	}

	s.logger.Info("battle finished",
		zap.Int("rounds", s.rounds),
		zap.Int("side_a_alive", len(aliveA)),
		zap.Int("side_b_alive", len(aliveB)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// act performs at most one attack: the next living unit of q.
func (s *Scheduler) act(ctx context.Context, q *turnQueue) error {
	u := q.next()
	if u == nil {
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if u.Program == nil {
		return fmt.Errorf("round %d: unit %q has no attack program", s.rounds, u.Name)
	}

	target, err := u.Program.Attack(ctx)
	if err != nil {
		return fmt.Errorf("round %d: %q attacking: %w", s.rounds, u.Name, err)
	}
	if err := s.log.Record(ctx, Event{Round: s.rounds, Attacker: u, Target: target}); err != nil {
		return fmt.Errorf("round %d: recording %q: %w", s.rounds, u.Name, err)
	}
	return nil
}

// wait is the per-action suspension point.
func (s *Scheduler) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Pace <= 0 {
		return nil
	}
	t := time.NewTimer(s.Pace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
