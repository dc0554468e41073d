package combat

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/army"
)

// Event is one resolved action: Attacker acted in Round and hit Target.
// Target is nil when the attacker only moved or held position.
type Event struct {
	Round    int
	Attacker *army.Unit
	Target   *army.Unit
}

// BattleLog receives every resolved action. An error aborts the battle.
type BattleLog interface {
	Record(ctx context.Context, ev Event) error
}

// LogFunc adapts a function into a BattleLog.
type LogFunc func(ctx context.Context, ev Event) error

// Record calls f.
func (f LogFunc) Record(ctx context.Context, ev Event) error { return f(ctx, ev) }

// ZapLog writes each event to a zap logger at info level.
type ZapLog struct {
	logger *zap.Logger
}

// NewZapLog returns a ZapLog writing to logger.
func NewZapLog(logger *zap.Logger) *ZapLog {
	return &ZapLog{logger: logger}
}

// Record logs ev. It never fails.
func (l *ZapLog) Record(_ context.Context, ev Event) error {
	if ev.Target == nil {
		l.logger.Info("unit holds",
			zap.Int("round", ev.Round),
			zap.String("attacker", ev.Attacker.Name),
			zap.Stringer("pos", ev.Attacker.Pos),
		)
		return nil
	}
	l.logger.Info("attack",
		zap.Int("round", ev.Round),
		zap.String("attacker", ev.Attacker.Name),
		zap.String("target", ev.Target.Name),
		zap.Int("target_health", ev.Target.Health),
		zap.Bool("killed", !ev.Target.Alive()),
	)
	return nil
}

// MultiLog fans an event out to several logs in order; the first error
// stops the fan-out and is returned.
type MultiLog []BattleLog

// Record forwards ev to every log.
func (m MultiLog) Record(ctx context.Context, ev Event) error {
	for _, l := range m {
		if err := l.Record(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
