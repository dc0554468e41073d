package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBattleNotFound is returned when a battle report lookup yields no results.
var ErrBattleNotFound = errors.New("battle not found")

// Battle is the header row of one battle report.
type Battle struct {
	ID          uuid.UUID
	Seed        uint64
	GridWidth   int
	GridHeight  int
	SideAUnits  int
	SideBUnits  int
	SideAPoints int
	SideBPoints int
	StartedAt   time.Time
	// FinishedAt is nil while the battle is still running or was aborted.
	FinishedAt *time.Time
	Rounds     int
	Outcome    string
}

// BattleEvent is one recorded action. Target is empty and TargetHealth is
// nil when the attacker did not strike.
type BattleEvent struct {
	Seq          int
	Round        int
	Attacker     string
	AttackerX    int
	AttackerY    int
	Target       string
	TargetHealth *int
}

// ReportRepository persists battle reports. Reports are append-only: events
// are never updated and a battle is finished at most once.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Begin inserts the header of a new battle. A zero b.ID is replaced by a
// random UUID.
//
// Postcondition: Returns b with ID and StartedAt set.
func (r *ReportRepository) Begin(ctx context.Context, b Battle) (Battle, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO battles
			(id, seed, grid_width, grid_height,
			 side_a_units, side_b_units, side_a_points, side_b_points)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING started_at`,
		b.ID, int64(b.Seed), b.GridWidth, b.GridHeight,
		b.SideAUnits, b.SideBUnits, b.SideAPoints, b.SideBPoints,
	).Scan(&b.StartedAt)
	if err != nil {
		return Battle{}, fmt.Errorf("inserting battle: %w", err)
	}
	return b, nil
}

// AppendEvent records one action of battle id.
//
// Postcondition: Returns ErrBattleNotFound if id does not exist.
func (r *ReportRepository) AppendEvent(ctx context.Context, id uuid.UUID, ev BattleEvent) error {
	var target *string
	if ev.Target != "" {
		target = &ev.Target
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO battle_events
			(battle_id, seq, round, attacker, attacker_x, attacker_y, target, target_health)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, ev.Seq, ev.Round, ev.Attacker, ev.AttackerX, ev.AttackerY, target, ev.TargetHealth,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrBattleNotFound
		}
		return fmt.Errorf("inserting battle event: %w", err)
	}
	return nil
}

// Finish stamps the result of battle id.
//
// Postcondition: Returns ErrBattleNotFound if no unfinished battle has id.
func (r *ReportRepository) Finish(ctx context.Context, id uuid.UUID, rounds int, outcome string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE battles SET finished_at = NOW(), rounds = $2, outcome = $3
		WHERE id = $1 AND finished_at IS NULL`,
		id, rounds, outcome,
	)
	if err != nil {
		return fmt.Errorf("finishing battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// Get retrieves the header of battle id.
//
// Postcondition: Returns the Battle or ErrBattleNotFound.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (Battle, error) {
	var (
		b    Battle
		seed int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, seed, grid_width, grid_height,
		       side_a_units, side_b_units, side_a_points, side_b_points,
		       started_at, finished_at, rounds, outcome
		FROM battles WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &seed, &b.GridWidth, &b.GridHeight,
		&b.SideAUnits, &b.SideBUnits, &b.SideAPoints, &b.SideBPoints,
		&b.StartedAt, &b.FinishedAt, &b.Rounds, &b.Outcome,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Battle{}, ErrBattleNotFound
		}
		return Battle{}, fmt.Errorf("querying battle: %w", err)
	}
	b.Seed = uint64(seed)
	return b, nil
}

// Events returns the recorded actions of battle id ordered by Seq.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ReportRepository) Events(ctx context.Context, id uuid.UUID) ([]BattleEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT seq, round, attacker, attacker_x, attacker_y, COALESCE(target, ''), target_health
		FROM battle_events WHERE battle_id = $1 ORDER BY seq ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battle events: %w", err)
	}
	defer rows.Close()

	events := make([]BattleEvent, 0)
	for rows.Next() {
		var ev BattleEvent
		if err := rows.Scan(
			&ev.Seq, &ev.Round, &ev.Attacker, &ev.AttackerX, &ev.AttackerY, &ev.Target, &ev.TargetHealth,
		); err != nil {
			return nil, fmt.Errorf("scanning battle event row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// isForeignKeyError checks if a pgx error is a foreign key violation.
func isForeignKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23503"
	}
	return false
}
