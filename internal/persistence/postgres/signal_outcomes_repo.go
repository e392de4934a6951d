package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// signalOutcomesRepo implements persistence.SignalOutcomesRepo over the
// signal_outcomes table, the closed-record resolution strategy health
// computes its win rate and R-multiple stats from.
type signalOutcomesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalOutcomesRepo creates a PostgreSQL-backed signal outcomes repository.
func NewSignalOutcomesRepo(db *sqlx.DB, timeout time.Duration) persistence.SignalOutcomesRepo {
	return &signalOutcomesRepo{db: db, timeout: timeout}
}

func (r *signalOutcomesRepo) Insert(ctx context.Context, outcome domain.SignalOutcome) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO signal_outcomes (signal_id, closed_at, exit_price, hit_target, hit_stop, r_multiple)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		outcome.SignalID, outcome.ClosedAt, outcome.ExitPrice, outcome.HitTarget, outcome.HitStop, outcome.RMultiple)
	if err != nil {
		return fmt.Errorf("failed to insert signal outcome: %w", err)
	}
	return nil
}

func (r *signalOutcomesRepo) GetBySignalID(ctx context.Context, signalID string) (*domain.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT signal_id, closed_at, exit_price, hit_target, hit_stop, r_multiple
		FROM signal_outcomes
		WHERE signal_id = $1`

	var outcome domain.SignalOutcome
	err := r.db.QueryRowxContext(ctx, query, signalID).Scan(
		&outcome.SignalID, &outcome.ClosedAt, &outcome.ExitPrice, &outcome.HitTarget, &outcome.HitStop, &outcome.RMultiple)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signal outcome: %w", err)
	}
	return &outcome, nil
}

func (r *signalOutcomesRepo) ListRecent(ctx context.Context, limit int) ([]domain.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT signal_id, closed_at, exit_price, hit_target, hit_stop, r_multiple
		FROM signal_outcomes
		ORDER BY closed_at DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signal outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.SignalOutcome
	for rows.Next() {
		var outcome domain.SignalOutcome
		if err := rows.Scan(&outcome.SignalID, &outcome.ClosedAt, &outcome.ExitPrice,
			&outcome.HitTarget, &outcome.HitStop, &outcome.RMultiple); err != nil {
			return nil, fmt.Errorf("failed to scan signal outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}
