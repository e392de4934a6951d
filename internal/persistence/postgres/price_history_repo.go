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

// priceHistoryRepo implements persistence.PriceHistoryRepo over the
// price_history table, the durable backing for the scanner's indicator
// windows.
type priceHistoryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPriceHistoryRepo creates a PostgreSQL-backed price history repository.
func NewPriceHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.PriceHistoryRepo {
	return &priceHistoryRepo{db: db, timeout: timeout}
}

func (r *priceHistoryRepo) InsertBatch(ctx context.Context, bars []domain.PriceBarRow) error {
	if len(bars) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(bars)/200+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history (symbol, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx, bar.Symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return fmt.Errorf("failed to upsert price bar: %w", err)
		}
	}

	return tx.Commit()
}

func (r *priceHistoryRepo) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange) ([]domain.PriceBarRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, date, open, high, low, close, volume
		FROM price_history
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var bars []domain.PriceBarRow
	for rows.Next() {
		var bar domain.PriceBarRow
		if err := rows.Scan(&bar.Symbol, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

func (r *priceHistoryRepo) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var date sql.NullTime
	err := r.db.QueryRowxContext(ctx, `SELECT MAX(date) FROM price_history WHERE symbol = $1`, symbol).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest price date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}
