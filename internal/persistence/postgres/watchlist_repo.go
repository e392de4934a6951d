package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// watchlistRepo implements persistence.WatchlistRepo over the
// watchlist_tickers table, the scanner's universe and sector-wind lookup.
type watchlistRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewWatchlistRepo creates a PostgreSQL-backed watchlist repository.
func NewWatchlistRepo(db *sqlx.DB, timeout time.Duration) persistence.WatchlistRepo {
	return &watchlistRepo{db: db, timeout: timeout}
}

func (r *watchlistRepo) Upsert(ctx context.Context, ticker domain.WatchlistTicker) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO watchlist_tickers (symbol, sector_etf, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET sector_etf = EXCLUDED.sector_etf, active = EXCLUDED.active`

	_, err := r.db.ExecContext(ctx, query, ticker.Symbol, ticker.SectorETF, ticker.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert watchlist ticker: %w", err)
	}
	return nil
}

func (r *watchlistRepo) ListActive(ctx context.Context) ([]domain.WatchlistTicker, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT symbol, sector_etf, active FROM watchlist_tickers WHERE active = true ORDER BY symbol`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active watchlist tickers: %w", err)
	}
	defer rows.Close()

	var tickers []domain.WatchlistTicker
	for rows.Next() {
		var ticker domain.WatchlistTicker
		if err := rows.Scan(&ticker.Symbol, &ticker.SectorETF, &ticker.Active); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}
