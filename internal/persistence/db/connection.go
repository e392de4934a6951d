// Package db wires a PostgreSQL connection pool to the concrete
// persistence.Repository implementation set.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/duskline/biasengine/internal/persistence"
	"github.com/duskline/biasengine/internal/persistence/postgres"
)

// Manager owns the PostgreSQL connection pool and the repository set built
// on top of it.
type Manager struct {
	db      *sqlx.DB
	repos   *persistence.Repository
	timeout time.Duration
}

// NewManager opens a connection pool against dsn, verifies connectivity,
// and constructs the full repository set.
func NewManager(dsn string, maxOpenConns int, queryTimeout time.Duration) (*Manager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxOpenConns / 2)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repos := &persistence.Repository{
		FactorReadings: postgres.NewFactorReadingsRepo(conn, queryTimeout),
		CompositeHist:  postgres.NewCompositeHistoryRepo(conn, queryTimeout),
		Signals:        postgres.NewSignalsRepo(conn, queryTimeout),
		SignalOutcomes: postgres.NewSignalOutcomesRepo(conn, queryTimeout),
		Positions:      postgres.NewPositionsRepo(conn, queryTimeout),
		Trades:         postgres.NewTradesRepo(conn, queryTimeout),
		TradeLegs:      postgres.NewTradeLegsRepo(conn, queryTimeout),
		Portfolio:      postgres.NewPortfolioRepo(conn, queryTimeout),
		StrategyHealth: postgres.NewStrategyHealthRepo(conn, queryTimeout),
		HealthAlerts:   postgres.NewHealthAlertsRepo(conn, queryTimeout),
		PriceHistory:   postgres.NewPriceHistoryRepo(conn, queryTimeout),
		Watchlist:      postgres.NewWatchlistRepo(conn, queryTimeout),
	}

	return &Manager{db: conn, repos: repos, timeout: queryTimeout}, nil
}

// Repository returns the full repository collection.
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

// DB returns the underlying connection, for migrations.
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ping implements persistence.RepositoryHealth.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.db.PingContext(ctx)
}
