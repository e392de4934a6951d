package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// portfolioRepo implements persistence.PortfolioRepo over the
// portfolio_snapshots table, feeding the committee packet assembler (C12).
type portfolioRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPortfolioRepo creates a PostgreSQL-backed portfolio snapshot repository.
func NewPortfolioRepo(db *sqlx.DB, timeout time.Duration) persistence.PortfolioRepo {
	return &portfolioRepo{db: db, timeout: timeout}
}

func (r *portfolioRepo) Insert(ctx context.Context, snapshot domain.PortfolioSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO portfolio_snapshots (ts, equity, cash, open_positions, unrealized_pnl, realized_pnl_today)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.Timestamp, snapshot.Equity, snapshot.Cash, snapshot.OpenPositions,
		snapshot.UnrealizedPnL, snapshot.RealizedPnLToday)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio snapshot: %w", err)
	}
	return nil
}

func (r *portfolioRepo) GetLatest(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, equity, cash, open_positions, unrealized_pnl, realized_pnl_today
		FROM portfolio_snapshots
		ORDER BY ts DESC
		LIMIT 1`

	var snapshot domain.PortfolioSnapshot
	err := r.db.QueryRowxContext(ctx, query).Scan(
		&snapshot.Timestamp, &snapshot.Equity, &snapshot.Cash, &snapshot.OpenPositions,
		&snapshot.UnrealizedPnL, &snapshot.RealizedPnLToday)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest portfolio snapshot: %w", err)
	}
	return &snapshot, nil
}

// strategyHealthRepo implements persistence.StrategyHealthRepo over the
// strategy_health table.
type strategyHealthRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewStrategyHealthRepo creates a PostgreSQL-backed strategy health repository.
func NewStrategyHealthRepo(db *sqlx.DB, timeout time.Duration) persistence.StrategyHealthRepo {
	return &strategyHealthRepo{db: db, timeout: timeout}
}

func (r *strategyHealthRepo) Insert(ctx context.Context, health domain.StrategyHealth) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO strategy_health (ts, win_rate_30d, avg_r_multiple_30d, signals_emitted_30d, outcomes_closed_30d)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		health.Timestamp, health.WinRate30d, health.AvgRMultiple30d,
		health.SignalsEmitted30d, health.OutcomesClosed30d)
	if err != nil {
		return fmt.Errorf("failed to insert strategy health row: %w", err)
	}
	return nil
}

func (r *strategyHealthRepo) GetLatest(ctx context.Context) (*domain.StrategyHealth, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, win_rate_30d, avg_r_multiple_30d, signals_emitted_30d, outcomes_closed_30d
		FROM strategy_health
		ORDER BY ts DESC
		LIMIT 1`

	var health domain.StrategyHealth
	err := r.db.QueryRowxContext(ctx, query).Scan(
		&health.Timestamp, &health.WinRate30d, &health.AvgRMultiple30d,
		&health.SignalsEmitted30d, &health.OutcomesClosed30d)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest strategy health row: %w", err)
	}
	return &health, nil
}

// healthAlertsRepo implements persistence.HealthAlertsRepo over the
// health_alerts table.
type healthAlertsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewHealthAlertsRepo creates a PostgreSQL-backed health alerts repository.
func NewHealthAlertsRepo(db *sqlx.DB, timeout time.Duration) persistence.HealthAlertsRepo {
	return &healthAlertsRepo{db: db, timeout: timeout}
}

func (r *healthAlertsRepo) Insert(ctx context.Context, alert domain.HealthAlert) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO health_alerts (ts, severity, kind, message, acknowledged)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, alert.Timestamp, alert.Severity, alert.Kind, alert.Message, alert.Acknowledged)
	if err != nil {
		return fmt.Errorf("failed to insert health alert: %w", err)
	}
	return nil
}

func (r *healthAlertsRepo) ListUnacknowledged(ctx context.Context) ([]domain.HealthAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, severity, kind, message, acknowledged
		FROM health_alerts
		WHERE acknowledged = false
		ORDER BY ts DESC`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unacknowledged alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.HealthAlert
	for rows.Next() {
		var alert domain.HealthAlert
		if err := rows.Scan(&alert.Timestamp, &alert.Severity, &alert.Kind, &alert.Message, &alert.Acknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan health alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *healthAlertsRepo) Acknowledge(ctx context.Context, timestamp time.Time, kind string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE health_alerts SET acknowledged = true WHERE ts = $1 AND kind = $2`
	_, err := r.db.ExecContext(ctx, query, timestamp, kind)
	if err != nil {
		return fmt.Errorf("failed to acknowledge health alert: %w", err)
	}
	return nil
}
