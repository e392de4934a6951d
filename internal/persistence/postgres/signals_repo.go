package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// signalsRepo implements persistence.SignalsRepo over the signals table.
type signalsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalsRepo creates a PostgreSQL-backed signals repository.
func NewSignalsRepo(db *sqlx.DB, timeout time.Duration) persistence.SignalsRepo {
	return &signalsRepo{db: db, timeout: timeout}
}

func (r *signalsRepo) Insert(ctx context.Context, signal domain.Signal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	setupJSON, err := json.Marshal(signal.Setup)
	if err != nil {
		return fmt.Errorf("failed to marshal setup: %w", err)
	}
	setupContextJSON, err := json.Marshal(signal.SetupContext)
	if err != nil {
		return fmt.Errorf("failed to marshal setup context: %w", err)
	}
	contextJSON, err := json.Marshal(signal.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal indicator context: %w", err)
	}
	confluenceJSON, err := json.Marshal(signal.Confluence)
	if err != nil {
		return fmt.Errorf("failed to marshal confluence: %w", err)
	}

	query := `
		INSERT INTO signals
			(signal_id, symbol, direction, signal_type, priority, cta_zone, setup,
			 setup_context, context, confluence, confidence, conviction_mult, emitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		signal.SignalID, signal.Symbol, signal.Direction, signal.SignalType, signal.Priority,
		signal.CTAZone, setupJSON, setupContextJSON, contextJSON, confluenceJSON,
		signal.Confidence, signal.ConvictionMult, signal.EmittedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate signal: %w", err)
		}
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	return nil
}

func (r *signalsRepo) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, signalSelectQuery+" WHERE signal_id = $1", signalID)
	signal, err := scanSignalRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signal by id: %w", err)
	}
	return signal, nil
}

func (r *signalsRepo) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := signalSelectQuery + ` WHERE symbol = $1 AND emitted_at >= $2 AND emitted_at <= $3 ORDER BY emitted_at DESC LIMIT $4`
	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals by symbol: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *signalsRepo) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := signalSelectQuery + ` ORDER BY emitted_at DESC LIMIT $1`
	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *signalsRepo) LastEmitted(ctx context.Context, symbol string, signalType domain.SignalType) (*domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := signalSelectQuery + ` WHERE symbol = $1 AND signal_type = $2 ORDER BY emitted_at DESC LIMIT 1`
	row := r.db.QueryRowxContext(ctx, query, symbol, signalType)
	signal, err := scanSignalRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last emitted signal: %w", err)
	}
	return signal, nil
}

const signalSelectQuery = `
	SELECT signal_id, symbol, direction, signal_type, priority, cta_zone, setup,
	       setup_context, context, confluence, confidence, conviction_mult, emitted_at
	FROM signals`

func scanSignals(rows *sqlx.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		signal, err := scanSignalFromRows(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

func scanSignalFromRows(rows *sqlx.Rows) (*domain.Signal, error) {
	var signal domain.Signal
	var setupJSON, setupContextJSON, contextJSON, confluenceJSON []byte

	if err := rows.Scan(&signal.SignalID, &signal.Symbol, &signal.Direction, &signal.SignalType,
		&signal.Priority, &signal.CTAZone, &setupJSON, &setupContextJSON, &contextJSON,
		&confluenceJSON, &signal.Confidence, &signal.ConvictionMult, &signal.EmittedAt); err != nil {
		return nil, fmt.Errorf("failed to scan signal: %w", err)
	}
	if err := unmarshalSignalBlobs(&signal, setupJSON, setupContextJSON, contextJSON, confluenceJSON); err != nil {
		return nil, err
	}
	return &signal, nil
}

func scanSignalRow(row *sqlx.Row) (*domain.Signal, error) {
	var signal domain.Signal
	var setupJSON, setupContextJSON, contextJSON, confluenceJSON []byte

	if err := row.Scan(&signal.SignalID, &signal.Symbol, &signal.Direction, &signal.SignalType,
		&signal.Priority, &signal.CTAZone, &setupJSON, &setupContextJSON, &contextJSON,
		&confluenceJSON, &signal.Confidence, &signal.ConvictionMult, &signal.EmittedAt); err != nil {
		return nil, err
	}
	if err := unmarshalSignalBlobs(&signal, setupJSON, setupContextJSON, contextJSON, confluenceJSON); err != nil {
		return nil, err
	}
	return &signal, nil
}

func unmarshalSignalBlobs(signal *domain.Signal, setupJSON, setupContextJSON, contextJSON, confluenceJSON []byte) error {
	if err := json.Unmarshal(setupJSON, &signal.Setup); err != nil {
		return fmt.Errorf("failed to unmarshal setup: %w", err)
	}
	if err := json.Unmarshal(setupContextJSON, &signal.SetupContext); err != nil {
		return fmt.Errorf("failed to unmarshal setup context: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &signal.Context); err != nil {
		return fmt.Errorf("failed to unmarshal indicator context: %w", err)
	}
	if len(confluenceJSON) > 0 && string(confluenceJSON) != "null" {
		if err := json.Unmarshal(confluenceJSON, &signal.Confluence); err != nil {
			return fmt.Errorf("failed to unmarshal confluence: %w", err)
		}
	}
	return nil
}
