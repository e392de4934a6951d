package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// factorReadingsRepo implements persistence.FactorReadingsRepo over the
// factor_readings/factor_history tables.
type factorReadingsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewFactorReadingsRepo creates a PostgreSQL-backed factor readings repository.
func NewFactorReadingsRepo(db *sqlx.DB, timeout time.Duration) persistence.FactorReadingsRepo {
	return &factorReadingsRepo{db: db, timeout: timeout}
}

// Insert writes through to both the latest-per-factor table and the
// append-only history table, the two persisted views a FactorReading's
// lifecycle requires.
func (r *factorReadingsRepo) Insert(ctx context.Context, reading domain.FactorReading) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(reading.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal reading metadata: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsertQuery := `
		INSERT INTO factor_readings (factor_id, score, signal, ts, source, detail, raw_data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (factor_id) DO UPDATE SET
			score = EXCLUDED.score, signal = EXCLUDED.signal, ts = EXCLUDED.ts,
			source = EXCLUDED.source, detail = EXCLUDED.detail,
			raw_data = EXCLUDED.raw_data, metadata = EXCLUDED.metadata`

	if _, err := tx.ExecContext(ctx, upsertQuery,
		reading.FactorID, reading.Score, reading.Signal, reading.Timestamp,
		reading.Source, reading.Detail, []byte(reading.RawData), metadataJSON); err != nil {
		return fmt.Errorf("failed to upsert latest factor reading: %w", err)
	}

	historyQuery := `
		INSERT INTO factor_history (factor_id, score, signal, ts, source, detail, raw_data, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.ExecContext(ctx, historyQuery,
		reading.FactorID, reading.Score, reading.Signal, reading.Timestamp,
		reading.Source, reading.Detail, []byte(reading.RawData), metadataJSON); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate factor reading: %w", err)
		}
		return fmt.Errorf("failed to insert factor history row: %w", err)
	}

	return tx.Commit()
}

func (r *factorReadingsRepo) ListByFactor(ctx context.Context, factorID string, tr persistence.TimeRange, limit int) ([]domain.FactorReading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT factor_id, score, signal, ts, source, detail, raw_data, metadata
		FROM factor_history
		WHERE factor_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, factorID, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query factor history: %w", err)
	}
	defer rows.Close()

	var readings []domain.FactorReading
	for rows.Next() {
		reading, err := scanFactorReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

func (r *factorReadingsRepo) GetLatest(ctx context.Context, factorID string) (*domain.FactorReading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT factor_id, score, signal, ts, source, detail, raw_data, metadata
		FROM factor_readings
		WHERE factor_id = $1
		ORDER BY ts DESC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, factorID)
	reading, err := scanFactorReadingRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest factor reading: %w", err)
	}
	return reading, nil
}

func scanFactorReading(rows *sqlx.Rows) (domain.FactorReading, error) {
	var reading domain.FactorReading
	var metadataJSON []byte
	var rawData []byte

	if err := rows.Scan(&reading.FactorID, &reading.Score, &reading.Signal, &reading.Timestamp,
		&reading.Source, &reading.Detail, &rawData, &metadataJSON); err != nil {
		return reading, fmt.Errorf("failed to scan factor reading: %w", err)
	}
	reading.RawData = rawData
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &reading.Metadata); err != nil {
			return reading, fmt.Errorf("failed to unmarshal reading metadata: %w", err)
		}
	}
	return reading, nil
}

func scanFactorReadingRow(row *sqlx.Row) (*domain.FactorReading, error) {
	var reading domain.FactorReading
	var metadataJSON []byte
	var rawData []byte

	if err := row.Scan(&reading.FactorID, &reading.Score, &reading.Signal, &reading.Timestamp,
		&reading.Source, &reading.Detail, &rawData, &metadataJSON); err != nil {
		return nil, err
	}
	reading.RawData = rawData
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &reading.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reading metadata: %w", err)
		}
	}
	return &reading, nil
}
