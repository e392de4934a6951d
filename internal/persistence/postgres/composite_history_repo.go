package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// compositeHistoryRepo implements persistence.CompositeHistoryRepo over the
// append-only bias_composite_history table.
type compositeHistoryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCompositeHistoryRepo creates a PostgreSQL-backed composite history repository.
func NewCompositeHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.CompositeHistoryRepo {
	return &compositeHistoryRepo{db: db, timeout: timeout}
}

func (r *compositeHistoryRepo) Insert(ctx context.Context, result domain.CompositeResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	factorsJSON, err := json.Marshal(result.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors snapshot: %w", err)
	}
	breakerJSON, err := json.Marshal(result.CircuitBreaker)
	if err != nil {
		return fmt.Errorf("failed to marshal circuit breaker snapshot: %w", err)
	}

	query := `
		INSERT INTO bias_composite_history
			(ts, composite_score, bias_level, bias_numeric, factors, active_factors,
			 stale_factors, unverifiable_factors, velocity_multiplier, confidence, circuit_breaker)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		result.Timestamp, result.CompositeScore, result.BiasLevel, result.BiasNumeric,
		factorsJSON, pqStringArray(result.ActiveFactors), pqStringArray(result.StaleFactors),
		pqStringArray(result.UnverifiableFactors), result.VelocityMultiplier, result.Confidence, breakerJSON)
	if err != nil {
		return fmt.Errorf("failed to insert composite history row: %w", err)
	}

	return nil
}

func (r *compositeHistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.CompositeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, composite_score, bias_level, bias_numeric, factors, active_factors,
		       stale_factors, unverifiable_factors, velocity_multiplier, confidence, circuit_breaker
		FROM bias_composite_history
		ORDER BY ts DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query composite history: %w", err)
	}
	defer rows.Close()

	var results []domain.CompositeResult
	for rows.Next() {
		var result domain.CompositeResult
		var factorsJSON, breakerJSON []byte
		var active, stale, unverifiable pqStringArrayScan

		if err := rows.Scan(&result.Timestamp, &result.CompositeScore, &result.BiasLevel, &result.BiasNumeric,
			&factorsJSON, &active, &stale, &unverifiable, &result.VelocityMultiplier,
			&result.Confidence, &breakerJSON); err != nil {
			return nil, fmt.Errorf("failed to scan composite history row: %w", err)
		}

		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &result.Factors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal factors snapshot: %w", err)
			}
		}
		if len(breakerJSON) > 0 && string(breakerJSON) != "null" {
			if err := json.Unmarshal(breakerJSON, &result.CircuitBreaker); err != nil {
				return nil, fmt.Errorf("failed to unmarshal circuit breaker snapshot: %w", err)
			}
		}
		result.ActiveFactors = active
		result.StaleFactors = stale
		result.UnverifiableFactors = unverifiable

		results = append(results, result)
	}

	return results, rows.Err()
}
