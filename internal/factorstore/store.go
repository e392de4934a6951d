// Package factorstore is the typed write-through layer (C3) over the KV
// store and relational store: every factor reading's latest value, its
// time-indexed history, and an optional last-known-good snapshot.
package factorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
	"github.com/duskline/biasengine/internal/persistence"
)

const (
	historyRetention = 90 * 24 * time.Hour
	snapshotTTL      = 48 * time.Hour
)

// Store is the typed factor-reading store.
type Store struct {
	kv          kvstore.Store
	repo        persistence.FactorReadingsRepo
	defaultTTL  time.Duration
	factorByID  map[string]domain.FactorConfig
	snapshotted map[string]bool
}

// New builds a Store over the given KV and relational backends, configured
// with the closed factor set and which factors opt into snapshot backing.
func New(kv kvstore.Store, repo persistence.FactorReadingsRepo, defaultTTL time.Duration, factors []domain.FactorConfig) *Store {
	byID := make(map[string]domain.FactorConfig, len(factors))
	snapshotted := make(map[string]bool, len(factors))
	for _, f := range factors {
		byID[f.FactorID] = f
		snapshotted[f.FactorID] = f.SnapshotBacked
	}
	return &Store{kv: kv, repo: repo, defaultTTL: defaultTTL, factorByID: byID, snapshotted: snapshotted}
}

func latestKey(factorID string) string   { return fmt.Sprintf("factor/%s/latest", factorID) }
func historyKey(factorID string) string  { return fmt.Sprintf("factor/%s/history", factorID) }
func snapshotKey(factorID string) string { return fmt.Sprintf("factor/%s/snapshot", factorID) }

// StoreReading writes the latest value (TTL-bounded), appends to the
// time-indexed history, asynchronously persists to the durable table, and
// — for snapshot-backed factors — refreshes the last-known-good snapshot.
func (s *Store) StoreReading(ctx context.Context, r domain.FactorReading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal factor reading: %w", err)
	}

	ttl := s.defaultTTL
	if cfg, ok := s.factorByID[r.FactorID]; ok {
		ttl = cfg.StalenessTTL(s.defaultTTL)
	}

	if err := s.kv.Set(ctx, latestKey(r.FactorID), payload, ttl); err != nil {
		return fmt.Errorf("failed to write latest factor reading: %w", err)
	}

	score := float64(r.Timestamp.Unix())
	if err := s.kv.ZAdd(ctx, historyKey(r.FactorID), score, payload); err != nil {
		return fmt.Errorf("failed to append factor history: %w", err)
	}
	cutoff := float64(time.Now().Add(-historyRetention).Unix())
	if err := s.kv.ZRemRangeByScore(ctx, historyKey(r.FactorID), 0, cutoff); err != nil {
		log.Warn().Err(err).Str("factor_id", r.FactorID).Msg("factor history prune failed")
	}

	if s.snapshotted[r.FactorID] {
		if err := s.kv.Set(ctx, snapshotKey(r.FactorID), payload, snapshotTTL); err != nil {
			log.Warn().Err(err).Str("factor_id", r.FactorID).Msg("snapshot write failed")
		}
	}

	if s.repo != nil {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.repo.Insert(bgCtx, r); err != nil {
				log.Warn().Err(err).Str("factor_id", r.FactorID).Msg("durable factor reading insert failed")
			}
		}()
	}

	return nil
}

// GetLatest returns the most recent reading for a factor, or nil if absent
// or expired.
func (s *Store) GetLatest(ctx context.Context, factorID string) (*domain.FactorReading, error) {
	raw, ok, err := s.kv.Get(ctx, latestKey(factorID))
	if err != nil {
		return nil, fmt.Errorf("failed to read latest factor reading: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var reading domain.FactorReading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factor reading: %w", err)
	}
	return &reading, nil
}

// GetBefore returns the most recent history entry at or before cutoff.
func (s *Store) GetBefore(ctx context.Context, factorID string, cutoff time.Time) (*domain.FactorReading, error) {
	entries, err := s.kv.ZRangeByScore(ctx, historyKey(factorID), 0, float64(cutoff.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to query factor history: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	var reading domain.FactorReading
	if err := json.Unmarshal(entries[len(entries)-1], &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factor reading: %w", err)
	}
	return &reading, nil
}

// LoadSnapshot returns the last-known-good snapshot for a factor, if any.
func (s *Store) LoadSnapshot(ctx context.Context, factorID string) (*domain.FactorReading, error) {
	raw, ok, err := s.kv.Get(ctx, snapshotKey(factorID))
	if err != nil {
		return nil, fmt.Errorf("failed to read factor snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var reading domain.FactorReading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factor snapshot: %w", err)
	}
	return &reading, nil
}
