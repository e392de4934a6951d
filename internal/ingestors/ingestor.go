// Package ingestors implements the closed set of factor ingestors (C4):
// one Ingestor per row in the factor configuration table, each producing a
// FactorReading or (nil, nil) when it cannot currently determine a score.
package ingestors

import (
	"context"
	"time"

	"github.com/duskline/biasengine/internal/domain"
)

// Ingestor computes one factor's current reading.
type Ingestor interface {
	FactorID() string
	Compute(ctx context.Context) (*domain.FactorReading, error)
}

// reading builds a FactorReading with a real, payload-sourced timestamp.
func reading(factorID string, score float64, source, detail string, ts time.Time) *domain.FactorReading {
	score = domain.Clamp(score)
	return &domain.FactorReading{
		FactorID:  factorID,
		Score:     score,
		Signal:    domain.BandFor(score),
		Timestamp: ts,
		Source:    source,
		Detail:    detail,
		Metadata:  domain.ReadingMetadata{TimestampSource: domain.TimestampTimestamp},
	}
}

// fallbackReading builds a FactorReading whose timestamp could not be
// sourced from the underlying payload and is instead the current wall
// clock; marked so the composite engine can count it unverifiable.
func fallbackReading(factorID string, score float64, source, detail string) *domain.FactorReading {
	score = domain.Clamp(score)
	return &domain.FactorReading{
		FactorID:  factorID,
		Score:     score,
		Signal:    domain.BandFor(score),
		Timestamp: time.Now(),
		Source:    source,
		Detail:    detail,
		Metadata:  domain.ReadingMetadata{TimestampSource: domain.TimestampFallback},
	}
}

// MetricsRecorder is the narrow instrumentation surface the registry reports
// per-ingestor outcomes to; satisfied by *internal/metrics.Recorder.
type MetricsRecorder interface {
	RecordIngestorRun(factorID, outcome string, d time.Duration)
}

// Registry runs every configured ingestor for one factor refresh cycle.
type Registry struct {
	ingestors []Ingestor
	metrics   MetricsRecorder
}

// NewRegistry builds a registry over the given ingestor set.
func NewRegistry(ingestors ...Ingestor) *Registry {
	return &Registry{ingestors: ingestors}
}

// SetMetrics installs an instrumentation recorder; nil disables it.
func (r *Registry) SetMetrics(m MetricsRecorder) {
	r.metrics = m
}

// RunAll computes every ingestor's reading, skipping (not failing) on
// individual errors or nil results - a factor read failure is silent by
// design and simply leaves that factor stale for this cycle.
func (r *Registry) RunAll(ctx context.Context) []domain.FactorReading {
	var out []domain.FactorReading
	for _, ing := range r.ingestors {
		start := time.Now()
		fr, err := ing.Compute(ctx)
		if r.metrics != nil {
			outcome := "ok"
			switch {
			case err != nil:
				outcome = "error"
			case fr == nil:
				outcome = "no_reading"
			}
			r.metrics.RecordIngestorRun(ing.FactorID(), outcome, time.Since(start))
		}
		if err != nil || fr == nil {
			continue
		}
		out = append(out, *fr)
	}
	return out
}
