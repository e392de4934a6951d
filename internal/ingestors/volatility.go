package ingestors

import (
	"context"
	"fmt"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/marketdata"
)

// vixRegimeIngestor scores the VIX's absolute level against the verbatim
// band table.
type vixRegimeIngestor struct {
	fetcher marketdata.Fetcher
}

// NewVIXRegimeIngestor builds the VIX-level regime ingestor.
func NewVIXRegimeIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &vixRegimeIngestor{fetcher: fetcher}
}

func (i *vixRegimeIngestor) FactorID() string { return "vix_regime" }

func (i *vixRegimeIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	bars, err := i.fetcher.FetchDaily(ctx, "VIX", 5)
	if err != nil {
		return nil, fmt.Errorf("vix_regime: fetch VIX: %w", err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	vix := bars[len(bars)-1].Close
	score := vixRegimeBand(vix)
	detail := fmt.Sprintf("VIX=%.2f", vix)
	return fallbackReading("vix_regime", score, "marketdata", detail), nil
}

// vixTermIngestor scores the VIX/VIX3M term structure ratio, a standard
// contango/backwardation read on forward volatility expectations. Falls
// back to treating VIX3M as unavailable (excluding the factor) rather than
// guessing at a substitute series, since a missing VIX3M read genuinely
// means the term structure cannot be determined this cycle.
type vixTermIngestor struct {
	fetcher marketdata.Fetcher
}

// NewVIXTermIngestor builds the VIX term structure ingestor.
func NewVIXTermIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &vixTermIngestor{fetcher: fetcher}
}

func (i *vixTermIngestor) FactorID() string { return "vix_term" }

func (i *vixTermIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	vixBars, err := i.fetcher.FetchDaily(ctx, "VIX", 5)
	if err != nil {
		return nil, fmt.Errorf("vix_term: fetch VIX: %w", err)
	}
	if len(vixBars) == 0 {
		return nil, nil
	}
	vix := vixBars[len(vixBars)-1].Close

	vix3mBars, err := i.fetcher.FetchDaily(ctx, "VIX3M", 5)
	if err != nil || len(vix3mBars) == 0 {
		// Graceful VIX-only fallback: without a forward curve point there is
		// no term structure to score, so the reading is withheld entirely
		// rather than degraded to a single-point proxy.
		return nil, nil
	}
	vix3m := vix3mBars[len(vix3mBars)-1].Close
	if vix3m == 0 {
		return nil, nil
	}
	ratio := vix / vix3m
	// ratio > 1 is backwardation (near-term fear spiking above forward
	// expectations) and is bearish; invert the generic ratio band's polarity.
	score := -ratioBand(ratio)
	detail := fmt.Sprintf("VIX/VIX3M=%.4f", ratio)
	return fallbackReading("vix_term", score, "marketdata", detail), nil
}
