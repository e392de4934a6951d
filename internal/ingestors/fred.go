package ingestors

import (
	"context"
	"fmt"
	"time"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/marketdata"
)

// FredObservation is one dated value in a FRED economic series.
type FredObservation struct {
	Value      float64
	ObservedAt time.Time
}

// FredFetcher retrieves recent observations for a FRED economic series,
// oldest first - mirroring marketdata.Fetcher's FetchDaily lookback
// convention so factors needing a trend or a year-over-year comparison
// can look back further than the latest print.
type FredFetcher interface {
	FetchSeries(ctx context.Context, seriesID string, lookback int) ([]FredObservation, error)
}

// fredSnapshotFallback loads the factor's last-known-good snapshot after a
// live fetch failed or returned too little history, tagging the source
// "fred_cache". If neither is available it withholds the reading.
func fredSnapshotFallback(ctx context.Context, store *factorstore.Store, factorID string, fetchErr error) (*domain.FactorReading, error) {
	if store == nil {
		return nil, nil
	}
	snap, snapErr := store.LoadSnapshot(ctx, factorID)
	if snapErr != nil {
		return nil, fmt.Errorf("%s: live fetch failed (%v) and snapshot load failed: %w", factorID, fetchErr, snapErr)
	}
	if snap == nil {
		return nil, nil
	}
	snap.Source = "fred_cache"
	return snap, nil
}

func avgValue(obs []FredObservation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var sum float64
	for _, o := range obs {
		sum += o.Value
	}
	return sum / float64(len(obs))
}

// fredIngestor tries a single-value live FRED fetch and bands it directly;
// on any failure it falls back to the persisted snapshot. Used for series
// whose latest print alone is enough context to score.
type fredIngestor struct {
	factorID string
	seriesID string
	band     func(value float64) float64
	fetcher  FredFetcher
	store    *factorstore.Store
}

func newFredIngestor(factorID, seriesID string, band func(float64) float64, fetcher FredFetcher, store *factorstore.Store) *fredIngestor {
	return &fredIngestor{factorID: factorID, seriesID: seriesID, band: band, fetcher: fetcher, store: store}
}

func (i *fredIngestor) FactorID() string { return i.factorID }

func (i *fredIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	obs, err := i.fetcher.FetchSeries(ctx, i.seriesID, 1)
	if err == nil && len(obs) > 0 {
		latest := obs[len(obs)-1]
		score := i.band(latest.Value)
		detail := fmt.Sprintf("%s=%.4f", i.seriesID, latest.Value)
		return reading(i.factorID, score, "fred", detail, latest.ObservedAt), nil
	}
	if err == nil {
		err = fmt.Errorf("%s: no observations returned for %s", i.factorID, i.seriesID)
	}
	return fredSnapshotFallback(ctx, i.store, i.factorID, err)
}

// NewYieldCurveIngestor scores the 10y-2y Treasury spread against the
// verbatim band table, with FRED-cache fallback.
func NewYieldCurveIngestor(fetcher FredFetcher, store *factorstore.Store) Ingestor {
	return newFredIngestor("yield_curve", "T10Y2Y", yieldCurveBand, fetcher, store)
}

// NewSahmRuleIngestor scores the Sahm rule recession indicator: values at
// or above 0.50 historically mark recession onset.
func NewSahmRuleIngestor(fetcher FredFetcher, store *factorstore.Store) Ingestor {
	return newFredIngestor("sahm_rule", "SAHMREALTIME", func(value float64) float64 {
		switch {
		case value >= 0.50:
			return -0.8
		case value >= 0.30:
			return -0.4
		case value >= 0.10:
			return -0.1
		default:
			return 0.2
		}
	}, fetcher, store)
}

// NewHighYieldOASIngestor scores the high-yield option-adjusted spread:
// widening spreads are bearish (credit stress).
func NewHighYieldOASIngestor(fetcher FredFetcher, store *factorstore.Store) Ingestor {
	return newFredIngestor("high_yield_oas", "BAMLH0A0HYM2", func(spreadPct float64) float64 {
		switch {
		case spreadPct > 8:
			return -0.7
		case spreadPct > 6:
			return -0.4
		case spreadPct > 4.5:
			return -0.1
		case spreadPct > 3.5:
			return 0.2
		default:
			return 0.4
		}
	}, fetcher, store)
}

// initialClaimsLookbackWeeks fetches 8 weekly ICSA prints: 4 to average
// for the current level, 4 more to average for the trend comparison.
const initialClaimsLookbackWeeks = 8

// initialClaimsIngestor scores the 4-week average level of initial
// jobless claims (FRED ICSA) against bias_filters/initial_claims.py's
// documented level thresholds, with a rising/falling trend adjustment
// computed against the prior 4-week average - the raw weekly level
// cannot be banded as a percent change the way the generic factors are.
type initialClaimsIngestor struct {
	fetcher FredFetcher
	store   *factorstore.Store
}

// NewInitialClaimsIngestor scores the 4-week average initial jobless
// claims level, trend-adjusted: rising claims is bearish.
func NewInitialClaimsIngestor(fetcher FredFetcher, store *factorstore.Store) Ingestor {
	return &initialClaimsIngestor{fetcher: fetcher, store: store}
}

func (i *initialClaimsIngestor) FactorID() string { return "initial_claims" }

func (i *initialClaimsIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	obs, err := i.fetcher.FetchSeries(ctx, "ICSA", initialClaimsLookbackWeeks)
	if err == nil && len(obs) >= 4 {
		avg4w := avgValue(obs[len(obs)-4:])
		trend := "stable"
		if len(obs) >= 8 {
			prior := avgValue(obs[len(obs)-8 : len(obs)-4])
			switch {
			case avg4w > prior*1.05:
				trend = "rising"
			case avg4w < prior*0.95:
				trend = "falling"
			}
		}
		score := claimsLevelBand(avg4w)
		switch trend {
		case "rising":
			score -= 0.1
		case "falling":
			score += 0.1
		}
		latest := obs[len(obs)-1]
		detail := fmt.Sprintf("Claims 4w avg: %.0fk (latest: %.0fk, %s)", avg4w/1000, latest.Value/1000, trend)
		return reading(i.FactorID(), score, "fred", detail, latest.ObservedAt), nil
	}
	if err == nil {
		err = fmt.Errorf("initial_claims: insufficient ICSA observations for a 4-week average")
	}
	return fredSnapshotFallback(ctx, i.store, i.FactorID(), err)
}

// ismManufacturingLookbackMonths fetches 13 monthly MANEMP prints so a
// year-over-year comparison always has a 12-months-ago observation to
// compare the latest print against.
const ismManufacturingLookbackMonths = 13

// ismManufacturingIngestor scores the year-over-year change in
// manufacturing employment (FRED MANEMP), the proxy bias_filters/
// ism_manufacturing.py uses since ISM stopped publishing NAPM to FRED in
// 2016. The raw employment count is in the tens of thousands and must
// never be compared directly to a 50-midpoint PMI scale.
type ismManufacturingIngestor struct {
	fetcher FredFetcher
	store   *factorstore.Store
}

// NewISMManufacturingIngestor scores manufacturing employment's 12-month
// year-over-year change: rising employment signals expansion.
func NewISMManufacturingIngestor(fetcher FredFetcher, store *factorstore.Store) Ingestor {
	return &ismManufacturingIngestor{fetcher: fetcher, store: store}
}

func (i *ismManufacturingIngestor) FactorID() string { return "ism_manufacturing" }

func (i *ismManufacturingIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	obs, err := i.fetcher.FetchSeries(ctx, "MANEMP", ismManufacturingLookbackMonths)
	if err == nil && len(obs) >= 2 {
		latest := obs[len(obs)-1]
		yearAgo := obs[0]
		if len(obs) >= 13 {
			yearAgo = obs[len(obs)-13]
		}
		if yearAgo.Value != 0 {
			yoyPct := (latest.Value - yearAgo.Value) / yearAgo.Value * 100
			score := mfgEmploymentYoYBand(yoyPct)
			detail := fmt.Sprintf("Mfg employment %.0fk, YoY %+.1f%%", latest.Value, yoyPct)
			return reading(i.FactorID(), score, "fred", detail, latest.ObservedAt), nil
		}
		err = fmt.Errorf("ism_manufacturing: year-ago MANEMP observation is zero")
	}
	if err == nil {
		err = fmt.Errorf("ism_manufacturing: insufficient MANEMP observations for a year-over-year comparison")
	}
	return fredSnapshotFallback(ctx, i.store, i.FactorID(), err)
}

// excessCAPEIngestor scores the excess CAPE yield (ECY): the Shiller CAPE
// earnings yield minus the live 10-year Treasury yield. Unlike this
// module's other macro factors, ECY needs two independent sources - a
// CAPE ratio from FRED and a Treasury yield from the same price feed the
// scanner and composite verifier already fetch through.
type excessCAPEIngestor struct {
	fredFetcher  FredFetcher
	priceFetcher marketdata.Fetcher
	store        *factorstore.Store
}

// NewExcessCAPEIngestor scores the excess CAPE yield: a richer excess
// yield (equities cheap relative to bonds) is bullish.
func NewExcessCAPEIngestor(fredFetcher FredFetcher, priceFetcher marketdata.Fetcher, store *factorstore.Store) Ingestor {
	return &excessCAPEIngestor{fredFetcher: fredFetcher, priceFetcher: priceFetcher, store: store}
}

func (i *excessCAPEIngestor) FactorID() string { return "excess_cape" }

// capeSeriesIDs are tried in order; FRED has carried CAPE under both
// names over the years (bias_filters/factor_excess_cape.py tries the
// same pair before falling back to a scrape this module does not carry).
var capeSeriesIDs = []string{"CAPE", "SP500_PE_RATIO_MONTH"}

func (i *excessCAPEIngestor) fetchCAPE(ctx context.Context) (float64, error) {
	for _, seriesID := range capeSeriesIDs {
		obs, err := i.fredFetcher.FetchSeries(ctx, seriesID, 1)
		if err == nil && len(obs) > 0 {
			return obs[len(obs)-1].Value, nil
		}
	}
	return 0, fmt.Errorf("excess_cape: no CAPE series available from FRED (%v)", capeSeriesIDs)
}

func (i *excessCAPEIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	cape, err := i.fetchCAPE(ctx)
	if err == nil && cape > 0 {
		tenYear, tyErr := latestPrice(ctx, i.priceFetcher, "TNX")
		if tyErr == nil {
			earningsYield := 1.0 / cape
			ecy := (earningsYield - tenYear/100) * 100
			score := excessCAPEBand(ecy)
			detail := fmt.Sprintf("CAPE %.1f, EY %.1f%%, 10Y %.1f%%, ECY %.1f%%", cape, earningsYield*100, tenYear, ecy)
			return fallbackReading(i.FactorID(), score, "fred", detail), nil
		}
		err = tyErr
	} else if err == nil {
		err = fmt.Errorf("excess_cape: non-positive CAPE ratio %v", cape)
	}
	return fredSnapshotFallback(ctx, i.store, i.FactorID(), err)
}

// latestPrice returns the most recent daily close for symbol, the same
// lookback composite.NewMarketVerifier uses for its own quote reads.
func latestPrice(ctx context.Context, fetcher marketdata.Fetcher, symbol string) (float64, error) {
	bars, err := fetcher.FetchDaily(ctx, symbol, 5)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}
