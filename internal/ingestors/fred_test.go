package ingestors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/domain/indicators"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/kvstore"
)

// stubFredFetcher serves the last lookback observations from obs, oldest
// first, the same slicing FetchSeries callers expect from a real client.
type stubFredFetcher struct {
	obs []FredObservation
	err error
}

func (s *stubFredFetcher) FetchSeries(ctx context.Context, seriesID string, lookback int) ([]FredObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if lookback >= len(s.obs) {
		return s.obs, nil
	}
	return s.obs[len(s.obs)-lookback:], nil
}

func singleObs(value float64) *stubFredFetcher {
	return &stubFredFetcher{obs: []FredObservation{{Value: value, ObservedAt: time.Now()}}}
}

func TestYieldCurveIngestor_LiveFetchScoresBand(t *testing.T) {
	ing := NewYieldCurveIngestor(singleObs(1.2), nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, "fred", fr.Source)
	assert.Equal(t, 0.5, fr.Score)
}

func TestYieldCurveIngestor_ReturnsNilWithoutSnapshotOnFailure(t *testing.T) {
	fetcher := &stubFredFetcher{err: errors.New("fred unavailable")}
	ing := NewYieldCurveIngestor(fetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fr)
}

func TestYieldCurveIngestor_FallsBackToSnapshotOnFailure(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	store := factorstore.New(kv, nil, time.Hour, []domain.FactorConfig{
		{FactorID: "yield_curve", Weight: 0.05, StalenessHours: 72, SnapshotBacked: true},
	})
	require.NoError(t, store.StoreReading(ctx, domain.FactorReading{
		FactorID: "yield_curve", Score: 0.3, Timestamp: time.Now(), Source: "fred",
	}))

	fetcher := &stubFredFetcher{err: errors.New("fred unavailable")}
	ing := NewYieldCurveIngestor(fetcher, store)

	fr, err := ing.Compute(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, "fred_cache", fr.Source)
	assert.Equal(t, 0.3, fr.Score)
}

func TestSahmRuleIngestor_RecessionThreshold(t *testing.T) {
	ing := NewSahmRuleIngestor(singleObs(0.55), nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, domain.BiasUrsaMajor, fr.Signal)
}

func weeklyObs(start time.Time, values ...float64) []FredObservation {
	obs := make([]FredObservation, len(values))
	for i, v := range values {
		obs[i] = FredObservation{Value: v, ObservedAt: start.AddDate(0, 0, 7*i)}
	}
	return obs
}

func TestInitialClaimsIngestor_BandsTheFourWeekAverageLevelNotAPercentChange(t *testing.T) {
	start := time.Now().AddDate(0, 0, -56)
	// Prior 4 weeks and latest 4 weeks both average 230k: flat, no trend adjustment.
	fetcher := &stubFredFetcher{obs: weeklyObs(start, 230_000, 230_000, 230_000, 230_000, 230_000, 230_000, 230_000, 230_000)}
	ing := NewInitialClaimsIngestor(fetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 0.2, fr.Score, "230k falls in the 220k-250k band (+0.2) with a stable trend")
}

func TestInitialClaimsIngestor_RisingTrendPenalizesScore(t *testing.T) {
	start := time.Now().AddDate(0, 0, -56)
	fetcher := &stubFredFetcher{obs: weeklyObs(start, 200_000, 200_000, 200_000, 200_000, 230_000, 230_000, 230_000, 230_000)}
	ing := NewInitialClaimsIngestor(fetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.InDelta(t, 0.1, fr.Score, 1e-9, "220k-250k band (+0.2) minus the rising-trend penalty (-0.1)")
}

func TestInitialClaimsIngestor_InsufficientHistoryFallsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	store := factorstore.New(kv, nil, time.Hour, []domain.FactorConfig{
		{FactorID: "initial_claims", Weight: 0.05, StalenessHours: 168, SnapshotBacked: true},
	})
	require.NoError(t, store.StoreReading(ctx, domain.FactorReading{
		FactorID: "initial_claims", Score: -0.2, Timestamp: time.Now(), Source: "fred",
	}))

	fetcher := &stubFredFetcher{obs: weeklyObs(time.Now(), 230_000)}
	ing := NewInitialClaimsIngestor(fetcher, store)

	fr, err := ing.Compute(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, "fred_cache", fr.Source)
}

func monthlyObs(start time.Time, values ...float64) []FredObservation {
	obs := make([]FredObservation, len(values))
	for i, v := range values {
		obs[i] = FredObservation{Value: v, ObservedAt: start.AddDate(0, i, 0)}
	}
	return obs
}

func TestISMManufacturingIngestor_BandsYearOverYearChangeNotTheRawLevel(t *testing.T) {
	start := time.Now().AddDate(-1, -1, 0)
	values := make([]float64, 13)
	for i := range values {
		values[i] = 12_800.0 // flat manufacturing employment: 0% YoY
	}
	fetcher := &stubFredFetcher{obs: monthlyObs(start, values...)}
	ing := NewISMManufacturingIngestor(fetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 0.1, fr.Score, "0% YoY change falls in the 0.0-0.5 band (+0.1)")
}

func TestISMManufacturingIngestor_RisingEmploymentScoresBullish(t *testing.T) {
	start := time.Now().AddDate(-1, -1, 0)
	values := make([]float64, 13)
	for i := range values {
		values[i] = 12_500.0
	}
	values[len(values)-1] = 12_900.0 // +3.2% YoY vs the 12-months-ago print
	fetcher := &stubFredFetcher{obs: monthlyObs(start, values...)}
	ing := NewISMManufacturingIngestor(fetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 0.7, fr.Score)
}

func TestExcessCAPEIngestor_ScoresECYFromCAPEAndTenYearYield(t *testing.T) {
	// CAPE 30 -> earnings yield 3.33%; 10Y at 2% -> ECY 1.33% -> the 1.0-2.0 band (0.0).
	fred := singleObs(30)
	priceFetcher := &fakeFetcher{bars: map[string][]indicators.PriceBar{
		"TNX": flatBars(2.0, 5),
	}}
	ing := NewExcessCAPEIngestor(fred, priceFetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 0.0, fr.Score)
}

func TestExcessCAPEIngestor_TriesSecondSeriesIDBeforeFailing(t *testing.T) {
	fred := &sequencedFredFetcher{
		bySeriesID: map[string][]FredObservation{
			"SP500_PE_RATIO_MONTH": {{Value: 25, ObservedAt: time.Now()}},
		},
	}
	priceFetcher := &fakeFetcher{bars: map[string][]indicators.PriceBar{"TNX": flatBars(2.0, 5)}}
	ing := NewExcessCAPEIngestor(fred, priceFetcher, nil)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
}

func TestExcessCAPEIngestor_FallsBackToSnapshotWhenNoCAPESeriesAvailable(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	store := factorstore.New(kv, nil, time.Hour, []domain.FactorConfig{
		{FactorID: "excess_cape", Weight: 0.05, StalenessHours: 168, SnapshotBacked: true},
	})
	require.NoError(t, store.StoreReading(ctx, domain.FactorReading{
		FactorID: "excess_cape", Score: 0.3, Timestamp: time.Now(), Source: "fred",
	}))

	fred := &stubFredFetcher{err: errors.New("fred unavailable")}
	priceFetcher := &fakeFetcher{bars: map[string][]indicators.PriceBar{"TNX": flatBars(2.0, 5)}}
	ing := NewExcessCAPEIngestor(fred, priceFetcher, store)

	fr, err := ing.Compute(ctx)
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, "fred_cache", fr.Source)
}

// sequencedFredFetcher serves distinct observations per series ID, for
// exercising excessCAPEIngestor's ordered series-ID fallback.
type sequencedFredFetcher struct {
	bySeriesID map[string][]FredObservation
}

func (s *sequencedFredFetcher) FetchSeries(ctx context.Context, seriesID string, lookback int) ([]FredObservation, error) {
	obs, ok := s.bySeriesID[seriesID]
	if !ok {
		return nil, errors.New("series not found: " + seriesID)
	}
	return obs, nil
}
