package composite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/breaker"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/kvstore"
)

type stubHistoryRepo struct {
	inserted []domain.CompositeResult
}

func (s *stubHistoryRepo) Insert(ctx context.Context, result domain.CompositeResult) error {
	s.inserted = append(s.inserted, result)
	return nil
}
func (s *stubHistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.CompositeResult, error) {
	return s.inserted, nil
}

type stubAlertsRepo struct {
	inserted []domain.HealthAlert
}

func (s *stubAlertsRepo) Insert(ctx context.Context, alert domain.HealthAlert) error {
	s.inserted = append(s.inserted, alert)
	return nil
}
func (s *stubAlertsRepo) ListUnacknowledged(ctx context.Context) ([]domain.HealthAlert, error) {
	return nil, nil
}
func (s *stubAlertsRepo) Acknowledge(ctx context.Context, ts time.Time, kind string) error { return nil }

type stubBroadcaster struct {
	events []domain.Event
}

func (s *stubBroadcaster) Publish(ctx context.Context, event domain.Event) error {
	s.events = append(s.events, event)
	return nil
}

func twoFactorConfig() []domain.FactorConfig {
	return []domain.FactorConfig{
		{FactorID: "a", Weight: 0.5, StalenessHours: 4},
		{FactorID: "b", Weight: 0.5, StalenessHours: 4},
	}
}

func TestCompute_WeightedSumOfActiveFactors(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	fs := factorstore.New(kv, nil, time.Hour, twoFactorConfig())
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "a", Score: 0.8, Timestamp: time.Now()}))
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "b", Score: 0.4, Timestamp: time.Now()}))

	engine := New(kv, fs, twoFactorConfig(), nil, nil, nil, nil, nil)
	result, err := engine.Compute(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, result.CompositeScore, 1e-9)
	assert.Equal(t, domain.BiasToroMajor, result.BiasLevel)
	assert.Len(t, result.ActiveFactors, 2)
}

func TestCompute_NoActiveFactorsScoresZero(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	fs := factorstore.New(kv, nil, time.Hour, twoFactorConfig())

	engine := New(kv, fs, twoFactorConfig(), nil, nil, nil, nil, nil)
	result, err := engine.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.CompositeScore)
	assert.Equal(t, domain.BiasNeutral, result.BiasLevel)
	assert.Len(t, result.StaleFactors, 2)
}

func TestCompute_CachesWithinShortWindow(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	fs := factorstore.New(kv, nil, time.Hour, twoFactorConfig())
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "a", Score: 0.1, Timestamp: time.Now()}))

	history := &stubHistoryRepo{}
	engine := New(kv, fs, twoFactorConfig(), nil, nil, history, nil, nil)

	_, err := engine.Compute(ctx)
	require.NoError(t, err)
	_, err = engine.Compute(ctx)
	require.NoError(t, err)

	assert.Len(t, history.inserted, 1, "second compute within 15s should hit the short cache")
}

func TestCompute_BiasChangeBroadcastsUpdate(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	fs := factorstore.New(kv, nil, time.Hour, twoFactorConfig())
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "a", Score: 0.1, Timestamp: time.Now()}))
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "b", Score: 0.1, Timestamp: time.Now()}))

	bc := &stubBroadcaster{}
	engine := New(kv, fs, twoFactorConfig(), nil, nil, nil, nil, bc)
	engine.shortMu.Lock()
	engine.cached = &domain.CompositeResult{BiasLevel: domain.BiasUrsaMajor, Confidence: domain.ConfidenceHigh}
	engine.cachedAt = time.Now().Add(-time.Minute)
	engine.shortMu.Unlock()

	result, err := engine.Compute(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, domain.BiasUrsaMajor, result.BiasLevel)
	require.NotEmpty(t, bc.events)
	assert.Equal(t, domain.EventBiasUpdate, bc.events[0].Type)
}

func TestCompute_OverrideAppliesUnlessCrossed(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	fs := factorstore.New(kv, nil, time.Hour, twoFactorConfig())
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "a", Score: 0.1, Timestamp: time.Now()}))
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "b", Score: 0.1, Timestamp: time.Now()}))

	override := domain.Override{Level: domain.BiasToroMajor, SetAt: time.Now()}
	raw, err := json.Marshal(override)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, overrideKey, raw, time.Hour))

	engine := New(kv, fs, twoFactorConfig(), nil, nil, nil, nil, nil)
	result, err := engine.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BiasToroMajor, result.BiasLevel)
	require.NotNil(t, result.Override)
}

func TestCompute_BreakerProjectionCapsBiasNumeric(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewAuto("")
	factors := []domain.FactorConfig{{FactorID: "a", Weight: 1.0, StalenessHours: 4}}
	fs := factorstore.New(kv, nil, time.Hour, factors)
	require.NoError(t, fs.StoreReading(ctx, domain.FactorReading{FactorID: "a", Score: 0.9, Timestamp: time.Now()}))

	brk := breaker.NewManager(kv, nil)
	_, err := brk.Apply(ctx, domain.TriggerSpyDown2Pct)
	require.NoError(t, err)

	engine := New(kv, fs, factors, brk, nil, nil, nil, nil)
	result, err := engine.Compute(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.BiasNumeric, domain.BiasToroMinor.Numeric())
	require.NotNil(t, result.CircuitBreaker)
}
