package ingestors

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
)

func TestTickBreadthIngestor_ReadsPushedPayload(t *testing.T) {
	kv := kvstore.NewAuto("")
	payload := domain.TickPayload{TickHigh: 600, TickLow: -200, Date: time.Now()}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), KeyTickCurrent, raw, time.Hour))

	ing := NewTickBreadthIngestor(kv)
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, "tick_breadth", fr.FactorID)
}

func TestTickBreadthIngestor_ReturnsNilWhenAbsent(t *testing.T) {
	kv := kvstore.NewAuto("")
	ing := NewTickBreadthIngestor(kv)
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fr)
}

func TestPutCallRatioIngestor_HighRatioIsBearish(t *testing.T) {
	kv := kvstore.NewAuto("")
	raw, err := json.Marshal(domain.PCRPayload{PCR: 1.4})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), KeyPCRCurrent, raw, time.Hour))

	ing := NewPutCallRatioIngestor(kv)
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Less(t, fr.Score, 0.0)
}

func TestBreadthMomentumIngestor_PrefersWebhookOverFallback(t *testing.T) {
	kv := kvstore.NewAuto("")
	raw, err := json.Marshal(domain.BreadthPayload{UVol: 2_000_000, DVol: 500_000})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), KeyBreadthUvolDvol, raw, time.Hour))

	ing := NewBreadthMomentumIngestor(kv, nil)
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Greater(t, fr.Score, 0.0)
}

func TestBreadthMomentumIngestor_FallsBackWhenAbsent(t *testing.T) {
	kv := kvstore.NewAuto("")
	called := false
	fallback := fallbackIngestorFunc{fn: func() (*domain.FactorReading, error) {
		called = true
		return reading("breadth_momentum", 0.1, "fallback_source", "", time.Now()), nil
	}}

	ing := NewBreadthMomentumIngestor(kv, fallback)
	_, err := ing.Compute(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
}

type fallbackIngestorFunc struct {
	fn func() (*domain.FactorReading, error)
}

func (f fallbackIngestorFunc) FactorID() string { return "breadth_momentum" }
func (f fallbackIngestorFunc) Compute(ctx context.Context) (*domain.FactorReading, error) {
	return f.fn()
}
