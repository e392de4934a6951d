package ingestors

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
)

func TestSavitaIngestor_ReturnsNilWhenUnset(t *testing.T) {
	ing := NewSavitaIngestor(kvstore.NewAuto(""), &config.Config{})
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fr)
}

func TestSavitaIngestor_UsesConfiguredValue(t *testing.T) {
	cfg := &config.Config{Manual: map[string]config.ManualFactorValue{
		"savita": {Score: 0.25, Detail: "strategist note 2026-07"},
	}}
	ing := NewSavitaIngestor(kvstore.NewAuto(""), cfg)

	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, 0.25, fr.Score)
	assert.Equal(t, "config", fr.Source)
}

func TestSavitaIngestor_OverridePreferredOverConfig(t *testing.T) {
	kv := kvstore.NewAuto("")
	cfg := &config.Config{Manual: map[string]config.ManualFactorValue{
		"savita": {Score: 0.25},
	}}
	raw, err := json.Marshal(domain.FactorOverridePayload{Score: -0.1, Detail: "pushed correction", Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), OverrideKey("savita"), raw, time.Hour))

	ing := NewSavitaIngestor(kv, cfg)
	fr, err := ing.Compute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fr)
	assert.Equal(t, -0.1, fr.Score)
	assert.Equal(t, "manual_override", fr.Source)
}
