package ingestors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/kvstore"
)

func factorIDSet(t *testing.T, r *Registry) map[string]bool {
	t.Helper()
	out := make(map[string]bool, len(r.ingestors))
	for _, ing := range r.ingestors {
		out[ing.FactorID()] = true
	}
	return out
}

func TestBuildIntraday_WiresEveryIntradayFactorID(t *testing.T) {
	kv := kvstore.NewAuto("")
	registry := BuildIntraday(&fakeFetcher{bars: nil}, kv)
	ids := factorIDSet(t, registry)

	for _, fc := range config.DefaultFactorConfigs() {
		if fc.Timeframe != domain.TimeframeIntraday {
			continue
		}
		assert.True(t, ids[fc.FactorID], "missing intraday ingestor for %s", fc.FactorID)
	}
	assert.Len(t, ids, 6)
}

func TestBuildSwingMacro_WiresEverySwingAndMacroFactorID(t *testing.T) {
	kv := kvstore.NewAuto("")
	store := factorstore.New(kv, nil, time.Hour, config.DefaultFactorConfigs())
	cfg := &config.Config{Manual: map[string]config.ManualFactorValue{
		"savita": {Score: 0.1, Detail: "test"},
	}}

	registry := BuildSwingMacro(&fakeFetcher{bars: nil}, singleObs(1), kv, store, cfg)
	ids := factorIDSet(t, registry)

	for _, fc := range config.DefaultFactorConfigs() {
		if fc.Timeframe == domain.TimeframeIntraday {
			continue
		}
		assert.True(t, ids[fc.FactorID], "missing swing/macro ingestor for %s", fc.FactorID)
	}
	assert.Len(t, ids, 17)
}
