package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain"
)

func TestScoreConfluence_ConflictingDirectionsMarkedLowConfidence(t *testing.T) {
	signals := []domain.Signal{
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalGoldenTouch, Confidence: domain.ConfidenceHigh},
		{Symbol: "SPY", Direction: domain.DirectionShort, SignalType: domain.SignalTrappedLongs, Confidence: domain.ConfidenceHigh},
	}
	out := scoreConfluence(signals)
	for _, s := range out {
		assert.Equal(t, domain.ConfidenceLow, s.Confidence)
		require.NotNil(t, s.Confluence)
		assert.Equal(t, "CONFLICTING_SIGNALS", s.Confluence.Warning)
	}
}

func TestScoreConfluence_NamedComboUpgradesConfidence(t *testing.T) {
	signals := []domain.Signal{
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalGoldenTouch, Confidence: domain.ConfidenceHigh},
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalTrappedShorts, Confidence: domain.ConfidenceMedium},
	}
	out := scoreConfluence(signals)
	for _, s := range out {
		require.NotNil(t, s.Confluence)
		assert.Equal(t, 65, s.Confluence.Boost)
		assert.Equal(t, "Squeeze into trend", s.Confluence.Combo)
		assert.Equal(t, domain.ConfidenceHigh, s.Confidence)
	}
}

func TestScoreConfluence_UnnamedPairGetsBaseBoostOnly(t *testing.T) {
	signals := []domain.Signal{
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalPullbackEntry, Confidence: domain.ConfidenceMedium},
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalZoneUpgrade, Confidence: domain.ConfidenceMedium},
	}
	out := scoreConfluence(signals)
	for _, s := range out {
		require.NotNil(t, s.Confluence)
		assert.Equal(t, 25, s.Confluence.Boost)
		assert.Equal(t, domain.ConfidenceMedium, s.Confidence, "boost below 40 must not upgrade confidence")
	}
}

func TestScoreConfluence_SingleSignalUntouched(t *testing.T) {
	signals := []domain.Signal{
		{Symbol: "SPY", Direction: domain.DirectionLong, SignalType: domain.SignalGoldenTouch, Confidence: domain.ConfidenceHigh},
	}
	out := scoreConfluence(signals)
	assert.Nil(t, out[0].Confluence)
}
