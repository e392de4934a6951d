package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/domain/indicators"
)

func TestGoldenTouchRule_TriggersOnQualifyingTouch(t *testing.T) {
	p := panel{
		Price: 95, Low: 95.5, High60: 106, SMA120: 96, SMA20: 100,
		sma120ok: true, sma20ok: true, high60ok: true, StreakAboveSMA120: 60,
	}
	sig, ok := goldenTouchRule("SPY", nil, p, domain.ZoneTransition, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.SignalGoldenTouch, sig.SignalType)
	assert.Equal(t, domain.ConfidenceHigh, sig.Confidence)
}

func TestGoldenTouchRule_RejectsShortStreak(t *testing.T) {
	p := panel{
		Price: 95, Low: 95.5, High60: 106, SMA120: 96, SMA20: 100,
		sma120ok: true, sma20ok: true, high60ok: true, StreakAboveSMA120: 10,
	}
	_, ok := goldenTouchRule("SPY", nil, p, domain.ZoneTransition, domain.ZoneUnknown)
	assert.False(t, ok)
}

func TestTwoCloseVolumeRule_TriggersOnReclaimWithVolume(t *testing.T) {
	bars := []indicators.PriceBar{
		{Close: 99, Volume: 900_000},
		{Close: 101, Volume: 950_000},
		{Close: 102, Volume: 1_200_000},
	}
	p := panel{SMA50: 100, sma50ok: true, Vol20Avg: 1_000_000}
	sig, ok := twoCloseVolumeRule("SPY", bars, p, domain.ZoneTransition, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.SignalTwoCloseVolume, sig.SignalType)
}

func TestTwoCloseVolumeRule_RejectsWeakVolume(t *testing.T) {
	bars := []indicators.PriceBar{
		{Close: 99, Volume: 900_000},
		{Close: 101, Volume: 950_000},
		{Close: 102, Volume: 1_050_000},
	}
	p := panel{SMA50: 100, sma50ok: true, Vol20Avg: 1_000_000}
	_, ok := twoCloseVolumeRule("SPY", bars, p, domain.ZoneTransition, domain.ZoneUnknown)
	assert.False(t, ok)
}

func TestPullbackEntryRule_TriggersOnCompletingPullback(t *testing.T) {
	bars := []indicators.PriceBar{
		{Close: 97},
		{Close: 100.3},
	}
	p := panel{Price: 100.3, Low: 100.1, High: 100.5, SMA20: 100, sma20ok: true}
	sig, ok := pullbackEntryRule("SPY", bars, p, domain.ZoneMaxLong, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.SignalPullbackEntry, sig.SignalType)
}

func TestPullbackEntryRule_RequiresMaxLongZone(t *testing.T) {
	bars := []indicators.PriceBar{{Close: 97}, {Close: 100.3}}
	p := panel{Price: 100.3, Low: 100.1, High: 100.5, SMA20: 100, sma20ok: true}
	_, ok := pullbackEntryRule("SPY", bars, p, domain.ZoneTransition, domain.ZoneUnknown)
	assert.False(t, ok)
}

func TestZoneUpgradeRule_TriggersOnImprovingZone(t *testing.T) {
	p := panel{}
	sig, ok := zoneUpgradeRule("SPY", nil, p, domain.ZoneDeLeveraging, domain.ZoneWaterfall)
	require.True(t, ok)
	assert.Equal(t, domain.SignalZoneUpgrade, sig.SignalType)
}

func TestZoneUpgradeRule_RejectsBelowDeLeveragingFloor(t *testing.T) {
	p := panel{}
	_, ok := zoneUpgradeRule("SPY", nil, p, domain.ZoneWaterfall, domain.ZoneCapitulation)
	assert.False(t, ok)
}

func TestTrappedLongsRule_TriggersOnBreakdown(t *testing.T) {
	p := panel{
		Price: 95, SMA200: 100, VWAP20: 98, ADX14: 25, RSI14: 45, RVOL: 1.5,
		sma200ok: true, rvolOk: true,
	}
	sig, ok := trappedLongsRule("SPY", nil, p, domain.ZoneWaterfall, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.SignalTrappedLongs, sig.SignalType)
	assert.Equal(t, domain.DirectionShort, sig.Direction)
}

func TestTrappedLongsRule_UpgradesToHighConfidenceOnStrongConditions(t *testing.T) {
	p := panel{
		Price: 95, SMA200: 100, VWAP20: 98, ADX14: 35, RSI14: 45, RVOL: 2.5,
		sma200ok: true, rvolOk: true,
	}
	sig, ok := trappedLongsRule("SPY", nil, p, domain.ZoneWaterfall, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.ConfidenceHigh, sig.Confidence)
	assert.Equal(t, 100, sig.Priority)
}

func TestTrappedShortsRule_TriggersOnBreakout(t *testing.T) {
	p := panel{
		Price: 105, SMA200: 100, VWAP20: 102, ADX14: 25, RSI14: 55, RVOL: 1.5,
		sma200ok: true, rvolOk: true,
	}
	sig, ok := trappedShortsRule("SPY", nil, p, domain.ZoneMaxLong, domain.ZoneUnknown)
	require.True(t, ok)
	assert.Equal(t, domain.SignalTrappedShorts, sig.SignalType)
	assert.Equal(t, domain.DirectionLong, sig.Direction)
}
