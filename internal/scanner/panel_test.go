package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain/indicators"
)

func risingBars(n int, start, step float64) []indicators.PriceBar {
	bars := make([]indicators.PriceBar, n)
	price := start
	for i := 0; i < n; i++ {
		bars[i] = indicators.PriceBar{High: price + 0.5, Low: price - 0.5, Close: price, Volume: 1_000_000}
		price += step
	}
	return bars
}

func TestBuildPanel_RequiresMinimumHistory(t *testing.T) {
	_, err := buildPanel(risingBars(50, 100, 0.1))
	require.Error(t, err)
}

func TestBuildPanel_ComputesSMAStack(t *testing.T) {
	bars := risingBars(250, 100, 0.1)
	p, err := buildPanel(bars)
	require.NoError(t, err)
	assert.True(t, p.sma20ok)
	assert.True(t, p.sma50ok)
	assert.True(t, p.sma120ok)
	assert.True(t, p.sma200ok)
	assert.Greater(t, p.SMA20, p.SMA120, "uptrend should have SMA20 leading SMA120")
}

func TestStreakAboveSMA_CountsConsecutiveBarsAbove(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.2
	}
	streak := streakAboveSMA(closes, 120)
	assert.Greater(t, streak, 0)
}

func TestRollingHigh_FindsMaxInWindow(t *testing.T) {
	bars := risingBars(100, 100, 1.0)
	high, ok := rollingHigh(bars, 60)
	require.True(t, ok)
	assert.InDelta(t, bars[len(bars)-1].High, high, 1e-9)
}
