package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA_InsufficientData(t *testing.T) {
	_, ok := SMA([]float64{1, 2}, 5)
	assert.False(t, ok)
}

func TestSMA_ComputesWindowAverage(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9) // avg(3,4,5)
}

func TestEMA_SeedsFromSimpleAverage(t *testing.T) {
	prices := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		prices = append(prices, 100)
	}
	v, ok := EMA(prices, 10)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestVWAP_RequiresVolume(t *testing.T) {
	bars := []PriceBar{
		{High: 10, Low: 8, Close: 9, Volume: 0},
		{High: 10, Low: 8, Close: 9, Volume: 0},
	}
	_, ok := VWAP(bars, 2)
	assert.False(t, ok)
}

func TestVWAP_ComputesVolumeWeightedTypicalPrice(t *testing.T) {
	bars := []PriceBar{
		{High: 12, Low: 8, Close: 10, Volume: 100},
		{High: 12, Low: 8, Close: 10, Volume: 300},
	}
	v, ok := VWAP(bars, 2)
	assert.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestRVOL_ComparesCurrentToRollingAverage(t *testing.T) {
	bars := []PriceBar{
		{Volume: 100}, {Volume: 100}, {Volume: 100}, {Volume: 100}, {Volume: 400},
	}
	v, ok := RVOL(bars, 4)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)
}

func TestCalculateRSI_NeutralOnInsufficientData(t *testing.T) {
	r := CalculateRSI([]float64{1, 2}, 14)
	assert.False(t, r.IsValid)
	assert.InDelta(t, 50.0, r.Value, 1e-9)
}

func TestCalculateATR_InvalidOnInsufficientBars(t *testing.T) {
	r := CalculateATR([]PriceBar{{High: 1, Low: 0, Close: 0.5}}, 14)
	assert.False(t, r.IsValid)
}

func TestCalculateHurstExponent_RandomWalkDefaultOnInsufficientData(t *testing.T) {
	r := CalculateHurstExponent([]float64{1, 2, 3}, 50)
	assert.False(t, r.IsValid)
	assert.InDelta(t, 0.5, r.Exponent, 1e-9)
}
