package scanner

import (
	"fmt"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/domain/indicators"
)

const (
	smaShort   = 20
	smaMedium  = 50
	smaLong    = 120
	smaTrend   = 200
	atrPeriod  = 14
	adxPeriod  = 14
	rsiPeriod  = 14
	volWindow  = 20
	highWindow = 60
	minPanelBars = smaLong + 1
)

// panel is the full indicator set computed for one ticker at its most
// recent bar; context.IndicatorSnapshot is the subset the spec persists
// onto an emitted Signal.
type panel struct {
	Price  float64
	Low    float64
	High   float64
	Volume float64

	SMA20, SMA50, SMA120, SMA200       float64
	sma20ok, sma50ok, sma120ok, sma200ok bool

	ATR14  float64
	VWAP20 float64
	ADX14  float64
	RSI14  float64
	RVOL   float64
	rvolOk bool

	Vol20Avg          float64
	High60            float64
	high60ok          bool
	StreakAboveSMA120 int
}

// buildPanel computes the indicator panel at the last bar of bars, which
// must be ordered oldest-first.
func buildPanel(bars []indicators.PriceBar) (panel, error) {
	if len(bars) < minPanelBars {
		return panel{}, fmt.Errorf("scanner: need at least %d bars, got %d", minPanelBars, len(bars))
	}
	closes := closesOf(bars)
	last := bars[len(bars)-1]

	var p panel
	p.Price = last.Close
	p.Low = last.Low
	p.High = last.High
	p.Volume = last.Volume

	p.SMA20, p.sma20ok = indicators.SMA(closes, smaShort)
	p.SMA50, p.sma50ok = indicators.SMA(closes, smaMedium)
	p.SMA120, p.sma120ok = indicators.SMA(closes, smaLong)
	p.SMA200, p.sma200ok = indicators.SMA(closes, smaTrend)

	p.ATR14 = indicators.CalculateATR(bars, atrPeriod).Value
	p.VWAP20, _ = indicators.VWAP(bars, smaShort)
	p.ADX14 = indicators.CalculateADX(bars, adxPeriod).ADX
	p.RSI14 = indicators.CalculateRSI(closes, rsiPeriod).Value
	p.RVOL, p.rvolOk = indicators.RVOL(bars, volWindow)

	p.Vol20Avg = rollingVolumeAvg(bars, volWindow)
	p.High60, p.high60ok = rollingHigh(bars, highWindow)
	p.StreakAboveSMA120 = streakAboveSMA(closes, smaLong)

	return p, nil
}

func closesOf(bars []indicators.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func rollingVolumeAvg(bars []indicators.PriceBar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}
	window := bars[len(bars)-1-period : len(bars)-1]
	var sum float64
	for _, b := range window {
		sum += b.Volume
	}
	return sum / float64(period)
}

func rollingHigh(bars []indicators.PriceBar, period int) (float64, bool) {
	if len(bars) < period {
		return 0, false
	}
	window := bars[len(bars)-period:]
	high := window[0].High
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high, true
}

// streakAboveSMA counts the number of consecutive trailing closes that sit
// above the SMA computed over their own trailing window, stopping at the
// first close that does not.
func streakAboveSMA(closes []float64, period int) int {
	streak := 0
	for i := len(closes) - 1; i >= period-1; i-- {
		window := closes[i-period+1 : i+1]
		sma, ok := indicators.SMA(window, period)
		if !ok || closes[i] <= sma {
			break
		}
		streak++
	}
	return streak
}

func distancePct(price, sma float64) float64 {
	if sma == 0 {
		return 0
	}
	return (price - sma) / sma * 100
}

func (p panel) toSnapshot() domain.IndicatorSnapshot {
	return domain.IndicatorSnapshot{
		Price: p.Price, SMA20: p.SMA20, SMA50: p.SMA50, SMA120: p.SMA120, SMA200: p.SMA200,
		ATR14: p.ATR14, VWAP20: p.VWAP20, ADX14: p.ADX14, RSI14: p.RSI14, RVOL: p.RVOL,
	}
}
