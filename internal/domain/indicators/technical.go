// Package indicators implements the price-derived technical indicators the
// scanner and the technical factor ingestors anchor their decisions on.
package indicators

import (
	"fmt"
	"math"
)

// RSIResult represents the result of RSI calculation.
type RSIResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateRSI calculates the Relative Strength Index (RSI) for given price data
// using Wilder's smoothing.
func CalculateRSI(prices []float64, period int) RSIResult {
	if len(prices) < period+1 {
		return RSIResult{
			Value:     50.0, // Neutral RSI when insufficient data
			Period:    period,
			IsValid:   false,
			DataCount: len(prices),
		}
	}

	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = prices[i] - prices[i-1]
	}

	gains := make([]float64, len(changes))
	losses := make([]float64, len(changes))

	for i, change := range changes {
		if change > 0 {
			gains[i] = change
			losses[i] = 0
		} else {
			gains[i] = 0
			losses[i] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(changes); i++ {
		avgGain = avgGain*(1-alpha) + gains[i]*alpha
		avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
	}

	if avgLoss == 0 {
		return RSIResult{
			Value:     100.0,
			Period:    period,
			IsValid:   true,
			DataCount: len(prices),
		}
	}

	rs := avgGain / avgLoss
	rsi := 100.0 - (100.0 / (1.0 + rs))

	return RSIResult{
		Value:     rsi,
		Period:    period,
		IsValid:   true,
		DataCount: len(prices),
	}
}

// ATRResult represents the result of ATR calculation.
type ATRResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// PriceBar represents a single OHLCV bar.
type PriceBar struct {
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CalculateATR calculates the Average True Range (ATR) for given OHLC data
// using Wilder's smoothing.
func CalculateATR(bars []PriceBar, period int) ATRResult {
	if len(bars) < period+1 {
		return ATRResult{
			Value:     0.0,
			Period:    period,
			IsValid:   false,
			DataCount: len(bars),
		}
	}

	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		currentBar := bars[i]
		previousClose := bars[i-1].Close

		hl := currentBar.High - currentBar.Low
		hc := math.Abs(currentBar.High - previousClose)
		lc := math.Abs(currentBar.Low - previousClose)

		trueRanges[i-1] = math.Max(hl, math.Max(hc, lc))
	}

	if len(trueRanges) < period {
		return ATRResult{
			Value:     0.0,
			Period:    period,
			IsValid:   false,
			DataCount: len(bars),
		}
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = atr*(1-alpha) + trueRanges[i]*alpha
	}

	return ATRResult{
		Value:     atr,
		Period:    period,
		IsValid:   true,
		DataCount: len(bars),
	}
}

// ADXResult represents the result of ADX calculation.
type ADXResult struct {
	ADX       float64 `json:"adx"`
	PDI       float64 `json:"pdi"`
	MDI       float64 `json:"mdi"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateADX calculates the Average Directional Index (ADX) for trend strength.
func CalculateADX(bars []PriceBar, period int) ADXResult {
	if len(bars) < period*2+1 {
		return ADXResult{
			ADX:       0.0,
			PDI:       0.0,
			MDI:       0.0,
			Period:    period,
			IsValid:   false,
			DataCount: len(bars),
		}
	}

	trueRanges := make([]float64, len(bars)-1)
	plusDM := make([]float64, len(bars)-1)
	minusDM := make([]float64, len(bars)-1)

	for i := 1; i < len(bars); i++ {
		currentBar := bars[i]
		previousBar := bars[i-1]

		hl := currentBar.High - currentBar.Low
		hc := math.Abs(currentBar.High - previousBar.Close)
		lc := math.Abs(currentBar.Low - previousBar.Close)
		trueRanges[i-1] = math.Max(hl, math.Max(hc, lc))

		plusMove := currentBar.High - previousBar.High
		minusMove := previousBar.Low - currentBar.Low

		if plusMove > minusMove && plusMove > 0 {
			plusDM[i-1] = plusMove
		} else {
			plusDM[i-1] = 0
		}

		if minusMove > plusMove && minusMove > 0 {
			minusDM[i-1] = minusMove
		} else {
			minusDM[i-1] = 0
		}
	}

	if len(trueRanges) < period {
		return ADXResult{
			ADX:       0.0,
			Period:    period,
			IsValid:   false,
			DataCount: len(bars),
		}
	}

	smoothedTR := 0.0
	smoothedPlusDM := 0.0
	smoothedMinusDM := 0.0

	for i := 0; i < period; i++ {
		smoothedTR += trueRanges[i]
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
	}

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		smoothedTR = smoothedTR*(1-alpha) + trueRanges[i]*alpha
		smoothedPlusDM = smoothedPlusDM*(1-alpha) + plusDM[i]*alpha
		smoothedMinusDM = smoothedMinusDM*(1-alpha) + minusDM[i]*alpha
	}

	var pdi, mdi, adx float64
	if smoothedTR > 0 {
		pdi = 100.0 * smoothedPlusDM / smoothedTR
		mdi = 100.0 * smoothedMinusDM / smoothedTR

		sum := pdi + mdi
		if sum > 0 {
			dx := 100.0 * math.Abs(pdi-mdi) / sum
			adx = dx
		}
	}

	return ADXResult{
		ADX:       adx,
		PDI:       pdi,
		MDI:       mdi,
		Period:    period,
		IsValid:   true,
		DataCount: len(bars),
	}
}

// HurstResult represents the result of Hurst Exponent calculation.
type HurstResult struct {
	Exponent  float64 `json:"exponent"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
	Strength  string  `json:"strength"`
}

// CalculateHurstExponent calculates the Hurst Exponent for persistence analysis
// using R/S (Rescaled Range) analysis.
func CalculateHurstExponent(prices []float64, period int) HurstResult {
	if len(prices) < period {
		return HurstResult{
			Exponent:  0.5,
			Period:    period,
			IsValid:   false,
			DataCount: len(prices),
			Strength:  "insufficient_data",
		}
	}

	recentPrices := prices
	if len(prices) > period {
		recentPrices = prices[len(prices)-period:]
	}

	logReturns := make([]float64, len(recentPrices)-1)
	for i := 1; i < len(recentPrices); i++ {
		if recentPrices[i] > 0 && recentPrices[i-1] > 0 {
			logReturns[i-1] = math.Log(recentPrices[i] / recentPrices[i-1])
		}
	}

	if len(logReturns) < 10 {
		return HurstResult{
			Exponent:  0.5,
			Period:    period,
			IsValid:   false,
			DataCount: len(prices),
			Strength:  "insufficient_data",
		}
	}

	mean := 0.0
	for _, ret := range logReturns {
		mean += ret
	}
	mean /= float64(len(logReturns))

	cumDeviations := make([]float64, len(logReturns))
	cumDeviations[0] = logReturns[0] - mean
	for i := 1; i < len(logReturns); i++ {
		cumDeviations[i] = cumDeviations[i-1] + (logReturns[i] - mean)
	}

	maxCumDev := cumDeviations[0]
	minCumDev := cumDeviations[0]
	for _, dev := range cumDeviations {
		if dev > maxCumDev {
			maxCumDev = dev
		}
		if dev < minCumDev {
			minCumDev = dev
		}
	}
	rRange := maxCumDev - minCumDev

	variance := 0.0
	for _, ret := range logReturns {
		variance += (ret - mean) * (ret - mean)
	}
	variance /= float64(len(logReturns) - 1)
	stdDev := math.Sqrt(variance)

	var rsRatio float64
	if stdDev > 0 {
		rsRatio = rRange / stdDev
	} else {
		rsRatio = 1.0
	}

	var hurst float64
	n := float64(len(logReturns))
	if rsRatio > 0 && n > 1 {
		hurst = math.Log(rsRatio) / math.Log(n)
	} else {
		hurst = 0.5
	}

	if hurst < 0 {
		hurst = 0.0
	} else if hurst > 1 {
		hurst = 1.0
	}

	var strength string
	switch {
	case hurst > 0.55:
		strength = "persistent"
	case hurst < 0.45:
		strength = "mean_reverting"
	default:
		strength = "random"
	}

	return HurstResult{
		Exponent:  hurst,
		Period:    period,
		IsValid:   true,
		DataCount: len(prices),
		Strength:  strength,
	}
}

// SMA computes the simple moving average of the last period closes. ok is
// false when fewer than period closes are available.
func SMA(prices []float64, period int) (value float64, ok bool) {
	if len(prices) < period || period <= 0 {
		return 0, false
	}
	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	return sum / float64(period), true
}

// EMA computes the exponential moving average over the full series, seeded
// with a simple average of the first period values.
func EMA(prices []float64, period int) (value float64, ok bool) {
	if len(prices) < period || period <= 0 {
		return 0, false
	}
	seed := 0.0
	for _, p := range prices[:period] {
		seed += p
	}
	ema := seed / float64(period)

	k := 2.0 / (float64(period) + 1.0)
	for _, p := range prices[period:] {
		ema = p*k + ema*(1-k)
	}
	return ema, true
}

// VWAP computes the volume-weighted average price over the last `period`
// bars. ok is false when fewer bars are available or total volume is zero.
func VWAP(bars []PriceBar, period int) (value float64, ok bool) {
	if len(bars) < period || period <= 0 {
		return 0, false
	}
	window := bars[len(bars)-period:]

	var pv, vol float64
	for _, b := range window {
		typicalPrice := (b.High + b.Low + b.Close) / 3.0
		pv += typicalPrice * b.Volume
		vol += b.Volume
	}
	if vol <= 0 {
		return 0, false
	}
	return pv / vol, true
}

// RVOL computes relative volume: the current bar's volume divided by the
// rolling average volume of the preceding `lookback` bars.
func RVOL(bars []PriceBar, lookback int) (value float64, ok bool) {
	if len(bars) < lookback+1 || lookback <= 0 {
		return 0, false
	}
	current := bars[len(bars)-1]
	window := bars[len(bars)-1-lookback : len(bars)-1]

	var sum float64
	for _, b := range window {
		sum += b.Volume
	}
	avg := sum / float64(lookback)
	if avg <= 0 {
		return 0, false
	}
	return current.Volume / avg, true
}

// TechnicalIndicators aggregates the indicator panel computed for a ticker.
type TechnicalIndicators struct {
	RSI   RSIResult   `json:"rsi"`
	ATR   ATRResult   `json:"atr"`
	ADX   ADXResult   `json:"adx"`
	Hurst HurstResult `json:"hurst"`
}

// CalculateAllIndicators calculates the RSI/ATR/ADX/Hurst panel for the
// given data using standard 14-period (50-period for Hurst) windows.
func CalculateAllIndicators(prices []float64, bars []PriceBar) (TechnicalIndicators, error) {
	if len(prices) == 0 {
		return TechnicalIndicators{}, fmt.Errorf("no price data provided")
	}

	if len(bars) == 0 {
		return TechnicalIndicators{}, fmt.Errorf("no OHLC bar data provided")
	}

	const (
		rsiPeriod   = 14
		atrPeriod   = 14
		adxPeriod   = 14
		hurstPeriod = 50
	)

	return TechnicalIndicators{
		RSI:   CalculateRSI(prices, rsiPeriod),
		ATR:   CalculateATR(bars, atrPeriod),
		ADX:   CalculateADX(bars, adxPeriod),
		Hurst: CalculateHurstExponent(prices, hurstPeriod),
	}, nil
}
