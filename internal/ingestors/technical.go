package ingestors

import (
	"context"
	"fmt"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/domain/indicators"
	"github.com/duskline/biasengine/internal/marketdata"
)

// PriceBar carries no bar date (see indicators.PriceBar), so every
// technical ingestor in this file records a fallback timestamp rather than
// one sourced from the payload.

// ratioIngestor scores the trend of one symbol's close relative to
// another's (e.g. HYG/TLT, RSP/SPY, cyclicals/defensives) against the
// generic ratio band.
type ratioIngestor struct {
	factorID           string
	numerator, denom   string
	lookbackDays       int
	fetcher            marketdata.Fetcher
}

func newRatioIngestor(factorID, numerator, denom string, lookbackDays int, fetcher marketdata.Fetcher) *ratioIngestor {
	return &ratioIngestor{factorID: factorID, numerator: numerator, denom: denom, lookbackDays: lookbackDays, fetcher: fetcher}
}

func (i *ratioIngestor) FactorID() string { return i.factorID }

func (i *ratioIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	numBars, err := i.fetcher.FetchDaily(ctx, i.numerator, i.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", i.factorID, i.numerator, err)
	}
	denBars, err := i.fetcher.FetchDaily(ctx, i.denom, i.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", i.factorID, i.denom, err)
	}
	if len(numBars) == 0 || len(denBars) == 0 {
		return nil, nil
	}
	ratio := numBars[len(numBars)-1].Close / denBars[len(denBars)-1].Close

	numSMA, numOK := indicators.SMA(closesOf(numBars), i.lookbackDays)
	denSMA, denOK := indicators.SMA(closesOf(denBars), i.lookbackDays)
	baseline := ratio
	if numOK && denOK && denSMA != 0 {
		baseline = numSMA / denSMA
	}
	if baseline == 0 {
		return nil, nil
	}

	score := ratioBand(ratio / baseline)
	detail := fmt.Sprintf("%s/%s=%.4f vs %d-day baseline %.4f", i.numerator, i.denom, ratio, i.lookbackDays, baseline)
	return fallbackReading(i.factorID, score, "marketdata", detail), nil
}

// smaDistanceIngestor scores a symbol's percent distance from its own
// trailing SMA against a supplied banding function.
type smaDistanceIngestor struct {
	factorID string
	symbol   string
	period   int
	band     func(pct float64) float64
	fetcher  marketdata.Fetcher
}

func (i *smaDistanceIngestor) FactorID() string { return i.factorID }

func (i *smaDistanceIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	bars, err := i.fetcher.FetchDaily(ctx, i.symbol, i.period+20)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", i.factorID, i.symbol, err)
	}
	closes := closesOf(bars)
	sma, ok := indicators.SMA(closes, i.period)
	if !ok || sma == 0 {
		return nil, nil
	}
	price := closes[len(closes)-1]
	pct := (price - sma) / sma * 100
	score := i.band(pct)
	detail := fmt.Sprintf("%s %.2f vs SMA%d %.2f (%.2f%%)", i.symbol, price, i.period, sma, pct)
	return fallbackReading(i.factorID, score, "marketdata", detail), nil
}

// momentumIngestor scores a symbol's rate of change over a short lookback,
// used for intraday trend and breadth-momentum style factors.
type momentumIngestor struct {
	factorID string
	symbol   string
	lookback int
	fetcher  marketdata.Fetcher
}

func (i *momentumIngestor) FactorID() string { return i.factorID }

func (i *momentumIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	bars, err := i.fetcher.FetchDaily(ctx, i.symbol, i.lookback+1)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", i.factorID, i.symbol, err)
	}
	if len(bars) <= i.lookback {
		return nil, nil
	}
	latest := bars[len(bars)-1].Close
	prior := bars[len(bars)-1-i.lookback].Close
	if prior == 0 {
		return nil, nil
	}
	pct := (latest - prior) / prior * 100
	score := genericPctBand(pct)
	detail := fmt.Sprintf("%s %d-day change %.2f%%", i.symbol, i.lookback, pct)
	return fallbackReading(i.factorID, score, "marketdata", detail), nil
}

func closesOf(bars []indicators.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// NewCreditSpreadsIngestor scores the HYG/TLT ratio (high-yield credit vs
// Treasury duration) against its own trailing baseline.
func NewCreditSpreadsIngestor(fetcher marketdata.Fetcher) Ingestor {
	return newRatioIngestor("credit_spreads", "HYG", "TLT", 20, fetcher)
}

// NewMarketBreadthIngestor scores RSP/SPY (equal-weight vs cap-weight),
// a standard breadth proxy.
func NewMarketBreadthIngestor(fetcher marketdata.Fetcher) Ingestor {
	return newRatioIngestor("market_breadth", "RSP", "SPY", 20, fetcher)
}

// NewSectorRotationIngestor scores cyclicals (XLK+XLY) against defensives
// (XLP+XLU) via a combined synthetic ratio.
func NewSectorRotationIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &sectorRotationIngestor{fetcher: fetcher}
}

type sectorRotationIngestor struct {
	fetcher marketdata.Fetcher
}

func (i *sectorRotationIngestor) FactorID() string { return "sector_rotation" }

func (i *sectorRotationIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	cyclicals := []string{"XLK", "XLY"}
	defensives := []string{"XLP", "XLU"}
	cyclicalSum, err := i.sumLatestClose(ctx, cyclicals)
	if err != nil {
		return nil, err
	}
	defensiveSum, err := i.sumLatestClose(ctx, defensives)
	if err != nil {
		return nil, err
	}
	if defensiveSum == 0 {
		return nil, nil
	}
	ratio := cyclicalSum / defensiveSum
	score := ratioBand(ratio)
	detail := fmt.Sprintf("(XLK+XLY)/(XLP+XLU)=%.4f", ratio)
	return fallbackReading("sector_rotation", score, "marketdata", detail), nil
}

func (i *sectorRotationIngestor) sumLatestClose(ctx context.Context, symbols []string) (float64, error) {
	var sum float64
	for _, sym := range symbols {
		bars, err := i.fetcher.FetchDaily(ctx, sym, 5)
		if err != nil {
			return 0, fmt.Errorf("sector_rotation: fetch %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return 0, nil
		}
		sum += bars[len(bars)-1].Close
	}
	return sum, nil
}

// NewSPY200SMADistanceIngestor scores SPY's percent distance from its
// 200-day SMA against the verbatim band table.
func NewSPY200SMADistanceIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &smaDistanceIngestor{
		factorID: "spy_200sma_distance", symbol: "SPY", period: 200,
		band: spy200SMADistanceBand, fetcher: fetcher,
	}
}

// NewDXYTrendIngestor scores the US dollar index's distance from its
// 50-day SMA.
func NewDXYTrendIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &smaDistanceIngestor{
		factorID: "dxy_trend", symbol: "DXY", period: 50,
		band: genericPctBand, fetcher: fetcher,
	}
}

// NewDollarSmileIngestor scores the dollar's short-term momentum extremes:
// a "smile" regime where the dollar bids on both growth scares and growth
// booms, approximated here by its signed 10-day rate of change scored on
// the generic percent band.
func NewDollarSmileIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &momentumIngestor{factorID: "dollar_smile", symbol: "DXY", lookback: 10, fetcher: fetcher}
}

// NewSPYTrendIntradayIngestor scores SPY's distance from its 20-day SMA as
// an intraday-refreshed trend proxy.
func NewSPYTrendIntradayIngestor(fetcher marketdata.Fetcher) Ingestor {
	return &smaDistanceIngestor{
		factorID: "spy_trend_intraday", symbol: "SPY", period: 20,
		band: genericPctBand, fetcher: fetcher,
	}
}

// NewBreadthMomentumPriceFallback scores RSP's short-term rate of change as
// a breadth-acceleration proxy, used when no fresh UVOL/DVOL webhook print
// is available (see NewBreadthMomentumIngestor).
func NewBreadthMomentumPriceFallback(fetcher marketdata.Fetcher) Ingestor {
	return &momentumIngestor{factorID: "breadth_momentum", symbol: "RSP", lookback: 5, fetcher: fetcher}
}

// NewCopperGoldRatioIngestor scores the copper/gold ratio, a classic
// growth-vs-fear commodity proxy.
func NewCopperGoldRatioIngestor(fetcher marketdata.Fetcher) Ingestor {
	return newRatioIngestor("copper_gold_ratio", "CPER", "GLD", 20, fetcher)
}
