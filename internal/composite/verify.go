package composite

import (
	"context"
	"fmt"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/marketdata"
)

// NewMarketVerifier builds the circuit breaker's decay verify function from
// fresh SPY/VIX quotes, matching the condition text pinned in the trigger
// policy table (§4.6): triggers with no stated condition ("—") decay on
// elapsed time alone and always report cleared.
func NewMarketVerifier(fetcher marketdata.Fetcher) func(ctx context.Context, trigger domain.Trigger) (bool, error) {
	return func(ctx context.Context, trigger domain.Trigger) (bool, error) {
		switch trigger {
		case domain.TriggerSpyDown1Pct, domain.TriggerSpyDown2Pct:
			pct, err := dailyChangePct(ctx, fetcher, "SPY")
			if err != nil {
				return false, err
			}
			if trigger == domain.TriggerSpyDown1Pct {
				return pct > -1.0, nil
			}
			return pct > -2.0, nil
		case domain.TriggerVixSpike:
			vix, err := latestClose(ctx, fetcher, "VIX")
			if err != nil {
				return false, err
			}
			return vix < 20, nil
		case domain.TriggerVixExtreme:
			vix, err := latestClose(ctx, fetcher, "VIX")
			if err != nil {
				return false, err
			}
			return vix < 30, nil
		default:
			// spy_up_2pct and spy_recovery carry no verify condition in the
			// policy table - they decay on elapsed time alone.
			return true, nil
		}
	}
}

func latestClose(ctx context.Context, fetcher marketdata.Fetcher, symbol string) (float64, error) {
	bars, err := fetcher.FetchDaily(ctx, symbol, 5)
	if err != nil {
		return 0, fmt.Errorf("verify: fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("verify: no bars for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

func dailyChangePct(ctx context.Context, fetcher marketdata.Fetcher, symbol string) (float64, error) {
	bars, err := fetcher.FetchDaily(ctx, symbol, 5)
	if err != nil {
		return 0, fmt.Errorf("verify: fetch %s: %w", symbol, err)
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("verify: insufficient bars for %s", symbol)
	}
	latest := bars[len(bars)-1].Close
	prior := bars[len(bars)-2].Close
	if prior == 0 {
		return 0, fmt.Errorf("verify: zero prior close for %s", symbol)
	}
	return (latest - prior) / prior * 100, nil
}
