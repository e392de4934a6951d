// Package marketdata is the DI seam every price-derived factor ingestor and
// the scanner fetch OHLCV bars through: a plain interface plus a resilient
// wrapper that adds circuit breaking and rate limiting around whatever
// concrete provider is wired in.
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/duskline/biasengine/internal/domain/indicators"
)

// Fetcher retrieves recent daily OHLCV bars for a symbol, oldest first.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, lookbackDays int) ([]indicators.PriceBar, error)
}

// ResilientFetcher wraps an underlying Fetcher with a per-provider circuit
// breaker and token-bucket rate limiter, mirroring the teacher's
// CircuitBreakerManager/RateLimiter pair but collapsed onto a single
// provider since every ingestor and the scanner share one OHLCV source here.
type ResilientFetcher struct {
	underlying Fetcher
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter

	mu      sync.Mutex
	lastErr error
}

// NewResilientFetcher wraps underlying with a circuit breaker (tripping
// after 5 consecutive failures, half-opening after timeout) and a token
// bucket allowing rps requests per second with the given burst.
func NewResilientFetcher(underlying Fetcher, name string, rps float64, burst int, timeout time.Duration) *ResilientFetcher {
	rf := &ResilientFetcher{
		underlying: underlying,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
	rf.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return rf
}

// FetchDaily rate-limits then executes the underlying fetch through the
// circuit breaker; a tripped breaker or limiter-denied request surfaces as
// an error, which ingestors treat as "cannot determine this cycle."
func (rf *ResilientFetcher) FetchDaily(ctx context.Context, symbol string, lookbackDays int) ([]indicators.PriceBar, error) {
	if err := rf.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("marketdata: rate limiter: %w", err)
	}
	result, err := rf.breaker.Execute(func() (interface{}, error) {
		return rf.underlying.FetchDaily(ctx, symbol, lookbackDays)
	})
	rf.mu.Lock()
	rf.lastErr = err
	rf.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("marketdata: fetch %s: %w", symbol, err)
	}
	return result.([]indicators.PriceBar), nil
}

// LastError returns the most recent fetch error observed, for health
// reporting; nil if the last fetch succeeded or none has run yet.
func (rf *ResilientFetcher) LastError() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.lastErr
}
