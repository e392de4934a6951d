// Package webhook implements external webhook intake (C11): plain
// functions, not HTTP routers. Each takes an already-parsed, already-
// authenticated typed payload and forwards it into the circuit breaker
// (C6) or a well-known KV key. The tick, breadth, put/call, market-tide
// and override keys are the ones the factor ingestors (C4) read from; no
// ingestor reads the flow, pivot or sector-strength keys.
// Bearer-token authentication and request parsing are a boundary
// concern the caller (an out-of-scope router) performs before calling in.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskline/biasengine/internal/breaker"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/ingestors"
	"github.com/duskline/biasengine/internal/kvstore"
)

// defaultTTL bounds how long a webhook-pushed value is considered fresh
// before an ingestor's Compute treats it as absent.
const defaultTTL = 24 * time.Hour

// maxFlowAlerts bounds the per-ticker recent-alerts list IngestFlow
// maintains; older entries are dropped once the list is full.
const maxFlowAlerts = 25

const (
	keyFlowRecentPrefix     = "flow:"
	keyFlowRecentSuffix     = ":recent"
	keyPivotLatestPrefix    = "pivot:"
	keyPivotLatestSuffix    = ":latest"
	keySectorStrengthPrefix = "sector:"
	keySectorStrengthSuffix = ":strength"
)

// ApplyCircuitBreaker installs trigger on the circuit breaker. Idempotent:
// re-applying the currently active (or a less severe) trigger is a no-op
// per the breaker's own no-downgrade guard.
func ApplyCircuitBreaker(ctx context.Context, mgr *breaker.Manager, trigger string) (domain.State, error) {
	return mgr.Apply(ctx, domain.Trigger(trigger))
}

// AcceptCircuitBreakerReset clears the breaker; errors if it is not
// currently pending_reset.
func AcceptCircuitBreakerReset(ctx context.Context, mgr *breaker.Manager) (domain.State, error) {
	return mgr.AcceptReset(ctx)
}

// RejectCircuitBreakerReset keeps the breaker active and restarts its
// decay clock; errors if it is not currently pending_reset.
func RejectCircuitBreakerReset(ctx context.Context, mgr *breaker.Manager) (domain.State, error) {
	return mgr.RejectReset(ctx)
}

// IngestTick stores the latest NYSE TICK print for the tick breadth
// ingestor.
func IngestTick(ctx context.Context, kv kvstore.Store, payload domain.TickPayload) error {
	return setJSON(ctx, kv, ingestors.KeyTickCurrent, payload, defaultTTL)
}

// IngestBreadth stores the latest up-volume/down-volume print for the
// breadth-momentum ingestor.
func IngestBreadth(ctx context.Context, kv kvstore.Store, uvol, dvol float64) error {
	return setJSON(ctx, kv, ingestors.KeyBreadthUvolDvol, domain.BreadthPayload{UVol: uvol, DVol: dvol}, defaultTTL)
}

// IngestPCR stores the latest equity put/call ratio print for the
// primary put/call ratio ingestor.
func IngestPCR(ctx context.Context, kv kvstore.Store, pcr float64, date *time.Time) error {
	return setJSON(ctx, kv, ingestors.KeyPCRCurrent, domain.PCRPayload{PCR: pcr, Date: date}, defaultTTL)
}

// IngestMarketTide stores Unusual Whales' options-sentiment read for the
// options-sentiment ingestor.
func IngestMarketTide(ctx context.Context, kv kvstore.Store, payload domain.MarketTidePayload) error {
	return setJSON(ctx, kv, ingestors.KeyMarketTideCurrent, payload, defaultTTL)
}

// IngestFlow appends payload's per-ticker flow summaries onto each
// ticker's bounded recent-alerts list, newest first, dropping the oldest
// entries past maxFlowAlerts.
func IngestFlow(ctx context.Context, kv kvstore.Store, payload domain.FlowPayload) error {
	byTicker := map[string][]domain.FlowSummary{}
	for _, s := range payload.Summaries {
		byTicker[s.Ticker] = append(byTicker[s.Ticker], s)
	}
	for ticker, additions := range byTicker {
		key := flowKey(ticker)
		var existing []domain.FlowSummary
		if _, err := getJSON(ctx, kv, key, &existing); err != nil {
			return fmt.Errorf("flow: read existing for %s: %w", ticker, err)
		}
		merged := append(additions, existing...)
		if len(merged) > maxFlowAlerts {
			merged = merged[:maxFlowAlerts]
		}
		if err := setJSON(ctx, kv, key, merged, defaultTTL); err != nil {
			return fmt.Errorf("flow: persist for %s: %w", ticker, err)
		}
	}
	return nil
}

// IngestPivotAlert stores the latest price-pivot alert for a ticker.
func IngestPivotAlert(ctx context.Context, kv kvstore.Store, payload domain.PivotAlertPayload) error {
	return setJSON(ctx, kv, pivotKey(payload.Ticker), payload, defaultTTL)
}

// IngestSectorStrength stores the latest relative-strength print for a
// sector ETF.
func IngestSectorStrength(ctx context.Context, kv kvstore.Store, payload domain.SectorStrengthPayload) error {
	return setJSON(ctx, kv, sectorStrengthKey(payload.SectorETF), payload, defaultTTL)
}

// IngestFactorOverride pushes a manual value for a factor normally
// computed by an ingestor, read back by the manual ingestor (e.g. Savita).
func IngestFactorOverride(ctx context.Context, kv kvstore.Store, name string, payload domain.FactorOverridePayload) error {
	return setJSON(ctx, kv, ingestors.OverrideKey(name), payload, defaultTTL)
}

func flowKey(ticker string) string { return keyFlowRecentPrefix + ticker + keyFlowRecentSuffix }

func pivotKey(ticker string) string { return keyPivotLatestPrefix + ticker + keyPivotLatestSuffix }

func sectorStrengthKey(etf string) string {
	return keySectorStrengthPrefix + etf + keySectorStrengthSuffix
}

func setJSON(ctx context.Context, kv kvstore.Store, key string, val interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// getJSON fetches and unmarshals a KV value, returning (false, nil) when
// the key is absent.
func getJSON(ctx context.Context, kv kvstore.Store, key string, out interface{}) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("kv get %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("kv unmarshal %s: %w", key, err)
	}
	return true, nil
}
