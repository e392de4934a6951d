package ingestors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
)

// KV key conventions for webhook-pushed intraday factors. These are
// exported so the external webhook intake (C11) writes the exact keys
// read here, without either package guessing at the other's format.
const (
	KeyTickCurrent       = "tick:current"
	KeyBreadthUvolDvol   = "breadth:uvol_dvol:current"
	KeyPCRCurrent        = "pcr:current"
	KeyPolygonPCRCurrent = "polygon:pcr:current"
	KeyIVSkewCurrent     = "iv_skew:current"
	KeyMarketTideCurrent = "uw:market_tide:current"
)

// readJSON fetches and unmarshals a KV value, returning (false, nil) when
// the key is absent.
func readJSON(ctx context.Context, kv kvstore.Store, key string, out interface{}) (bool, error) {
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

// tickBreadthIngestor scores the NYSE TICK print pushed by the tick webhook.
type tickBreadthIngestor struct {
	kv kvstore.Store
}

// NewTickBreadthIngestor builds the TICK breadth ingestor.
func NewTickBreadthIngestor(kv kvstore.Store) Ingestor { return &tickBreadthIngestor{kv: kv} }

func (i *tickBreadthIngestor) FactorID() string { return "tick_breadth" }

func (i *tickBreadthIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var p domain.TickPayload
	ok, err := readJSON(ctx, i.kv, KeyTickCurrent, &p)
	if err != nil || !ok {
		return nil, err
	}
	tick := p.TickHigh + p.TickLow
	if p.TickClose != nil {
		tick = *p.TickClose
	} else if p.TickAvg != nil {
		tick = *p.TickAvg
	}
	score := genericPctBand(tick / 20)
	detail := fmt.Sprintf("tick=%.0f", tick)
	return reading("tick_breadth", score, "tick_webhook", detail, p.Date), nil
}

// optionsSentimentIngestor scores Unusual Whales' pre-aggregated Market
// Tide sentiment read.
type optionsSentimentIngestor struct {
	kv kvstore.Store
}

// NewOptionsSentimentIngestor builds the Market Tide sentiment ingestor.
func NewOptionsSentimentIngestor(kv kvstore.Store) Ingestor { return &optionsSentimentIngestor{kv: kv} }

func (i *optionsSentimentIngestor) FactorID() string { return "options_sentiment" }

func (i *optionsSentimentIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var p domain.MarketTidePayload
	ok, err := readJSON(ctx, i.kv, KeyMarketTideCurrent, &p)
	if err != nil || !ok {
		return nil, err
	}
	score := domain.Clamp(p.Sentiment)
	detail := fmt.Sprintf("sentiment=%.3f call_premium=%.0f put_premium=%.0f", p.Sentiment, p.CallPremium, p.PutPremium)
	return reading("options_sentiment", score, "unusual_whales", detail, p.Timestamp), nil
}

// pcrIngestor scores an equity put/call ratio against parity: a ratio above
// 1.0 (more puts than calls) skews bearish.
type pcrIngestor struct {
	factorID string
	key      string
	source   string
	kv       kvstore.Store
}

// NewPutCallRatioIngestor builds the primary put/call ratio ingestor.
func NewPutCallRatioIngestor(kv kvstore.Store) Ingestor {
	return &pcrIngestor{factorID: "put_call_ratio", key: KeyPCRCurrent, source: "cboe_pcr", kv: kv}
}

// NewPolygonPCRIngestor builds the Polygon-sourced put/call ratio ingestor,
// a distinct factor from put_call_ratio per the closed factor set.
func NewPolygonPCRIngestor(kv kvstore.Store) Ingestor {
	return &pcrIngestor{factorID: "polygon_pcr", key: KeyPolygonPCRCurrent, source: "polygon_pcr", kv: kv}
}

func (i *pcrIngestor) FactorID() string { return i.factorID }

func (i *pcrIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var p domain.PCRPayload
	ok, err := readJSON(ctx, i.kv, i.key, &p)
	if err != nil || !ok {
		return nil, err
	}
	score := -ratioBand(p.PCR)
	detail := fmt.Sprintf("pcr=%.3f", p.PCR)
	if p.Date != nil {
		return reading(i.factorID, score, i.source, detail, *p.Date), nil
	}
	return fallbackReading(i.factorID, score, i.source, detail), nil
}

// breadthMomentumIngestor prefers the webhook-pushed up-volume/down-volume
// print (fresher, intraday) and falls back to RSP's short-term price rate
// of change when no recent UVOL/DVOL print is present.
type breadthMomentumIngestor struct {
	kv       kvstore.Store
	fallback Ingestor
}

// NewBreadthMomentumIngestor builds the breadth-momentum ingestor, backed
// primarily by the UVOL/DVOL webhook feed with a price-derived fallback.
func NewBreadthMomentumIngestor(kv kvstore.Store, fallback Ingestor) Ingestor {
	return &breadthMomentumIngestor{kv: kv, fallback: fallback}
}

func (i *breadthMomentumIngestor) FactorID() string { return "breadth_momentum" }

func (i *breadthMomentumIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var p domain.BreadthPayload
	ok, err := readJSON(ctx, i.kv, KeyBreadthUvolDvol, &p)
	if err != nil {
		return nil, err
	}
	if ok && p.DVol > 0 {
		ratio := p.UVol / p.DVol
		score := ratioBand(ratio)
		detail := fmt.Sprintf("uvol=%.0f dvol=%.0f ratio=%.3f", p.UVol, p.DVol, ratio)
		return fallbackReading("breadth_momentum", score, "breadth_webhook", detail), nil
	}
	if i.fallback == nil {
		return nil, nil
	}
	return i.fallback.Compute(ctx)
}

// ivSkewIngestor scores implied-volatility skew: elevated put skew (a
// richer put wing than the call wing) is a bearish tail-hedging signal.
type ivSkewIngestor struct {
	kv kvstore.Store
}

// NewIVSkewIngestor builds the IV skew ingestor.
func NewIVSkewIngestor(kv kvstore.Store) Ingestor { return &ivSkewIngestor{kv: kv} }

func (i *ivSkewIngestor) FactorID() string { return "iv_skew" }

type ivSkewPayload struct {
	SkewPct   float64  `json:"skew_pct"`
	Timestamp *string  `json:"timestamp,omitempty"`
}

func (i *ivSkewIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var p ivSkewPayload
	ok, err := readJSON(ctx, i.kv, KeyIVSkewCurrent, &p)
	if err != nil || !ok {
		return nil, err
	}
	score := -genericPctBand(p.SkewPct)
	detail := fmt.Sprintf("skew=%.2f%%", p.SkewPct)
	return fallbackReading("iv_skew", score, "options_skew", detail), nil
}
