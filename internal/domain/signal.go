package domain

import "time"

// Direction is a signal's trade direction.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// SignalType is the closed set of scanner rule outcomes.
type SignalType string

const (
	SignalGoldenTouch     SignalType = "GOLDEN_TOUCH"
	SignalTwoCloseVolume  SignalType = "TWO_CLOSE_VOLUME"
	SignalPullbackEntry   SignalType = "PULLBACK_ENTRY"
	SignalZoneUpgrade     SignalType = "ZONE_UPGRADE"
	SignalTrappedLongs    SignalType = "TRAPPED_LONGS"
	SignalTrappedShorts   SignalType = "TRAPPED_SHORTS"
)

// CTAZone classifies a ticker's trend phase from its SMA stack.
type CTAZone string

const (
	ZoneMaxLong      CTAZone = "MAX_LONG"
	ZoneTransition   CTAZone = "TRANSITION"
	ZoneDeLeveraging CTAZone = "DE_LEVERAGING"
	ZoneWaterfall    CTAZone = "WATERFALL"
	ZoneCapitulation CTAZone = "CAPITULATION"
	ZoneUnknown      CTAZone = "UNKNOWN"
)

// zoneRank orders zones from most bearish to most bullish for zone-upgrade
// detection.
var zoneRank = map[CTAZone]int{
	ZoneCapitulation: 0,
	ZoneWaterfall:    1,
	ZoneDeLeveraging: 2,
	ZoneTransition:   3,
	ZoneMaxLong:      4,
}

// Rank returns the zone's bullishness rank, or -1 if unknown.
func (z CTAZone) Rank() int {
	if r, ok := zoneRank[z]; ok {
		return r
	}
	return -1
}

// EntryWindow is the band around entry a signal type prefers for execution.
type EntryWindow struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Setup is a signal's full trade plan.
type Setup struct {
	Entry              float64     `json:"entry"`
	EntryWindow        EntryWindow `json:"entry_window"`
	Stop               float64     `json:"stop"`
	T1                 float64     `json:"t1"`
	T2                 float64     `json:"t2"`
	RRRatio            float64     `json:"rr_ratio"`
	InvalidationLevel  float64     `json:"invalidation_level"`
	InvalidationReason string      `json:"invalidation_reason"`
}

// SetupContext records which anchors produced a Setup, for audit/explain.
type SetupContext struct {
	StopAnchor string `json:"stop_anchor"`
	T1Anchor   string `json:"t1_anchor"`
	T2Anchor   string `json:"t2_anchor"`
	RRProfile  string `json:"rr_profile"`
}

// Confluence records how a signal was affected by others on the same ticker.
type Confluence struct {
	Count       int          `json:"count"`
	SignalTypes []SignalType `json:"signal_types"`
	Boost       int          `json:"boost"`
	Combo       string       `json:"combo,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

// IndicatorSnapshot is the indicator panel value at the signal's bar.
type IndicatorSnapshot struct {
	Price    float64 `json:"price"`
	SMA20    float64 `json:"sma20"`
	SMA50    float64 `json:"sma50"`
	SMA120   float64 `json:"sma120"`
	SMA200   float64 `json:"sma200"`
	ATR14    float64 `json:"atr14"`
	VWAP20   float64 `json:"vwap20"`
	ADX14    float64 `json:"adx14"`
	RSI14    float64 `json:"rsi14"`
	RVOL     float64 `json:"rvol"`
}

// Confidence tier reused from the bias package's vocabulary for signals too.

// Signal is one emitted scanner output.
type Signal struct {
	SignalID       string             `json:"signal_id"`
	Symbol         string             `json:"symbol"`
	Direction      Direction          `json:"direction"`
	SignalType     SignalType         `json:"signal_type"`
	Priority       int                `json:"priority"`
	CTAZone        CTAZone            `json:"cta_zone"`
	Setup          Setup              `json:"setup"`
	SetupContext   SetupContext       `json:"setup_context"`
	Context        IndicatorSnapshot  `json:"context"`
	Confluence     *Confluence        `json:"confluence,omitempty"`
	Confidence     Confidence         `json:"confidence"`
	ConvictionMult float64            `json:"conviction_mult"`
	EmittedAt      time.Time          `json:"emitted_at"`

	// BiasSnapshot and Calendar are attached by the dispatcher (C8) at
	// persist time - immutable metadata captured once, never
	// recomputed from the signal's own later history.
	BiasSnapshot *CompositeResult `json:"bias_snapshot,omitempty"`
	Calendar     CalendarContext  `json:"calendar"`
}

// SectorWind is the alignment between a ticker's own zone and its sector
// ETF's zone.
type SectorWind string

const (
	WindTailwind SectorWind = "TAILWIND"
	WindHeadwind SectorWind = "HEADWIND"
	WindNeutral  SectorWind = "NEUTRAL"
	WindUnknown  SectorWind = "UNKNOWN"
)

// BiasAlignment is the alignment between a signal's direction and the
// composite bias.
type BiasAlignment string

const (
	AlignAligned     BiasAlignment = "ALIGNED"
	AlignNeutral     BiasAlignment = "NEUTRAL"
	AlignCounterTrend BiasAlignment = "COUNTER_TREND"
)

// ConvictionMultFor maps a bias alignment to its conviction multiplier.
func ConvictionMultFor(a BiasAlignment) float64 {
	switch a {
	case AlignAligned:
		return 1.2
	case AlignCounterTrend:
		return 0.8
	default:
		return 1.0
	}
}

// CalendarContext is the calendar metadata the dispatcher attaches to every
// persisted signal.
type CalendarContext struct {
	Weekday        time.Weekday `json:"weekday"`
	HourOfDay      int          `json:"hour_of_day"`
	OPEXWeek       bool         `json:"opex_week"`
	DaysToEarnings *int         `json:"days_to_earnings,omitempty"`
	MarketEventTag string       `json:"market_event_tag,omitempty"`
}

// SignalOutcome is the closed record of a signal's resolution.
type SignalOutcome struct {
	SignalID   string    `json:"signal_id"`
	ClosedAt   time.Time `json:"closed_at"`
	ExitPrice  float64   `json:"exit_price"`
	HitTarget  bool      `json:"hit_target"`
	HitStop    bool      `json:"hit_stop"`
	RMultiple  float64   `json:"r_multiple"`
}
