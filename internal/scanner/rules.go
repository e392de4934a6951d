package scanner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/domain/indicators"
)

// ruleFunc evaluates one signal-type rule against a ticker's bar history
// and current panel, returning ok=false when the rule does not trigger.
type ruleFunc func(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool)

var rules = []ruleFunc{
	goldenTouchRule,
	twoCloseVolumeRule,
	pullbackEntryRule,
	zoneUpgradeRule,
	trappedLongsRule,
	trappedShortsRule,
}

func newSignal(symbol string, signalID string, direction domain.Direction, signalType domain.SignalType, priority int, confidence domain.Confidence, zone domain.CTAZone, p panel) domain.Signal {
	setup, setupCtx := buildSetup(signalType, direction, zone, p)
	return domain.Signal{
		SignalID: signalID, Symbol: symbol, Direction: direction, SignalType: signalType,
		Priority: priority, CTAZone: zone, Setup: setup, SetupContext: setupCtx,
		Context: p.toSnapshot(), Confidence: confidence, ConvictionMult: 1.0, EmittedAt: time.Now(),
	}
}

// goldenTouchRule: price touches SMA120 from above, a long streak held
// above it, a moderate correction from the rolling 60-day high, and SMA20
// still leading SMA120.
func goldenTouchRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if !p.sma120ok || !p.sma20ok || !p.high60ok {
		return domain.Signal{}, false
	}
	touchesSMA120 := p.SMA120 != 0 && absPct(p.Low, p.SMA120) <= 1.0
	if !touchesSMA120 {
		return domain.Signal{}, false
	}
	if p.StreakAboveSMA120 < 50 {
		return domain.Signal{}, false
	}
	correction := (p.High60 - p.Price) / p.High60
	if correction < 0.05 || correction > 0.12 {
		return domain.Signal{}, false
	}
	if p.SMA20 <= p.SMA120 {
		return domain.Signal{}, false
	}
	sig := newSignal(symbol, uuidLike(symbol, domain.SignalGoldenTouch), domain.DirectionLong, domain.SignalGoldenTouch, 100, domain.ConfidenceHigh, zone, p)
	return sig, true
}

// twoCloseVolumeRule: two consecutive closes reclaim SMA50 after being
// below it, confirmed by volume at least 1.10x the 20-day average.
func twoCloseVolumeRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if !p.sma50ok || len(bars) < 3 {
		return domain.Signal{}, false
	}
	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	beforePrev := bars[len(bars)-3]
	if beforePrev.Close > p.SMA50 {
		return domain.Signal{}, false
	}
	if prev.Close <= p.SMA50 || last.Close <= p.SMA50 {
		return domain.Signal{}, false
	}
	if p.Vol20Avg <= 0 || last.Volume < 1.10*p.Vol20Avg {
		return domain.Signal{}, false
	}
	sig := newSignal(symbol, uuidLike(symbol, domain.SignalTwoCloseVolume), domain.DirectionLong, domain.SignalTwoCloseVolume, 80, domain.ConfidenceMedium, zone, p)
	return sig, true
}

// pullbackEntryRule: a MAX_LONG ticker pulling back to SMA20 and completing
// the pullback this bar (closer to SMA20 than the prior bar was).
func pullbackEntryRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if zone != domain.ZoneMaxLong || !p.sma20ok || len(bars) < 2 {
		return domain.Signal{}, false
	}
	dist := absPct(p.Price, p.SMA20)
	touchedToday := p.Low <= p.SMA20 && p.High >= p.SMA20
	if dist > 1.5 && !touchedToday {
		return domain.Signal{}, false
	}
	prevClose := bars[len(bars)-2].Close
	prevDist := absPct(prevClose, p.SMA20)
	if prevDist <= dist+0.5 {
		return domain.Signal{}, false
	}
	sig := newSignal(symbol, uuidLike(symbol, domain.SignalPullbackEntry), domain.DirectionLong, domain.SignalPullbackEntry, 50, domain.ConfidenceMedium, zone, p)
	return sig, true
}

// zoneUpgradeRule: the zone strictly improved versus the previous bar and
// the new zone is at least DE_LEVERAGING.
func zoneUpgradeRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if zone.Rank() < 0 || prevZone.Rank() < 0 {
		return domain.Signal{}, false
	}
	if zone.Rank() <= prevZone.Rank() {
		return domain.Signal{}, false
	}
	if zone.Rank() < domain.ZoneDeLeveraging.Rank() {
		return domain.Signal{}, false
	}
	sig := newSignal(symbol, uuidLike(symbol, domain.SignalZoneUpgrade), domain.DirectionLong, domain.SignalZoneUpgrade, 40, domain.ConfidenceMedium, zone, p)
	return sig, true
}

// trappedLongsRule: price has broken below its long-term trend and VWAP
// with trend strength and volume behind the break - longs caught offside.
func trappedLongsRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if !p.sma200ok || !p.rvolOk {
		return domain.Signal{}, false
	}
	if p.Price >= p.SMA200 || p.Price >= p.VWAP20 || p.ADX14 <= 20 || p.RSI14 <= 40 || p.RVOL <= 1.25 {
		return domain.Signal{}, false
	}
	priority, confidence := 80, domain.ConfidenceMedium
	if p.RVOL > 2.0 && p.ADX14 > 30 {
		priority, confidence = 100, domain.ConfidenceHigh
	}
	signalID := fmt.Sprintf("%s_TRAPPED_LONGS_%s", symbol, time.Now().Format("2006-01-02"))
	sig := newSignal(symbol, signalID, domain.DirectionShort, domain.SignalTrappedLongs, priority, confidence, zone, p)
	return sig, true
}

// trappedShortsRule mirrors trappedLongsRule for the bullish breakout case.
func trappedShortsRule(symbol string, bars []indicators.PriceBar, p panel, zone, prevZone domain.CTAZone) (domain.Signal, bool) {
	if !p.sma200ok || !p.rvolOk {
		return domain.Signal{}, false
	}
	if p.Price <= p.SMA200 || p.Price <= p.VWAP20 || p.ADX14 <= 20 || p.RSI14 >= 60 || p.RVOL <= 1.25 {
		return domain.Signal{}, false
	}
	priority, confidence := 80, domain.ConfidenceMedium
	if p.RVOL > 2.0 && p.ADX14 > 30 {
		priority, confidence = 100, domain.ConfidenceHigh
	}
	signalID := fmt.Sprintf("%s_TRAPPED_SHORTS_%s", symbol, time.Now().Format("2006-01-02"))
	sig := newSignal(symbol, signalID, domain.DirectionLong, domain.SignalTrappedShorts, priority, confidence, zone, p)
	return sig, true
}

func absPct(price, level float64) float64 {
	if level == 0 {
		return 0
	}
	pct := (price - level) / level * 100
	if pct < 0 {
		return -pct
	}
	return pct
}

// uuidLike mints a random signal id for rules the spec does not pin a
// deterministic format for - only TRAPPED_LONGS and TRAPPED_SHORTS get one.
func uuidLike(symbol string, signalType domain.SignalType) string {
	return fmt.Sprintf("%s_%s_%s", symbol, signalType, uuid.NewString())
}
