package scanner

import (
	"math"
	"sort"

	"github.com/duskline/biasengine/internal/domain"
)

// riskReward is one (stop_mult, target_mult) pair, both expressed in ATR
// multiples, per the fresh profile table authored in place of the source's
// missing config.signal_profiles module (SPEC_FULL.md §4.7.6).
type riskReward struct {
	StopMult   float64
	TargetMult float64
}

const defaultStopMult = 1.5
const defaultTargetMult = 2.0

var riskRewardTable = map[domain.SignalType]map[domain.CTAZone]riskReward{
	domain.SignalGoldenTouch: {
		domain.ZoneMaxLong:    {StopMult: 1.5, TargetMult: 3.0},
		domain.ZoneTransition: {StopMult: 1.5, TargetMult: 2.5},
	},
	domain.SignalTwoCloseVolume: {
		domain.ZoneMaxLong:    {StopMult: 1.5, TargetMult: 2.0},
		domain.ZoneTransition: {StopMult: 1.5, TargetMult: 2.0},
	},
	domain.SignalPullbackEntry: {
		domain.ZoneMaxLong: {StopMult: 1.25, TargetMult: 2.0},
	},
}

// riskRewardFor looks up the (signal_type, zone) profile, falling back to
// the per-signal-type "any zone" rows named in the table and finally the
// global default.
func riskRewardFor(signalType domain.SignalType, zone domain.CTAZone) (riskReward, string) {
	switch signalType {
	case domain.SignalZoneUpgrade, domain.SignalTrappedLongs, domain.SignalTrappedShorts:
		return riskReward{StopMult: 1.5, TargetMult: 2.0}, string(signalType) + "/any"
	}
	if byZone, ok := riskRewardTable[signalType]; ok {
		if rr, ok := byZone[zone]; ok {
			return rr, string(signalType) + "/" + string(zone)
		}
	}
	return riskReward{StopMult: defaultStopMult, TargetMult: defaultTargetMult}, "default"
}

// smartStop prefers the zone's named SMA anchor offset by 0.25*ATR,
// validates the resulting risk lies in [0.5, 3.0]*ATR, and otherwise scans
// every available SMA level ordered by closeness to entry; the final
// fallback is the pure ATR-multiple stop from the risk/reward profile.
func smartStop(direction domain.Direction, zone domain.CTAZone, entry, atr, fallbackStopMult float64, smas map[string]float64) (stop float64, anchor string) {
	var order []string
	if preferred, ok := smaAnchorForZone[zone]; ok {
		if _, exists := smas[preferred]; exists {
			order = append(order, preferred)
		}
	}
	type candidate struct {
		name string
		dist float64
	}
	var rest []candidate
	for name, val := range smas {
		if len(order) > 0 && name == order[0] {
			continue
		}
		rest = append(rest, candidate{name: name, dist: math.Abs(val - entry)})
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].dist < rest[j].dist })
	for _, c := range rest {
		order = append(order, c.name)
	}

	for _, name := range order {
		val := smas[name]
		var candidateStop float64
		if direction == domain.DirectionLong {
			candidateStop = val - 0.25*atr
		} else {
			candidateStop = val + 0.25*atr
		}
		risk := math.Abs(entry - candidateStop)
		if risk >= 0.5*atr && risk <= 3.0*atr {
			return candidateStop, name
		}
	}

	if direction == domain.DirectionLong {
		stop = entry - fallbackStopMult*atr
	} else {
		stop = entry + fallbackStopMult*atr
	}
	return stop, "atr_fallback"
}

// target2 is the far target, target_mult ATRs from entry in the direction
// of travel.
func target2(direction domain.Direction, entry, atr, targetMult float64) float64 {
	if direction == domain.DirectionLong {
		return entry + targetMult*atr
	}
	return entry - targetMult*atr
}

// target1 is the lesser of half the distance to t2 and the nearest
// intermediate SMA lying between entry and t2; if that distance collapses
// to within 0.75*risk of entry, t1 is skipped and collapsed onto t2.
func target1(direction domain.Direction, entry, t2, stop float64, smas map[string]float64) (t1 float64, anchor string) {
	halfDist := 0.5 * math.Abs(t2-entry)
	nearestDist := math.Inf(1)
	for _, val := range smas {
		if direction == domain.DirectionLong {
			if val > entry && val < t2 && val-entry < nearestDist {
				nearestDist = val - entry
			}
		} else {
			if val < entry && val > t2 && entry-val < nearestDist {
				nearestDist = entry - val
			}
		}
	}

	dist := halfDist
	anchor = "half_risk"
	if nearestDist < halfDist {
		dist = nearestDist
		anchor = "sma_intermediate"
	}

	risk := math.Abs(entry - stop)
	if dist <= 0.75*risk {
		anchor = "T1 skipped (insufficient R:R)"
		return t2, anchor
	}

	if direction == domain.DirectionLong {
		return entry + dist, anchor
	}
	return entry - dist, anchor
}

// entryWindow returns the signal-type specific band around entry, per the
// table in SPEC_FULL.md §4.7 step 3.
func entryWindow(signalType domain.SignalType, direction domain.Direction, entry, atr, sma20, sma50 float64) domain.EntryWindow {
	switch signalType {
	case domain.SignalGoldenTouch:
		return domain.EntryWindow{Low: sma20, High: sma20 + 0.75*atr}
	case domain.SignalPullbackEntry:
		return domain.EntryWindow{Low: sma50, High: sma50 + 0.75*atr}
	case domain.SignalTwoCloseVolume:
		return domain.EntryWindow{Low: entry - 0.25*atr, High: entry + 1.0*atr}
	case domain.SignalTrappedShorts:
		return domain.EntryWindow{Low: entry - 0.5*atr, High: entry + 1.0*atr}
	case domain.SignalTrappedLongs:
		return domain.EntryWindow{Low: entry - 1.0*atr, High: entry + 0.5*atr}
	default:
		if direction == domain.DirectionLong {
			return domain.EntryWindow{Low: entry - 0.5*atr, High: entry + 0.75*atr}
		}
		return domain.EntryWindow{Low: entry - 0.75*atr, High: entry + 0.5*atr}
	}
}

// buildSetup assembles the full trade plan for one triggered rule.
func buildSetup(signalType domain.SignalType, direction domain.Direction, zone domain.CTAZone, p panel) (domain.Setup, domain.SetupContext) {
	entry := p.Price
	smas := map[string]float64{}
	if p.sma20ok {
		smas["SMA20"] = p.SMA20
	}
	if p.sma50ok {
		smas["SMA50"] = p.SMA50
	}
	if p.sma120ok {
		smas["SMA120"] = p.SMA120
	}
	if p.sma200ok {
		smas["SMA200"] = p.SMA200
	}

	rr, rrProfile := riskRewardFor(signalType, zone)
	stop, stopAnchor := smartStop(direction, zone, entry, p.ATR14, rr.StopMult, smas)
	t2 := target2(direction, entry, p.ATR14, rr.TargetMult)
	t1, t1Anchor := target1(direction, entry, t2, stop, smas)
	window := entryWindow(signalType, direction, entry, p.ATR14, p.SMA20, p.SMA50)

	risk := math.Abs(entry - stop)
	reward := math.Abs(t2 - entry)
	rrRatio := 0.0
	if risk > 0 {
		rrRatio = reward / risk
	}

	invalidationLevel := stop
	invalidationReason := "price closes beyond smart-stop"

	setup := domain.Setup{
		Entry: entry, EntryWindow: window, Stop: stop, T1: t1, T2: t2,
		RRRatio: rrRatio, InvalidationLevel: invalidationLevel, InvalidationReason: invalidationReason,
	}
	ctx := domain.SetupContext{StopAnchor: stopAnchor, T1Anchor: t1Anchor, T2Anchor: rrProfile, RRProfile: rrProfile}
	return setup, ctx
}
