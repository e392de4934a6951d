package scanner

import "github.com/duskline/biasengine/internal/domain"

// classifyZone derives the cta_zone from the SMA stack, checked in the
// fixed priority order the spec pins: capitulation first (trend stack
// itself inverted), then the fully-above/fully-below shapes, falling
// through to transition.
func classifyZone(p panel) domain.CTAZone {
	if !p.sma20ok || !p.sma50ok || !p.sma120ok {
		return domain.ZoneUnknown
	}
	switch {
	case p.SMA20 < p.SMA120:
		return domain.ZoneCapitulation
	case p.Price > p.SMA20 && p.Price > p.SMA50 && p.Price > p.SMA120:
		return domain.ZoneMaxLong
	case p.Price < p.SMA20 && p.Price >= p.SMA50:
		return domain.ZoneDeLeveraging
	case p.Price < p.SMA50:
		return domain.ZoneWaterfall
	default:
		return domain.ZoneTransition
	}
}

// smaAnchorForZone names the smart-stop's preferred SMA per zone; zones
// with no named anchor fall straight to the closeness scan.
var smaAnchorForZone = map[domain.CTAZone]string{
	domain.ZoneMaxLong:      "SMA20",
	domain.ZoneTransition:   "SMA50",
	domain.ZoneDeLeveraging: "SMA120",
}
