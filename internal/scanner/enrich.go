package scanner

import "github.com/duskline/biasengine/internal/domain"

// sectorWindFor compares a ticker's own direction against its sector ETF's
// cta_zone, restoring the source's get_sector_wind behavior: a bullish
// sector zone is a tailwind for a LONG signal (headwind for a SHORT), and
// vice versa for a bearish sector zone.
func sectorWindFor(direction domain.Direction, sectorZone domain.CTAZone) domain.SectorWind {
	rank := sectorZone.Rank()
	if rank < 0 {
		return domain.WindUnknown
	}
	bullish := rank >= domain.ZoneTransition.Rank()
	bearish := rank <= domain.ZoneDeLeveraging.Rank()
	switch {
	case direction == domain.DirectionLong && bullish:
		return domain.WindTailwind
	case direction == domain.DirectionLong && bearish:
		return domain.WindHeadwind
	case direction == domain.DirectionShort && bearish:
		return domain.WindTailwind
	case direction == domain.DirectionShort && bullish:
		return domain.WindHeadwind
	default:
		return domain.WindNeutral
	}
}

// biasAlignmentFor compares a signal's direction against the composite
// bias's half, restoring the source's get_bias_alignment.
func biasAlignmentFor(direction domain.Direction, bias domain.BiasLevel) domain.BiasAlignment {
	switch {
	case direction == domain.DirectionLong && bias.IsBullHalf():
		return domain.AlignAligned
	case direction == domain.DirectionShort && bias.IsBearHalf():
		return domain.AlignAligned
	case direction == domain.DirectionLong && bias.IsBearHalf():
		return domain.AlignCounterTrend
	case direction == domain.DirectionShort && bias.IsBullHalf():
		return domain.AlignCounterTrend
	default:
		return domain.AlignNeutral
	}
}

// convictionMult combines sector-wind and bias-alignment into the single
// {0.8, 1.0, 1.2} multiplier a dispatched signal carries; bias alignment
// takes precedence since it reflects the engine's own fused view, with
// sector wind breaking a neutral tie.
func convictionMult(wind domain.SectorWind, alignment domain.BiasAlignment) float64 {
	if alignment != domain.AlignNeutral {
		return domain.ConvictionMultFor(alignment)
	}
	switch wind {
	case domain.WindTailwind:
		return 1.2
	case domain.WindHeadwind:
		return 0.8
	default:
		return 1.0
	}
}
