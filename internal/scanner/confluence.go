package scanner

import "github.com/duskline/biasengine/internal/domain"

// scoreConfluence applies §4.7.7: conflicting directions on the same
// ticker mark every signal with a warning and LOW confidence; otherwise two
// or more aligned signals earn a base boost, with named combos adding more
// and upgrading confidence to HIGH once the boost clears 40.
func scoreConfluence(signals []domain.Signal) []domain.Signal {
	if len(signals) < 2 {
		return signals
	}

	hasLong, hasShort := false, false
	for _, s := range signals {
		if s.Direction == domain.DirectionLong {
			hasLong = true
		} else {
			hasShort = true
		}
	}

	if hasLong && hasShort {
		for i := range signals {
			signals[i].Confidence = domain.ConfidenceLow
			signals[i].Confluence = &domain.Confluence{
				Count: len(signals), SignalTypes: typesOf(signals), Warning: "CONFLICTING_SIGNALS",
			}
		}
		return signals
	}

	present := make(map[domain.SignalType]bool, len(signals))
	for _, s := range signals {
		present[s.SignalType] = true
	}

	boost := 25
	combo := ""
	switch {
	case present[domain.SignalGoldenTouch] && present[domain.SignalTrappedShorts]:
		boost = 25 + 40
		combo = "Squeeze into trend"
	case present[domain.SignalGoldenTouch] && present[domain.SignalTwoCloseVolume]:
		boost = 25 + 25
		combo = "Trend + Volume confirmation"
	}

	for i := range signals {
		signals[i].Confluence = &domain.Confluence{
			Count: len(signals), SignalTypes: typesOf(signals), Boost: boost, Combo: combo,
		}
		if boost >= 40 {
			signals[i].Confidence = domain.ConfidenceHigh
		}
	}
	return signals
}

func typesOf(signals []domain.Signal) []domain.SignalType {
	out := make([]domain.SignalType, len(signals))
	for i, s := range signals {
		out[i] = s.SignalType
	}
	return out
}
