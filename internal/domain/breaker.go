package domain

import "time"

// Trigger is a closed-set identifier for a circuit breaker event.
type Trigger string

const (
	TriggerSpyRecovery Trigger = "spy_recovery"
	TriggerSpyUp2Pct   Trigger = "spy_up_2pct"
	TriggerSpyDown1Pct Trigger = "spy_down_1pct"
	TriggerVixSpike    Trigger = "vix_spike"
	TriggerSpyDown2Pct Trigger = "spy_down_2pct"
	TriggerVixExtreme  Trigger = "vix_extreme"
)

// TriggerPolicy is the fixed per-trigger policy installed by Apply.
type TriggerPolicy struct {
	Trigger          Trigger
	Severity         int
	BiasCap          *int
	BiasFloor        *int
	ScoringModifier  float64
	MaxDecayMinutes  int
	VerifyConditions string
}

func intPtr(n int) *int { return &n }

// TriggerPolicies is the closed policy table, ranked by severity low to
// high. spy_recovery (severity 0) clears the breaker entirely rather than
// installing caps/floors.
var TriggerPolicies = map[Trigger]TriggerPolicy{
	TriggerSpyRecovery: {
		Trigger: TriggerSpyRecovery, Severity: 0, ScoringModifier: 1.00,
	},
	TriggerSpyUp2Pct: {
		Trigger: TriggerSpyUp2Pct, Severity: 1, BiasFloor: intPtr(BiasUrsaMinor.Numeric()),
		ScoringModifier: 1.10, MaxDecayMinutes: 240,
	},
	TriggerSpyDown1Pct: {
		Trigger: TriggerSpyDown1Pct, Severity: 2, BiasCap: intPtr(BiasToroMinor.Numeric()),
		ScoringModifier: 0.90, MaxDecayMinutes: 240, VerifyConditions: "spy_not_down_1pct",
	},
	TriggerVixSpike: {
		Trigger: TriggerVixSpike, Severity: 3, BiasCap: intPtr(BiasToroMinor.Numeric()),
		ScoringModifier: 0.85, MaxDecayMinutes: 360, VerifyConditions: "vix_below_20",
	},
	TriggerSpyDown2Pct: {
		Trigger: TriggerSpyDown2Pct, Severity: 4, BiasCap: intPtr(BiasToroMinor.Numeric()),
		BiasFloor: intPtr(BiasUrsaMinor.Numeric()), ScoringModifier: 0.75, MaxDecayMinutes: 1440,
		VerifyConditions: "spy_not_down_2pct",
	},
	TriggerVixExtreme: {
		Trigger: TriggerVixExtreme, Severity: 5, BiasCap: intPtr(BiasToroMinor.Numeric()),
		BiasFloor: intPtr(BiasUrsaMinor.Numeric()), ScoringModifier: 0.70, MaxDecayMinutes: 1440,
		VerifyConditions: "vix_below_30",
	},
}

// State is the persisted circuit breaker state machine.
type State struct {
	Active          bool       `json:"active"`
	Trigger         Trigger    `json:"trigger,omitempty"`
	Severity        int        `json:"severity"`
	TriggeredAt     time.Time  `json:"triggered_at,omitempty"`
	BiasCap         *int       `json:"bias_cap,omitempty"`
	BiasFloor       *int       `json:"bias_floor,omitempty"`
	ScoringModifier float64    `json:"scoring_modifier"`
	Description     string     `json:"description,omitempty"`
	PendingReset    bool       `json:"pending_reset"`
	PendingSince    *time.Time `json:"pending_since,omitempty"`
	DecayFade       float64    `json:"decay_fade"`
}

// Cleared returns the zero-value breaker state: inactive, no modifiers.
func Cleared() State {
	return State{ScoringModifier: 1.0}
}

// EffectiveModifier returns the scoring modifier actually applied at compute
// time, accounting for linear decay fade while pending_reset: the modifier
// interpolates from its installed value toward 1.0 over the fade window.
func (s State) EffectiveModifier() float64 {
	if !s.Active {
		return 1.0
	}
	if !s.PendingReset {
		return s.ScoringModifier
	}
	return s.ScoringModifier + (1.0-s.ScoringModifier)*(1.0-s.DecayFade)
}
