package domain

import "time"

// Override is a persisted operator-enforced bias level.
type Override struct {
	Level   BiasLevel  `json:"level"`
	SetAt   time.Time  `json:"set_at"`
	Expires *time.Time `json:"expires,omitempty"`
}

// Expired reports whether the override is no longer valid as of now.
func (o *Override) Expired(now time.Time) bool {
	if o == nil {
		return true
	}
	if o.Expires == nil {
		return false
	}
	return now.After(*o.Expires)
}

// CircuitBreakerSnapshot is the projection C5 recorded on a CompositeResult
// when the breaker was active at compute time.
type CircuitBreakerSnapshot struct {
	Trigger         string    `json:"trigger"`
	ScoringModifier float64   `json:"scoring_modifier"`
	BiasCap         *int      `json:"bias_cap,omitempty"`
	BiasFloor       *int      `json:"bias_floor,omitempty"`
	DecayFade       float64   `json:"decay_fade"`
	AppliedAt       time.Time `json:"applied_at"`
}

// CompositeResult is the fused output of the bias engine for one compute
// cycle.
type CompositeResult struct {
	CompositeScore       float64                    `json:"composite_score"`
	BiasLevel            BiasLevel                  `json:"bias_level"`
	BiasNumeric          int                        `json:"bias_numeric"`
	Factors              map[string]*FactorReading  `json:"factors"`
	ActiveFactors        []string                   `json:"active_factors"`
	StaleFactors         []string                   `json:"stale_factors"`
	UnverifiableFactors  []string                   `json:"unverifiable_factors"`
	VelocityMultiplier   float64                    `json:"velocity_multiplier"`
	Override             *Override                  `json:"override,omitempty"`
	Confidence           Confidence                 `json:"confidence"`
	CircuitBreaker       *CircuitBreakerSnapshot    `json:"circuit_breaker,omitempty"`
	Timestamp            time.Time                  `json:"timestamp"`
}
