// Package breaker implements the circuit breaker (C6): a persisted state
// machine that dampens or caps the composite bias after a sharp market
// move. Once a trigger's decay window has passed and its verify condition
// clears, the breaker enters pending_reset and its scoring modifier fades
// back toward 1.0 over 60 minutes until the reset is accepted or rejected.
package breaker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
)

const stateKey = "bias/circuit_breaker"

// Broadcaster is the narrow publish surface the breaker notifies on state
// transitions; satisfied by internal/broadcast.Hub.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.Event) error
}

// VerifyFunc reports whether a trigger's clearing condition currently
// holds (e.g. "SPY not down >= 1% vs prior close"), evaluated fresh each
// decay tick rather than cached, since market conditions move between
// ticks.
type VerifyFunc func(ctx context.Context, trigger domain.Trigger) (bool, error)

// MetricsRecorder is the narrow instrumentation surface the breaker reports
// state transitions and decay ticks to; satisfied by
// *internal/metrics.Recorder.
type MetricsRecorder interface {
	RecordTransition(trigger string)
	SetActive(active bool)
	IncDecayTick()
}

// Manager owns the single persisted breaker state and serializes every
// mutation behind one mutex - Apply and decay ticks contend for the same
// lock, matching the concurrency model's compare-then-swap guarantee.
type Manager struct {
	kv          kvstore.Store
	broadcaster Broadcaster
	metrics     MetricsRecorder

	mu    sync.Mutex
	state domain.State
}

// NewManager builds a breaker manager in the cleared state; call Restore
// to load any persisted state from a previous process.
func NewManager(kv kvstore.Store, broadcaster Broadcaster) *Manager {
	return &Manager{kv: kv, broadcaster: broadcaster, state: domain.Cleared()}
}

// SetMetrics installs an instrumentation recorder; nil disables it.
func (m *Manager) SetMetrics(rec MetricsRecorder) {
	m.metrics = rec
}

// Restore loads persisted state from KV on process start.
func (m *Manager) Restore(ctx context.Context) error {
	raw, ok, err := m.kv.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("breaker: restore: %w", err)
	}
	if !ok {
		return nil
	}
	var state domain.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("breaker: restore: unmarshal: %w", err)
	}
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return nil
}

// Current returns a copy of the presently active state.
func (m *Manager) Current() domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply installs a new trigger under the no-downgrade guard: if a more
// severe trigger is already active, the new (lower-severity) one is
// dropped and the current state returned unchanged. spy_recovery always
// clears the breaker entirely regardless of what is currently active.
func (m *Manager) Apply(ctx context.Context, trigger domain.Trigger) (domain.State, error) {
	policy, ok := domain.TriggerPolicies[trigger]
	if !ok {
		return domain.State{}, fmt.Errorf("breaker: unknown trigger %q", trigger)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if trigger == domain.TriggerSpyRecovery {
		m.state = domain.Cleared()
		if err := m.persistLocked(ctx); err != nil {
			return domain.State{}, err
		}
		m.notifyLocked(ctx, domain.EventCircuitBreaker)
		return m.state, nil
	}

	if m.state.Active && policy.Severity < m.state.Severity {
		return m.state, nil
	}

	now := time.Now()
	m.state = domain.State{
		Active:          true,
		Trigger:         trigger,
		Severity:        policy.Severity,
		TriggeredAt:     now,
		BiasCap:         policy.BiasCap,
		BiasFloor:       policy.BiasFloor,
		ScoringModifier: policy.ScoringModifier,
		Description:     string(trigger),
	}
	if err := m.persistLocked(ctx); err != nil {
		return domain.State{}, err
	}
	m.notifyLocked(ctx, domain.EventCircuitBreaker)
	return m.state, nil
}

// AcceptReset clears the breaker; valid only while pending_reset.
func (m *Manager) AcceptReset(ctx context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.PendingReset {
		return domain.State{}, fmt.Errorf("breaker: accept_reset: not in pending_reset")
	}
	m.state = domain.Cleared()
	if err := m.persistLocked(ctx); err != nil {
		return domain.State{}, err
	}
	m.notifyLocked(ctx, domain.EventCircuitBreaker)
	return m.state, nil
}

// RejectReset clears the pending-reset flags and restarts the decay clock;
// valid only while pending_reset.
func (m *Manager) RejectReset(ctx context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.PendingReset {
		return domain.State{}, fmt.Errorf("breaker: reject_reset: not in pending_reset")
	}
	m.state.PendingReset = false
	m.state.PendingSince = nil
	m.state.DecayFade = 0
	m.state.TriggeredAt = time.Now()
	if err := m.persistLocked(ctx); err != nil {
		return domain.State{}, err
	}
	return m.state, nil
}

// DecayTick runs one decay evaluation: if the active trigger has exceeded
// its max decay window and its verify condition currently clears, it moves
// to pending_reset; if already pending_reset, it advances the linear fade.
// Invoked once per composite compute cycle.
func (m *Manager) DecayTick(ctx context.Context, verify VerifyFunc) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Active {
		return m.state, nil
	}
	if m.metrics != nil {
		m.metrics.IncDecayTick()
	}

	now := time.Now()

	if m.state.PendingReset {
		elapsed := now.Sub(*m.state.PendingSince).Minutes()
		m.state.DecayFade = maxFloat(0, 1-elapsed/60)
		if err := m.persistLocked(ctx); err != nil {
			return domain.State{}, err
		}
		return m.state, nil
	}

	policy := domain.TriggerPolicies[m.state.Trigger]
	if policy.MaxDecayMinutes <= 0 {
		return m.state, nil
	}
	elapsed := now.Sub(m.state.TriggeredAt).Minutes()
	if elapsed < float64(policy.MaxDecayMinutes) {
		return m.state, nil
	}

	cleared, err := verify(ctx, m.state.Trigger)
	if err != nil || !cleared {
		return m.state, err
	}

	m.state.PendingReset = true
	m.state.PendingSince = &now
	m.state.DecayFade = 1.0
	if err := m.persistLocked(ctx); err != nil {
		return domain.State{}, err
	}
	m.notifyLocked(ctx, domain.EventCircuitBreakerPendingReset)
	return m.state, nil
}

func (m *Manager) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("breaker: marshal state: %w", err)
	}
	if err := m.kv.Set(ctx, stateKey, raw, 0); err != nil {
		return fmt.Errorf("breaker: persist state: %w", err)
	}
	return nil
}

func (m *Manager) notifyLocked(ctx context.Context, eventType domain.EventType) {
	if m.metrics != nil {
		m.metrics.RecordTransition(string(m.state.Trigger))
		m.metrics.SetActive(m.state.Active)
	}
	if m.broadcaster == nil {
		return
	}
	event, err := domain.NewEvent(eventType, time.Now(), m.state)
	if err != nil {
		return
	}
	_ = m.broadcaster.Publish(ctx, event)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
