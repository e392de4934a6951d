// Package composite implements the composite bias engine (C5): fuses every
// active factor's reading into one directional score, applies velocity and
// circuit-breaker projections, and detects changes worth alerting on.
package composite

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/breaker"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/kvstore"
	"github.com/duskline/biasengine/internal/persistence"
)

const (
	shortCacheTTL    = 15 * time.Second
	durableCacheTTL  = 24 * time.Hour
	durableCacheKey  = "bias/composite/latest"
	overrideKey      = "bias/override"
	velocityDropMin  = 0.30
	velocityCount    = 3
	velocityMult     = 1.3
	staleAlertThresh = 5
	alertCooldown    = 15 * time.Minute
)

// Broadcaster is the narrow publish surface the engine notifies on bias
// changes and health alerts; satisfied by internal/broadcast.Hub.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.Event) error
}

// MetricsRecorder is the narrow instrumentation surface the engine reports
// compute outcomes to; satisfied by *internal/metrics.Recorder. A nil
// recorder (the zero value of Engine) simply skips instrumentation.
type MetricsRecorder interface {
	ObserveComputeDuration(d time.Duration, outcome string)
	SetBiasNumeric(n int)
	SetConfidence(level string)
	IncAlert(kind string)
}

// Engine computes and caches the fused composite bias.
type Engine struct {
	kv          kvstore.Store
	store       *factorstore.Store
	factors     []domain.FactorConfig
	breakerMgr  *breaker.Manager
	verify      breaker.VerifyFunc
	historyRepo persistence.CompositeHistoryRepo
	alertsRepo  persistence.HealthAlertsRepo
	broadcaster Broadcaster
	metrics     MetricsRecorder
	loc         *time.Location

	shortMu    sync.Mutex
	cached     *domain.CompositeResult
	cachedAt   time.Time
	previous   *domain.CompositeResult

	alertMu       sync.Mutex
	lastAlertedAt map[string]time.Time
}

// New builds a composite engine over its factor set and backing stores.
func New(
	kv kvstore.Store,
	store *factorstore.Store,
	factors []domain.FactorConfig,
	breakerMgr *breaker.Manager,
	verify breaker.VerifyFunc,
	historyRepo persistence.CompositeHistoryRepo,
	alertsRepo persistence.HealthAlertsRepo,
	broadcaster Broadcaster,
) *Engine {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Engine{
		kv: kv, store: store, factors: factors, breakerMgr: breakerMgr, verify: verify,
		historyRepo: historyRepo, alertsRepo: alertsRepo, broadcaster: broadcaster, loc: loc,
		lastAlertedAt: make(map[string]time.Time),
	}
}

// SetMetrics installs an instrumentation recorder; nil disables it.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

// Cached returns the short in-process cached result if still fresh, and
// whether one was available.
func (e *Engine) Cached() (*domain.CompositeResult, bool) {
	e.shortMu.Lock()
	defer e.shortMu.Unlock()
	if e.cached != nil && time.Since(e.cachedAt) < shortCacheTTL {
		return e.cached, true
	}
	return nil, false
}

// Compute runs one full composite cycle: load factors, fuse, project the
// circuit breaker, detect changes, persist, and tick breaker decay.
func (e *Engine) Compute(ctx context.Context) (*domain.CompositeResult, error) {
	if cached, ok := e.Cached(); ok {
		return cached, nil
	}

	now := time.Now()
	if e.metrics != nil {
		defer func(start time.Time) {
			e.metrics.ObserveComputeDuration(time.Since(start), "ok")
		}(now)
	}
	factorsByID, active, stale, unverifiable := e.loadFactors(ctx, now)

	rawScore := e.weightedSum(factorsByID, active)

	velocityMultiplier := e.velocityMultiplier(ctx, factorsByID, active, now)
	rawScore = domain.Clamp(rawScore * velocityMultiplier)

	biasLevel := domain.BandFor(rawScore)
	biasNumeric := biasLevel.Numeric()

	override, overrideApplied := e.applyOverride(ctx, now, &biasLevel, &biasNumeric)

	var breakerSnapshot *domain.CircuitBreakerSnapshot
	if e.breakerMgr != nil {
		state := e.breakerMgr.Current()
		if state.Active {
			modifier := state.EffectiveModifier()
			projected := domain.Clamp(rawScore * modifier)
			biasLevel = domain.BandFor(projected)
			biasNumeric = biasLevel.Numeric()
			if state.BiasCap != nil && biasNumeric > *state.BiasCap {
				biasNumeric = *state.BiasCap
				biasLevel, _ = domain.BiasFromNumeric(biasNumeric)
			}
			if state.BiasFloor != nil && biasNumeric < *state.BiasFloor {
				biasNumeric = *state.BiasFloor
				biasLevel, _ = domain.BiasFromNumeric(biasNumeric)
			}
			breakerSnapshot = &domain.CircuitBreakerSnapshot{
				Trigger: string(state.Trigger), ScoringModifier: modifier,
				BiasCap: state.BiasCap, BiasFloor: state.BiasFloor,
				DecayFade: state.DecayFade, AppliedAt: now,
			}
		}
	}

	confidence := domain.ConfidenceFor(len(active))

	result := &domain.CompositeResult{
		CompositeScore: rawScore, BiasLevel: biasLevel, BiasNumeric: biasNumeric,
		Factors: factorsByID, ActiveFactors: active, StaleFactors: stale,
		UnverifiableFactors: unverifiable, VelocityMultiplier: velocityMultiplier,
		Confidence: confidence, CircuitBreaker: breakerSnapshot, Timestamp: now,
	}
	if overrideApplied {
		result.Override = override
	}

	if e.metrics != nil {
		e.metrics.SetBiasNumeric(result.BiasNumeric)
		e.metrics.SetConfidence(string(result.Confidence))
	}

	e.persist(ctx, result)
	e.detectChangeAndAlert(ctx, result, stale)

	if e.breakerMgr != nil && e.verify != nil {
		if _, err := e.breakerMgr.DecayTick(ctx, e.verify); err != nil {
			log.Warn().Err(err).Msg("circuit breaker decay tick failed")
		}
	}

	return result, nil
}

func (e *Engine) loadFactors(ctx context.Context, now time.Time) (map[string]*domain.FactorReading, []string, []string, []string) {
	factorsByID := make(map[string]*domain.FactorReading, len(e.factors))
	var active, stale, unverifiable []string

	for _, fc := range e.factors {
		r, err := e.store.GetLatest(ctx, fc.FactorID)
		if err != nil {
			log.Warn().Err(err).Str("factor_id", fc.FactorID).Msg("factor read failed, treating as stale")
			stale = append(stale, fc.FactorID)
			continue
		}
		if r == nil || fc.IsStale(r.Timestamp, now) {
			stale = append(stale, fc.FactorID)
			if r != nil {
				factorsByID[fc.FactorID] = r
			}
			continue
		}
		factorsByID[fc.FactorID] = r
		active = append(active, fc.FactorID)
		if r.IsUnverifiable() {
			unverifiable = append(unverifiable, fc.FactorID)
		}
	}
	return factorsByID, active, stale, unverifiable
}

func (e *Engine) weightedSum(factorsByID map[string]*domain.FactorReading, active []string) float64 {
	if len(active) == 0 {
		return 0
	}
	var weightSum float64
	weightByID := make(map[string]float64, len(e.factors))
	for _, fc := range e.factors {
		weightByID[fc.FactorID] = fc.Weight
	}
	for _, id := range active {
		weightSum += weightByID[id]
	}
	if weightSum <= 0 {
		return 0
	}
	var sum float64
	for _, id := range active {
		sum += (weightByID[id] / weightSum) * factorsByID[id].Score
	}
	return domain.Clamp(sum)
}

// velocityMultiplier counts active factors whose score dropped by at least
// velocityDropMin over the trailing 24h; at or above velocityCount such
// drops it amplifies the raw score rather than dampening it, since a
// cluster of simultaneous deteriorations is itself informative.
func (e *Engine) velocityMultiplier(ctx context.Context, factorsByID map[string]*domain.FactorReading, active []string, now time.Time) float64 {
	cutoff := now.Add(-24 * time.Hour)
	drops := 0
	for _, id := range active {
		current := factorsByID[id]
		prior, err := e.store.GetBefore(ctx, id, cutoff)
		if err != nil || prior == nil {
			continue
		}
		if prior.Score-current.Score >= velocityDropMin {
			drops++
		}
	}
	if drops >= velocityCount {
		return velocityMult
	}
	return 1.0
}

// applyOverride loads any persisted operator override and, unless the raw
// composite has since crossed into the opposite half, substitutes its
// level for the band-mapped output.
func (e *Engine) applyOverride(ctx context.Context, now time.Time, biasLevel *domain.BiasLevel, biasNumeric *int) (*domain.Override, bool) {
	raw, ok, err := e.kv.Get(ctx, overrideKey)
	if err != nil || !ok {
		return nil, false
	}
	var override domain.Override
	if err := json.Unmarshal(raw, &override); err != nil {
		return nil, false
	}
	if override.Expired(now) {
		return nil, false
	}

	rawNumeric := (*biasLevel).Numeric()
	crossed := (override.Level.Numeric() > 3 && rawNumeric <= 2) || (override.Level.Numeric() < 3 && rawNumeric >= 4)
	if crossed {
		_ = e.kv.Del(ctx, overrideKey)
		return nil, false
	}

	*biasLevel = override.Level
	*biasNumeric = override.Level.Numeric()
	return &override, true
}

func (e *Engine) persist(ctx context.Context, result *domain.CompositeResult) {
	e.shortMu.Lock()
	e.previous = e.cached
	e.cached = result
	e.cachedAt = time.Now()
	e.shortMu.Unlock()

	raw, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Msg("composite result marshal failed")
		return
	}
	if err := e.kv.Set(ctx, durableCacheKey, raw, durableCacheTTL); err != nil {
		log.Warn().Err(err).Msg("composite durable cache write failed")
	}
	if e.historyRepo != nil {
		if err := e.historyRepo.Insert(ctx, *result); err != nil {
			log.Warn().Err(err).Msg("composite history insert failed")
		}
	}
}

func (e *Engine) detectChangeAndAlert(ctx context.Context, result *domain.CompositeResult, stale []string) {
	e.shortMu.Lock()
	previous := e.previous
	e.shortMu.Unlock()

	if previous != nil && previous.BiasLevel != result.BiasLevel {
		e.emitEvent(ctx, domain.EventBiasUpdate, result)
		e.alert(ctx, "bias_level_changed", domain.AlertInfo,
			fmt.Sprintf("bias changed %s -> %s", previous.BiasLevel, result.BiasLevel))
	}
	if previous != nil && previous.Confidence == domain.ConfidenceHigh && result.Confidence == domain.ConfidenceLow {
		e.alert(ctx, "confidence_collapsed", domain.AlertWarning, "confidence collapsed HIGH -> LOW")
	}
	if len(stale) >= staleAlertThresh && e.isMarketSession(result.Timestamp) {
		e.alert(ctx, "stale_factors", domain.AlertWarning,
			fmt.Sprintf("%d factors stale during market session", len(stale)))
	}
}

func (e *Engine) emitEvent(ctx context.Context, eventType domain.EventType, payload interface{}) {
	if e.broadcaster == nil {
		return
	}
	event, err := domain.NewEvent(eventType, time.Now(), payload)
	if err != nil {
		return
	}
	if err := e.broadcaster.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("broadcast failed")
	}
}

// alert is cooldown-bounded per kind to avoid flapping.
func (e *Engine) alert(ctx context.Context, kind string, severity domain.AlertSeverity, message string) {
	e.alertMu.Lock()
	last, seen := e.lastAlertedAt[kind]
	if seen && time.Since(last) < alertCooldown {
		e.alertMu.Unlock()
		return
	}
	e.lastAlertedAt[kind] = time.Now()
	e.alertMu.Unlock()

	if e.metrics != nil {
		e.metrics.IncAlert(kind)
	}

	alert := domain.HealthAlert{Timestamp: time.Now(), Severity: severity, Kind: kind, Message: message}
	if e.alertsRepo != nil {
		if err := e.alertsRepo.Insert(ctx, alert); err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("health alert persist failed")
		}
	}
	e.emitEvent(ctx, domain.EventHealthAlert, alert)
}

// isMarketSession reports whether t falls within a US equity trading
// session: weekday, hours 9 through 17 (9:00-17:59) America/New_York.
func (e *Engine) isMarketSession(t time.Time) bool {
	local := t.In(e.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	hour := local.Hour()
	return hour >= 9 && hour <= 17
}
