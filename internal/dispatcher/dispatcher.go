// Package dispatcher implements the signal dispatcher (C8): the narrow
// pipeline between the scanner emitting a candidate signal and the
// downstream stores/clients that consume it. It deduplicates against an
// in-process cooldown cache distinct from the scanner's own persisted
// LastEmitted check, stamps an immutable bias snapshot and calendar
// context, persists, and broadcasts.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/calendar"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

const defaultCooldown = 5 * time.Minute

// BiasProvider is the narrow read surface onto the composite engine's
// cached result, satisfied by composite.Engine.
type BiasProvider interface {
	Cached() (*domain.CompositeResult, bool)
}

// Broadcaster is the narrow publish surface the dispatcher notifies on
// newly dispatched signals; satisfied by internal/broadcast.Hub.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.Event) error
}

// CommitteeTrigger optionally kicks off a committee packet build once a
// signal has been dispatched. Satisfied by internal/committee.Assembler;
// a nil CommitteeTrigger simply skips this step.
type CommitteeTrigger interface {
	Kick(ctx context.Context, signal domain.Signal)
}

// MetricsRecorder is the narrow instrumentation surface the dispatcher
// reports dispatch/suppression outcomes to; satisfied by
// *internal/metrics.Recorder.
type MetricsRecorder interface {
	RecordDispatch(dispatched bool)
}

// Dispatcher turns a scanner's candidate signal into a persisted,
// broadcast event.
type Dispatcher struct {
	signals     persistence.SignalsRepo
	bias        BiasProvider
	broadcaster Broadcaster
	calendar    *calendar.Calendar
	committee   CommitteeTrigger
	metrics     MetricsRecorder

	cooldown time.Duration

	mu             sync.Mutex
	lastDispatched map[string]time.Time
}

// New builds a Dispatcher. committee may be nil to skip C12 kickoff.
func New(signals persistence.SignalsRepo, bias BiasProvider, broadcaster Broadcaster, cal *calendar.Calendar, committee CommitteeTrigger, cooldown time.Duration) *Dispatcher {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if cal == nil {
		cal = calendar.NewCalendar(time.UTC, nil, nil)
	}
	return &Dispatcher{
		signals:        signals,
		bias:           bias,
		broadcaster:    broadcaster,
		calendar:       cal,
		committee:      committee,
		cooldown:       cooldown,
		lastDispatched: map[string]time.Time{},
	}
}

// SetMetrics installs an instrumentation recorder; nil disables it.
func (d *Dispatcher) SetMetrics(m MetricsRecorder) {
	d.metrics = m
}

// Dispatch runs the five-step pipeline against one candidate signal. It
// returns (false, nil) when the signal was suppressed by the in-process
// cooldown cache rather than dispatched.
func (d *Dispatcher) Dispatch(ctx context.Context, signal domain.Signal) (bool, error) {
	key := signal.Symbol + "|" + string(signal.SignalType)

	d.mu.Lock()
	if last, ok := d.lastDispatched[key]; ok && time.Since(last) < d.cooldown {
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.RecordDispatch(false)
		}
		return false, nil
	}
	d.lastDispatched[key] = time.Now()
	d.mu.Unlock()

	if snapshot, ok := d.bias.Cached(); ok && snapshot != nil {
		captured := *snapshot
		signal.BiasSnapshot = &captured
	}

	signal.Calendar = d.calendar.Context(ctx, signal.Symbol, signal.EmittedAt)

	if err := d.signals.Insert(ctx, signal); err != nil {
		return false, fmt.Errorf("persist signal %s: %w", signal.SignalID, err)
	}

	event, err := domain.NewEvent(domain.EventNewSignal, signal.EmittedAt, signal)
	if err != nil {
		return false, fmt.Errorf("encode new-signal event: %w", err)
	}
	if err := d.broadcaster.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("signal_id", signal.SignalID).Msg("failed to broadcast new signal")
	}

	if d.committee != nil {
		d.committee.Kick(ctx, signal)
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(true)
	}

	return true, nil
}

// DispatchAll runs Dispatch over a batch, logging and continuing past any
// single signal's persistence error rather than aborting the batch.
func (d *Dispatcher) DispatchAll(ctx context.Context, signals []domain.Signal) int {
	dispatched := 0
	for _, sig := range signals {
		ok, err := d.Dispatch(ctx, sig)
		if err != nil {
			log.Error().Err(err).Str("symbol", sig.Symbol).Str("signal_type", string(sig.SignalType)).Msg("signal dispatch failed")
			continue
		}
		if ok {
			dispatched++
		}
	}
	return dispatched
}
