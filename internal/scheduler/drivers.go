package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/composite"
	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/dispatcher"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/ingestors"
	"github.com/duskline/biasengine/internal/marketdata"
	"github.com/duskline/biasengine/internal/persistence"
	"github.com/duskline/biasengine/internal/scanner"
)

const (
	compositeRecomputeInterval = time.Minute
	heartbeatAlertKind         = "store_unreachable"
)

// Broadcaster is the narrow publish surface the health heartbeat notifies
// on a store outage; satisfied by internal/broadcast.Hub.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Deps are every collaborator the seven named drivers are built over.
// Leaving a driver's required collaborator nil omits that driver (useful
// for tests and for a degraded-mode process); the equities and crypto
// scanners share Scanner and Dispatcher and are omitted together. A nil
// Loc defaults to UTC, and a nil Alerts or Broadcaster only silences that
// side of the heartbeat.
type Deps struct {
	Loc *time.Location

	IntradayFactors   *ingestors.Registry
	SwingMacroFactors *ingestors.Registry
	FactorStore       *factorstore.Store
	Composite         *composite.Engine

	Scanner    *scanner.Scanner
	Dispatcher *dispatcher.Dispatcher

	Signals  persistence.SignalsRepo
	Outcomes persistence.SignalOutcomesRepo
	Fetcher  marketdata.Fetcher

	Health      persistence.RepositoryHealth
	Alerts      persistence.HealthAlertsRepo
	Broadcaster Broadcaster

	Cadence config.SchedulerConfig
}

// New builds the full C9 driver set from cfg's cadences and wires each
// driver's Gate/Run against deps. A Deps field left nil simply omits the
// driver that needs it.
func New(deps Deps) (*Scheduler, error) {
	loc := deps.Loc
	if loc == nil {
		loc = time.UTC
	}

	factorRefresh := time.Duration(deps.Cadence.FactorRefreshMinutes) * time.Minute
	openInterval := time.Duration(deps.Cadence.ScannerOpenMinutes) * time.Minute
	midInterval := time.Duration(deps.Cadence.ScannerMidMinutes) * time.Minute
	cryptoInterval := time.Duration(deps.Cadence.CryptoScannerMinutes) * time.Minute
	heartbeatInterval := time.Duration(deps.Cadence.HeartbeatMinutes) * time.Minute

	hourET, minuteET, err := parseHourMinute(deps.Cadence.SwingMacroHourET)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	var drivers []Driver

	if deps.IntradayFactors != nil && deps.FactorStore != nil {
		drivers = append(drivers, Driver{
			Name:     "factor_refresh_intraday",
			Interval: factorRefresh,
			Gate:     intradayFactorGate(loc),
			Run:      factorRefreshRun(deps.IntradayFactors, deps.FactorStore, deps.Composite),
		})
	}

	if deps.SwingMacroFactors != nil && deps.FactorStore != nil {
		drivers = append(drivers, Driver{
			Name:     "factor_refresh_swing_macro",
			Interval: factorRefresh,
			Gate:     swingMacroGate(loc, hourET, minuteET),
			Run:      factorRefreshRun(deps.SwingMacroFactors, deps.FactorStore, deps.Composite),
		})
	}

	if deps.Composite != nil {
		drivers = append(drivers, Driver{
			Name:     "composite_recompute",
			Interval: compositeRecomputeInterval,
			Run: func(ctx context.Context) error {
				_, err := deps.Composite.Compute(ctx)
				return err
			},
		})
	}

	if deps.Scanner != nil && deps.Dispatcher != nil {
		drivers = append(drivers, Driver{
			Name:     "scanner",
			Interval: openInterval,
			Gate:     scannerGate(loc, openInterval, midInterval),
			Run:      scanRun(deps.Scanner, deps.Dispatcher),
		})

		drivers = append(drivers, Driver{
			Name:     "crypto_scanner",
			Interval: cryptoInterval,
			Run:      scanRun(deps.Scanner, deps.Dispatcher),
		})
	}

	if deps.Signals != nil && deps.Outcomes != nil && deps.Fetcher != nil {
		tracker := newOutcomeTracker(deps.Signals, deps.Outcomes, deps.Fetcher)
		drivers = append(drivers, Driver{
			Name:     "outcome_tracker",
			Interval: time.Hour,
			Run:      tracker.run,
		})
	}

	if deps.Health != nil {
		drivers = append(drivers, Driver{
			Name:     "health_heartbeat",
			Interval: heartbeatInterval,
			Run:      heartbeatRun(deps.Health, deps.Alerts, deps.Broadcaster),
		})
	}

	return NewScheduler(drivers), nil
}

func factorRefreshRun(registry *ingestors.Registry, store *factorstore.Store, engine *composite.Engine) func(context.Context) error {
	return func(ctx context.Context) error {
		readings := registry.RunAll(ctx)
		for _, r := range readings {
			if err := store.StoreReading(ctx, r); err != nil {
				log.Warn().Err(err).Str("factor_id", r.FactorID).Msg("scheduler: failed to store factor reading")
			}
		}
		if len(readings) == 0 || engine == nil {
			return nil
		}
		_, err := engine.Compute(ctx)
		return err
	}
}

func scanRun(s *scanner.Scanner, d *dispatcher.Dispatcher) func(context.Context) error {
	return func(ctx context.Context) error {
		signals, err := s.ScanAll(ctx)
		if err != nil {
			return err
		}
		d.DispatchAll(ctx, signals)
		return nil
	}
}

func heartbeatRun(health persistence.RepositoryHealth, alerts persistence.HealthAlertsRepo, broadcaster Broadcaster) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := health.Ping(ctx); err != nil {
			alert := domain.HealthAlert{
				Timestamp: time.Now(),
				Severity:  domain.AlertCritical,
				Kind:      heartbeatAlertKind,
				Message:   fmt.Sprintf("store unreachable: %v", err),
			}
			if alerts != nil {
				if insertErr := alerts.Insert(ctx, alert); insertErr != nil {
					log.Warn().Err(insertErr).Msg("scheduler: failed to persist health alert")
				}
			}
			if broadcaster != nil {
				if event, encodeErr := domain.NewEvent(domain.EventHealthAlert, alert.Timestamp, alert); encodeErr == nil {
					_ = broadcaster.Publish(ctx, event)
				}
			}
			return err
		}
		return nil
	}
}

// parseHourMinute parses an "HH:MM" cadence field.
func parseHourMinute(hhmm string) (int, int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid HH:MM cadence %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in cadence %q: %w", hhmm, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in cadence %q: %w", hhmm, err)
	}
	return hour, minute, nil
}
