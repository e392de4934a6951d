package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/marketdata"
	"github.com/duskline/biasengine/internal/persistence"
)

const (
	// outcomeLookbackSignals bounds how many recent signals the hourly
	// tracker walks looking for ones still unresolved.
	outcomeLookbackSignals = 500
	// maxSignalAgeForTracking gives up tracking a signal this old; its
	// setup has almost certainly played out or gone stale either way.
	maxSignalAgeForTracking  = 60 * 24 * time.Hour
	outcomeFetchLookbackDays = 400
)

// outcomeTracker walks recently emitted signals without a recorded
// outcome and checks whether their stop or first target (T1) has since
// been touched, recording the first one hit; T2 is not checked, and a bar
// that touches both stop and T1 records the stop.
//
// PriceBar carries no per-bar date (grounded on the same shape the
// scanner's indicator panel uses), so the bar index corresponding to a
// signal's emission is approximated from elapsed calendar days rather
// than matched against an authoritative per-bar timestamp.
type outcomeTracker struct {
	signals  persistence.SignalsRepo
	outcomes persistence.SignalOutcomesRepo
	fetcher  marketdata.Fetcher
}

func newOutcomeTracker(signals persistence.SignalsRepo, outcomes persistence.SignalOutcomesRepo, fetcher marketdata.Fetcher) *outcomeTracker {
	return &outcomeTracker{signals: signals, outcomes: outcomes, fetcher: fetcher}
}

func (t *outcomeTracker) run(ctx context.Context) error {
	recent, err := t.signals.ListRecent(ctx, outcomeLookbackSignals)
	if err != nil {
		return err
	}

	now := time.Now()
	checked, resolved := 0, 0
	for _, sig := range recent {
		if now.Sub(sig.EmittedAt) > maxSignalAgeForTracking {
			continue
		}
		existing, err := t.outcomes.GetBySignalID(ctx, sig.SignalID)
		if err != nil {
			log.Warn().Err(err).Str("signal_id", sig.SignalID).Msg("outcome tracker: failed to check existing outcome")
			continue
		}
		if existing != nil {
			continue
		}
		checked++

		outcome, err := t.evaluate(ctx, sig, now)
		if err != nil {
			log.Warn().Err(err).Str("signal_id", sig.SignalID).Msg("outcome tracker: evaluation failed")
			continue
		}
		if outcome == nil {
			continue
		}
		if err := t.outcomes.Insert(ctx, *outcome); err != nil {
			log.Warn().Err(err).Str("signal_id", sig.SignalID).Msg("outcome tracker: failed to persist outcome")
			continue
		}
		resolved++
	}

	log.Debug().Int("checked", checked).Int("resolved", resolved).Msg("outcome tracker: cycle complete")
	return nil
}

// evaluate fetches OHLCV for sig's symbol and walks bars since
// (approximately) its emission looking for the first stop or target
// touch. Returns (nil, nil) when the signal is still open.
func (t *outcomeTracker) evaluate(ctx context.Context, sig domain.Signal, now time.Time) (*domain.SignalOutcome, error) {
	bars, err := t.fetcher.FetchDaily(ctx, sig.Symbol, outcomeFetchLookbackDays)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	elapsedDays := int(now.Sub(sig.EmittedAt).Hours() / 24)
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	start := len(bars) - 1 - elapsedDays
	if start < 0 {
		start = 0
	}

	setup := sig.Setup
	for i := start; i < len(bars); i++ {
		bar := bars[i]
		hitStop, hitTarget := false, false
		switch sig.Direction {
		case domain.DirectionLong:
			hitStop = bar.Low <= setup.Stop
			hitTarget = bar.High >= setup.T1
		case domain.DirectionShort:
			hitStop = bar.High >= setup.Stop
			hitTarget = bar.Low <= setup.T1
		}

		switch {
		case hitStop:
			return outcomeFor(sig, setup.Stop, false, true, now), nil
		case hitTarget:
			return outcomeFor(sig, setup.T1, true, false, now), nil
		}
	}
	return nil, nil
}

func outcomeFor(sig domain.Signal, exit float64, hitTarget, hitStop bool, closedAt time.Time) *domain.SignalOutcome {
	risk := sig.Setup.Entry - sig.Setup.Stop
	if sig.Direction == domain.DirectionShort {
		risk = sig.Setup.Stop - sig.Setup.Entry
	}
	var rMultiple float64
	if risk != 0 {
		move := exit - sig.Setup.Entry
		if sig.Direction == domain.DirectionShort {
			move = sig.Setup.Entry - exit
		}
		rMultiple = move / absFloat(risk)
	}
	return &domain.SignalOutcome{
		SignalID:  sig.SignalID,
		ClosedAt:  closedAt,
		ExitPrice: exit,
		HitTarget: hitTarget,
		HitStop:   hitStop,
		RMultiple: rMultiple,
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
