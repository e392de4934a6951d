// Package committee implements the committee context assembler (C12): a
// pure aggregation of the fused bias, a per-ticker technical snapshot,
// calendar context, portfolio state, recent signal outcomes, and
// unacknowledged health alerts into one CommitteePacket. No LLM calls, no
// prompt templates - that layer is explicitly out of scope here.
package committee

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/calendar"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

const (
	recentSignalsForTechnicals = 200
	recentOutcomesLimit        = 50
)

// BiasProvider is the narrow read surface onto the composite engine's
// cached result, satisfied by composite.Engine.
type BiasProvider interface {
	Cached() (*domain.CompositeResult, bool)
}

// Assembler builds CommitteePackets from the stores behind C2/C3/C5.
type Assembler struct {
	bias      BiasProvider
	signals   persistence.SignalsRepo
	portfolio persistence.PortfolioRepo
	outcomes  persistence.SignalOutcomesRepo
	alerts    persistence.HealthAlertsRepo
	calendar  *calendar.Calendar

	mu   sync.Mutex
	last *domain.CommitteePacket
}

// New builds an Assembler. cal may be nil to use a UTC calendar with no
// earnings lookup or named market events.
func New(bias BiasProvider, signals persistence.SignalsRepo, portfolio persistence.PortfolioRepo, outcomes persistence.SignalOutcomesRepo, alerts persistence.HealthAlertsRepo, cal *calendar.Calendar) *Assembler {
	if cal == nil {
		cal = calendar.NewCalendar(time.UTC, nil, nil)
	}
	return &Assembler{bias: bias, signals: signals, portfolio: portfolio, outcomes: outcomes, alerts: alerts, calendar: cal}
}

// Assemble reads every source and returns one CommitteePacket. A failure
// reading any single source is logged and leaves that field at its zero
// value rather than failing the whole assembly - a partial packet is more
// useful to downstream decisioning than none at all.
func (a *Assembler) Assemble(ctx context.Context) domain.CommitteePacket {
	packet := domain.CommitteePacket{
		Calendar: a.calendar.Context(ctx, "", time.Now()),
	}

	if result, ok := a.bias.Cached(); ok && result != nil {
		packet.Bias = *result
	}

	packet.Technicals = a.technicals(ctx)

	if snap, err := a.portfolio.GetLatest(ctx); err != nil {
		log.Warn().Err(err).Msg("committee: failed to read latest portfolio snapshot")
	} else if snap != nil {
		packet.Portfolio = *snap
	}

	if outcomes, err := a.outcomes.ListRecent(ctx, recentOutcomesLimit); err != nil {
		log.Warn().Err(err).Msg("committee: failed to read recent signal outcomes")
	} else {
		packet.RecentPnL = outcomes
	}

	if alerts, err := a.alerts.ListUnacknowledged(ctx); err != nil {
		log.Warn().Err(err).Msg("committee: failed to read unacknowledged health alerts")
	} else {
		packet.Feedback = alerts
	}

	a.mu.Lock()
	a.last = &packet
	a.mu.Unlock()

	return packet
}

// LastPacket returns the most recently assembled packet, if any.
func (a *Assembler) LastPacket() (domain.CommitteePacket, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return domain.CommitteePacket{}, false
	}
	return *a.last, true
}

// technicals derives one IndicatorSnapshot per ticker from the most
// recently emitted signal for that ticker, since SignalsRepo.ListRecent
// is ordered newest-first.
func (a *Assembler) technicals(ctx context.Context) map[string]domain.IndicatorSnapshot {
	recent, err := a.signals.ListRecent(ctx, recentSignalsForTechnicals)
	if err != nil {
		log.Warn().Err(err).Msg("committee: failed to read recent signals for technicals")
		return map[string]domain.IndicatorSnapshot{}
	}
	out := map[string]domain.IndicatorSnapshot{}
	for _, sig := range recent {
		if _, seen := out[sig.Symbol]; seen {
			continue
		}
		out[sig.Symbol] = sig.Context
	}
	return out
}

// Kick satisfies dispatcher.CommitteeTrigger: it assembles a packet
// eagerly in response to a newly dispatched signal rather than waiting
// on a poll, making it available via LastPacket for whatever surface
// exposes it to downstream decisioning (out of scope here).
func (a *Assembler) Kick(ctx context.Context, signal domain.Signal) {
	a.Assemble(ctx)
}
