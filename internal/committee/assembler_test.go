package committee

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

type stubBias struct {
	result *domain.CompositeResult
	ok     bool
}

func (b *stubBias) Cached() (*domain.CompositeResult, bool) { return b.result, b.ok }

type stubSignals struct {
	recent []domain.Signal
	err    error
}

func (s *stubSignals) Insert(ctx context.Context, signal domain.Signal) error { return nil }
func (s *stubSignals) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	return nil, nil
}
func (s *stubSignals) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]domain.Signal, error) {
	return nil, nil
}
func (s *stubSignals) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	return s.recent, s.err
}
func (s *stubSignals) LastEmitted(ctx context.Context, symbol string, signalType domain.SignalType) (*domain.Signal, error) {
	return nil, nil
}

type stubPortfolio struct {
	snapshot *domain.PortfolioSnapshot
	err      error
}

func (p *stubPortfolio) Insert(ctx context.Context, snapshot domain.PortfolioSnapshot) error {
	return nil
}
func (p *stubPortfolio) GetLatest(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	return p.snapshot, p.err
}

type stubOutcomes struct {
	recent []domain.SignalOutcome
	err    error
}

func (o *stubOutcomes) Insert(ctx context.Context, outcome domain.SignalOutcome) error { return nil }
func (o *stubOutcomes) GetBySignalID(ctx context.Context, signalID string) (*domain.SignalOutcome, error) {
	return nil, nil
}
func (o *stubOutcomes) ListRecent(ctx context.Context, limit int) ([]domain.SignalOutcome, error) {
	return o.recent, o.err
}

type stubAlerts struct {
	unacked []domain.HealthAlert
	err     error
}

func (a *stubAlerts) Insert(ctx context.Context, alert domain.HealthAlert) error { return nil }
func (a *stubAlerts) ListUnacknowledged(ctx context.Context) ([]domain.HealthAlert, error) {
	return a.unacked, a.err
}
func (a *stubAlerts) Acknowledge(ctx context.Context, timestamp time.Time, kind string) error {
	return nil
}

func TestAssemble_CombinesEverySource(t *testing.T) {
	bias := &stubBias{result: &domain.CompositeResult{BiasLevel: domain.BiasToroMajor, CompositeScore: 0.65}, ok: true}
	signals := &stubSignals{recent: []domain.Signal{
		{Symbol: "SPY", Context: domain.IndicatorSnapshot{Price: 500}, EmittedAt: time.Now()},
		{Symbol: "SPY", Context: domain.IndicatorSnapshot{Price: 490}, EmittedAt: time.Now().Add(-time.Hour)},
		{Symbol: "QQQ", Context: domain.IndicatorSnapshot{Price: 400}, EmittedAt: time.Now()},
	}}
	portfolio := &stubPortfolio{snapshot: &domain.PortfolioSnapshot{Equity: 100000, OpenPositions: 3}}
	outcomes := &stubOutcomes{recent: []domain.SignalOutcome{{SignalID: "x", RMultiple: 1.5}}}
	alerts := &stubAlerts{unacked: []domain.HealthAlert{{Kind: "stale_factor", Severity: domain.AlertWarning}}}

	assembler := New(bias, signals, portfolio, outcomes, alerts, nil)
	packet := assembler.Assemble(context.Background())

	assert.Equal(t, domain.BiasToroMajor, packet.Bias.BiasLevel)
	require.Contains(t, packet.Technicals, "SPY")
	assert.Equal(t, 500.0, packet.Technicals["SPY"].Price, "must use the newest signal's context per ticker")
	require.Contains(t, packet.Technicals, "QQQ")
	assert.Equal(t, 100000.0, packet.Portfolio.Equity)
	require.Len(t, packet.RecentPnL, 1)
	assert.Equal(t, 1.5, packet.RecentPnL[0].RMultiple)
	require.Len(t, packet.Feedback, 1)
	assert.Equal(t, "stale_factor", packet.Feedback[0].Kind)
}

func TestAssemble_ToleratesPartialSourceFailures(t *testing.T) {
	bias := &stubBias{ok: false}
	signals := &stubSignals{err: assert.AnError}
	portfolio := &stubPortfolio{err: assert.AnError}
	outcomes := &stubOutcomes{err: assert.AnError}
	alerts := &stubAlerts{err: assert.AnError}

	assembler := New(bias, signals, portfolio, outcomes, alerts, nil)
	packet := assembler.Assemble(context.Background())

	assert.Equal(t, domain.CompositeResult{}, packet.Bias)
	assert.Empty(t, packet.Technicals)
	assert.Equal(t, domain.PortfolioSnapshot{}, packet.Portfolio)
	assert.Nil(t, packet.RecentPnL)
	assert.Nil(t, packet.Feedback)
}

func TestKick_PopulatesLastPacket(t *testing.T) {
	bias := &stubBias{result: &domain.CompositeResult{BiasLevel: domain.BiasNeutral}, ok: true}
	assembler := New(bias, &stubSignals{}, &stubPortfolio{}, &stubOutcomes{}, &stubAlerts{}, nil)

	_, ok := assembler.LastPacket()
	assert.False(t, ok, "no packet assembled yet")

	assembler.Kick(context.Background(), domain.Signal{Symbol: "SPY"})

	packet, ok := assembler.LastPacket()
	require.True(t, ok)
	assert.Equal(t, domain.BiasNeutral, packet.Bias.BiasLevel)
}
