package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/calendar"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

type stubSignalsRepo struct {
	inserted []domain.Signal
	failNext bool
}

func (s *stubSignalsRepo) Insert(ctx context.Context, signal domain.Signal) error {
	if s.failNext {
		s.failNext = false
		return assert.AnError
	}
	s.inserted = append(s.inserted, signal)
	return nil
}
func (s *stubSignalsRepo) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	return nil, nil
}
func (s *stubSignalsRepo) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]domain.Signal, error) {
	return nil, nil
}
func (s *stubSignalsRepo) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	return nil, nil
}
func (s *stubSignalsRepo) LastEmitted(ctx context.Context, symbol string, signalType domain.SignalType) (*domain.Signal, error) {
	return nil, nil
}

type stubBias struct {
	result *domain.CompositeResult
	ok     bool
}

func (b *stubBias) Cached() (*domain.CompositeResult, bool) { return b.result, b.ok }

type stubBroadcasterD struct {
	published []domain.Event
	failNext  bool
}

func (b *stubBroadcasterD) Publish(ctx context.Context, event domain.Event) error {
	if b.failNext {
		return assert.AnError
	}
	b.published = append(b.published, event)
	return nil
}

type stubCommittee struct {
	kicked []domain.Signal
}

func (c *stubCommittee) Kick(ctx context.Context, signal domain.Signal) {
	c.kicked = append(c.kicked, signal)
}

func newTestSignal(symbol string, signalType domain.SignalType) domain.Signal {
	return domain.Signal{
		SignalID:   symbol + "-" + string(signalType),
		Symbol:     symbol,
		SignalType: signalType,
		Direction:  domain.DirectionLong,
		EmittedAt:  time.Date(2026, time.March, 18, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatch_PersistsBroadcastsAndStampsMetadata(t *testing.T) {
	signals := &stubSignalsRepo{}
	broadcaster := &stubBroadcasterD{}
	bias := &stubBias{result: &domain.CompositeResult{BiasLevel: domain.BiasToroMajor, CompositeScore: 0.7}, ok: true}
	committee := &stubCommittee{}
	d := New(signals, bias, broadcaster, calendar.NewCalendar(time.UTC, nil, nil), committee, time.Minute)

	ok, err := d.Dispatch(context.Background(), newTestSignal("SPY", domain.SignalGoldenTouch))
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, signals.inserted, 1)
	persisted := signals.inserted[0]
	require.NotNil(t, persisted.BiasSnapshot)
	assert.Equal(t, domain.BiasToroMajor, persisted.BiasSnapshot.BiasLevel)
	assert.Equal(t, time.Wednesday, persisted.Calendar.Weekday)
	assert.True(t, persisted.Calendar.OPEXWeek)

	require.Len(t, broadcaster.published, 1)
	assert.Equal(t, domain.EventNewSignal, broadcaster.published[0].Type)

	require.Len(t, committee.kicked, 1)
	assert.Equal(t, "SPY-GOLDEN_TOUCH", committee.kicked[0].SignalID)
}

func TestDispatch_DedupesWithinCooldown(t *testing.T) {
	signals := &stubSignalsRepo{}
	d := New(signals, &stubBias{}, &stubBroadcasterD{}, nil, nil, time.Hour)

	sig := newTestSignal("SPY", domain.SignalGoldenTouch)
	ok1, err := d.Dispatch(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := d.Dispatch(context.Background(), sig)
	require.NoError(t, err)
	assert.False(t, ok2, "second dispatch within cooldown must be suppressed")
	assert.Len(t, signals.inserted, 1)
}

func TestDispatch_DifferentSymbolsAreIndependentOfCooldown(t *testing.T) {
	signals := &stubSignalsRepo{}
	d := New(signals, &stubBias{}, &stubBroadcasterD{}, nil, nil, time.Hour)

	_, err := d.Dispatch(context.Background(), newTestSignal("SPY", domain.SignalGoldenTouch))
	require.NoError(t, err)
	ok, err := d.Dispatch(context.Background(), newTestSignal("QQQ", domain.SignalGoldenTouch))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, signals.inserted, 2)
}

func TestDispatch_NoBiasSnapshotWhenCacheEmpty(t *testing.T) {
	signals := &stubSignalsRepo{}
	d := New(signals, &stubBias{ok: false}, &stubBroadcasterD{}, nil, nil, time.Minute)

	_, err := d.Dispatch(context.Background(), newTestSignal("SPY", domain.SignalGoldenTouch))
	require.NoError(t, err)
	assert.Nil(t, signals.inserted[0].BiasSnapshot)
}

func TestDispatch_PersistenceErrorPropagatesAndSkipsBroadcast(t *testing.T) {
	signals := &stubSignalsRepo{failNext: true}
	broadcaster := &stubBroadcasterD{}
	d := New(signals, &stubBias{}, broadcaster, nil, nil, time.Minute)

	ok, err := d.Dispatch(context.Background(), newTestSignal("SPY", domain.SignalGoldenTouch))
	require.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, broadcaster.published)
}

func TestDispatch_BroadcastErrorIsNonFatal(t *testing.T) {
	signals := &stubSignalsRepo{}
	broadcaster := &stubBroadcasterD{failNext: true}
	d := New(signals, &stubBias{}, broadcaster, nil, nil, time.Minute)

	ok, err := d.Dispatch(context.Background(), newTestSignal("SPY", domain.SignalGoldenTouch))
	require.NoError(t, err)
	assert.True(t, ok, "a broadcast failure must not fail the dispatch")
}

func TestDispatchAll_ContinuesPastSingleFailure(t *testing.T) {
	signals := &stubSignalsRepo{failNext: true}
	d := New(signals, &stubBias{}, &stubBroadcasterD{}, nil, nil, time.Minute)

	// The first (SPY) insert fails; the batch must still dispatch the rest.
	sigs := []domain.Signal{
		newTestSignal("SPY", domain.SignalGoldenTouch),
		newTestSignal("QQQ", domain.SignalTwoCloseVolume),
		newTestSignal("IWM", domain.SignalGoldenTouch),
	}
	n := d.DispatchAll(context.Background(), sigs)
	assert.Equal(t, 2, n)
	assert.Len(t, signals.inserted, 2)
}
