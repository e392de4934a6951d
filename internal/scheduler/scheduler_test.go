package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsDriverOnEachTick(t *testing.T) {
	var calls int32
	d := Driver{
		Name:     "ping",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}
	s := NewScheduler([]Driver{d})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&calls)), 3)

	status, ok := s.Status("ping")
	require.True(t, ok)
	assert.True(t, status.LastOK)
	assert.Equal(t, status.RunCount, int(atomic.LoadInt32(&calls)))
}

func TestScheduler_GateSuppressesTick(t *testing.T) {
	var calls int32
	d := Driver{
		Name:     "gated",
		Interval: 10 * time.Millisecond,
		Gate:     func(now, lastRun time.Time) bool { return false },
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}
	s := NewScheduler([]Driver{d})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	status, ok := s.Status("gated")
	require.True(t, ok)
	assert.Greater(t, status.SkipCount, 0)
}

func TestScheduler_RecordsFailure(t *testing.T) {
	d := Driver{
		Name:     "failing",
		Interval: time.Hour,
		Run:      func(ctx context.Context) error { return assert.AnError },
	}
	s := NewScheduler([]Driver{d})

	ok, err := s.RunNow(context.Background(), "failing")
	require.True(t, ok)
	require.Error(t, err)

	status, _ := s.Status("failing")
	assert.False(t, status.LastOK)
	assert.Equal(t, assert.AnError.Error(), status.LastErr)
}

func TestScheduler_RunNow_UnknownDriverReturnsFalse(t *testing.T) {
	s := NewScheduler(nil)
	ok, err := s.RunNow(context.Background(), "nope")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestScheduler_Statuses_ReturnsAllDriversInOrder(t *testing.T) {
	s := NewScheduler([]Driver{
		{Name: "a", Interval: time.Hour, Run: func(context.Context) error { return nil }},
		{Name: "b", Interval: time.Hour, Run: func(context.Context) error { return nil }},
	})
	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Name)
	assert.Equal(t, "b", statuses[1].Name)
}
