package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOPEXWeek_ThirdFridayWeekIsOPEX(t *testing.T) {
	// March 2026: first is a Sunday, first Friday is Mar 6, third Friday is Mar 20.
	thirdFriday := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)
	assert.True(t, isOPEXWeek(thirdFriday))

	mondayOfThatWeek := time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)
	assert.True(t, isOPEXWeek(mondayOfThatWeek))
}

func TestIsOPEXWeek_OtherWeeksAreNotOPEX(t *testing.T) {
	firstWeek := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	assert.False(t, isOPEXWeek(firstWeek))

	lastWeek := time.Date(2026, time.March, 30, 12, 0, 0, 0, time.UTC)
	assert.False(t, isOPEXWeek(lastWeek))
}

func TestCalendar_Context_FillsWeekdayHourAndEventTag(t *testing.T) {
	cal := NewCalendar(time.UTC, nil, map[string]string{"2026-03-18": "FOMC"})
	ts := time.Date(2026, time.March, 18, 14, 30, 0, 0, time.UTC)

	ctx := cal.Context(context.Background(), "SPY", ts)

	assert.Equal(t, time.Wednesday, ctx.Weekday)
	assert.Equal(t, 14, ctx.HourOfDay)
	assert.True(t, ctx.OPEXWeek)
	assert.Equal(t, "FOMC", ctx.MarketEventTag)
	assert.Nil(t, ctx.DaysToEarnings)
}

type stubEarnings struct{ days int }

func (s *stubEarnings) DaysToEarnings(ctx context.Context, symbol string, asOf time.Time) (*int, error) {
	d := s.days
	return &d, nil
}

func TestCalendar_Context_UsesInjectedEarningsLookup(t *testing.T) {
	cal := NewCalendar(time.UTC, &stubEarnings{days: 4}, nil)
	ctx := cal.Context(context.Background(), "SPY", time.Now())
	if assert.NotNil(t, ctx.DaysToEarnings) {
		assert.Equal(t, 4, *ctx.DaysToEarnings)
	}
}
