// Package calendar computes the calendar metadata the signal dispatcher
// (C8) and committee context assembler (C12) both stamp onto/carry with
// their outputs: weekday, hour of day, OPEX-week flag, and optional
// days-to-earnings/market-event fields.
package calendar

import (
	"context"
	"time"

	"github.com/duskline/biasengine/internal/domain"
)

// EarningsLookup answers how many calendar days until a symbol's next
// earnings print. No example pack repo ships an earnings-calendar client,
// so the default wiring (see NewCalendar's nil earnings argument) simply
// leaves CalendarContext.DaysToEarnings unset; callers that have a real
// feed can inject it here.
type EarningsLookup interface {
	DaysToEarnings(ctx context.Context, symbol string, asOf time.Time) (*int, error)
}

// Calendar computes the calendar metadata the dispatcher stamps onto every
// persisted signal: weekday, hour of day, OPEX-week flag, days to the next
// earnings print, and an optional named market-event tag for the day.
type Calendar struct {
	loc      *time.Location
	earnings EarningsLookup
	events   map[string]string // "2006-01-02" -> tag, e.g. FOMC day
}

// NewCalendar builds a Calendar. earnings and events may be nil/empty; both
// fields they feed are optional on CalendarContext.
func NewCalendar(loc *time.Location, earnings EarningsLookup, events map[string]string) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if events == nil {
		events = map[string]string{}
	}
	return &Calendar{loc: loc, earnings: earnings, events: events}
}

// Context returns the CalendarContext for symbol as of t.
func (c *Calendar) Context(ctx context.Context, symbol string, t time.Time) domain.CalendarContext {
	local := t.In(c.loc)

	var daysToEarnings *int
	if c.earnings != nil {
		if d, err := c.earnings.DaysToEarnings(ctx, symbol, local); err == nil {
			daysToEarnings = d
		}
	}

	return domain.CalendarContext{
		Weekday:        local.Weekday(),
		HourOfDay:      local.Hour(),
		OPEXWeek:       isOPEXWeek(local),
		DaysToEarnings: daysToEarnings,
		MarketEventTag: c.events[local.Format("2006-01-02")],
	}
}

// isOPEXWeek reports whether t falls in the Monday-Sunday week containing
// the month's third Friday, the standard monthly options-expiration date.
func isOPEXWeek(t time.Time) bool {
	return mondayOf(t).Equal(mondayOf(thirdFridayOf(t.Year(), t.Month(), t.Location())))
}

func mondayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -(wd - 1))
}

func thirdFridayOf(year int, month time.Month, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysUntilFriday := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	firstFriday := first.AddDate(0, 0, daysUntilFriday)
	return firstFriday.AddDate(0, 0, 14)
}
