package scheduler

import "time"

// marketOpen and marketClose bound the US equity session in its own
// location; open/close minutes are measured from these.
const (
	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	marketCloseMinute = 0
)

// inMarketSession reports whether t (any location) falls within a weekday
// 09:30-16:00 session in loc.
func inMarketSession(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	open := time.Date(local.Year(), local.Month(), local.Day(), marketOpenHour, marketOpenMinute, 0, 0, loc)
	close := time.Date(local.Year(), local.Month(), local.Day(), marketCloseHour, marketCloseMinute, 0, 0, loc)
	return !local.Before(open) && local.Before(close)
}

// inOpenOrCloseHour reports whether t falls in the first or last hour of
// the session, where the scanner's faster 15-minute cadence applies.
func inOpenOrCloseHour(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	open := time.Date(local.Year(), local.Month(), local.Day(), marketOpenHour, marketOpenMinute, 0, 0, loc)
	close := time.Date(local.Year(), local.Month(), local.Day(), marketCloseHour, marketCloseMinute, 0, 0, loc)
	return local.Before(open.Add(time.Hour)) || !local.Before(close.Add(-time.Hour))
}

// scannerGate builds the Gate for the equities scanner driver: paused
// outside market hours, runs every tick during the open/close hour, and
// only every other tick (mid-session cadence) otherwise. The driver's own
// ticker fires at the open-hour cadence (the finer of the two), so the
// mid-session throttling is done here by comparing elapsed time since the
// last run against the configured mid-session interval.
func scannerGate(loc *time.Location, openInterval, midInterval time.Duration) Gate {
	return func(now, lastRun time.Time) bool {
		if !inMarketSession(now, loc) {
			return false
		}
		if inOpenOrCloseHour(now, loc) {
			return true
		}
		return lastRun.IsZero() || now.Sub(lastRun) >= midInterval-openInterval/2
	}
}

// swingMacroGate builds the Gate for the once-daily swing/macro factor
// refresh: fires on the first tick at or after hourET:minuteET each day.
func swingMacroGate(loc *time.Location, hourET, minuteET int) Gate {
	return func(now, lastRun time.Time) bool {
		local := now.In(loc)
		target := time.Date(local.Year(), local.Month(), local.Day(), hourET, minuteET, 0, 0, loc)
		if local.Before(target) {
			return false
		}
		return lastRun.Before(target)
	}
}

// intradayFactorGate pauses the intraday factor refresh outside market
// hours - there is nothing fresh to pull when the market is closed.
func intradayFactorGate(loc *time.Location) Gate {
	return func(now, lastRun time.Time) bool {
		return inMarketSession(now, loc)
	}
}
