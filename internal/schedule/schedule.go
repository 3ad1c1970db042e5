// Package schedule decides whether a recurring notification is due.
// The evaluator is a pure predicate; last-run bookkeeping is owned by
// the caller and updated only after a confirmed send.
package schedule

import (
	"strings"
	"time"
)

const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyMonthly  = "monthly"
	FrequencyInterval = "custom-interval"
)

// toleranceMinutes widens the time-of-day gate so a polling caller that
// does not tick exactly on the minute still hits the window.
const toleranceMinutes = 5

type Spec struct {
	Enabled      bool     `toml:"enabled"`
	Frequency    string   `toml:"frequency"`
	Time         string   `toml:"time"`     // "15:04" wall clock
	Timezone     string   `toml:"timezone"` // IANA name, empty means UTC
	DaysOfWeek   []string `toml:"days_of_week"`
	DayOfMonth   int      `toml:"day_of_month"`
	IntervalDays int      `toml:"interval_days"`
}

// IsDue reports whether a run is due at now given the spec and the last
// successful run. lastRun is nil when the user has never been notified.
// Unknown frequencies and unparsable specs are never due.
func IsDue(spec Spec, lastRun *time.Time, now time.Time) bool {
	loc := location(spec.Timezone)
	local := now.In(loc)

	if !withinWindow(local, spec.Time) {
		return false
	}
	if !spec.Enabled {
		return false
	}

	switch spec.Frequency {
	case FrequencyDaily:
		return lastRun == nil || !sameDate(lastRun.In(loc), local)

	case FrequencyWeekly:
		if !containsDay(spec.DaysOfWeek, local.Weekday()) {
			return false
		}
		return lastRun == nil || !sameDate(lastRun.In(loc), local)

	case FrequencyMonthly:
		if local.Day() != spec.DayOfMonth {
			return false
		}
		if lastRun == nil {
			return true
		}
		last := lastRun.In(loc)
		return last.Year() != local.Year() || last.Month() != local.Month()

	case FrequencyInterval:
		if lastRun == nil {
			return true
		}
		return daysApart(lastRun.In(loc), local) >= spec.IntervalDays

	default:
		return false
	}
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func withinWindow(local time.Time, at string) bool {
	target, err := time.Parse("15:04", at)
	if err != nil {
		return false
	}

	nowMin := local.Hour()*60 + local.Minute()
	targetMin := target.Hour()*60 + target.Minute()

	diff := nowMin - targetMin
	if diff < 0 {
		diff = -diff
	}
	// A window straddling midnight counts from the other side too.
	if wrapped := 24*60 - diff; wrapped < diff {
		diff = wrapped
	}
	return diff <= toleranceMinutes
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func containsDay(days []string, day time.Weekday) bool {
	for _, d := range days {
		if strings.EqualFold(d, day.String()) {
			return true
		}
	}
	return false
}

// daysApart counts whole calendar days between two local timestamps.
func daysApart(earlier, later time.Time) int {
	e := time.Date(earlier.Year(), earlier.Month(), earlier.Day(), 0, 0, 0, 0, time.UTC)
	l := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	return int(l.Sub(e).Hours() / 24)
}
