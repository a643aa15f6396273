// Package markethours gates trading cycles on exchange session hours.
package markethours

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/scmhub/calendar"
)

// DefaultMIC is the calendar used when none is configured.
const DefaultMIC = "xnys"

// Gate reports whether the exchange session is open at t.
type Gate interface {
	Open(t time.Time) bool
}

// AlwaysOpen never blocks a cycle.
type AlwaysOpen struct{}

func (AlwaysOpen) Open(time.Time) bool { return true }

// Calendar wraps an exchange calendar, with a Mon-Fri 09:30-16:00 New York fallback when the MIC is unknown.
type Calendar struct {
	cal      *calendar.Calendar
	loc      *time.Location
	fallback bool
}

// New loads the calendar for the given MIC (ISO 10383), falling back to xnys.
func New(mic string, log zerolog.Logger) *Calendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = DefaultMIC
	}
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != DefaultMIC {
		log.Warn().Str("mic", mic).Msg("unknown market calendar, using xnys")
		cal = calendar.GetCalendar(DefaultMIC)
	}
	if cal == nil {
		log.Warn().Str("mic", mic).Msg("market calendar unavailable, using weekday session fallback")
		return newFallback()
	}
	return &Calendar{cal: cal, loc: cal.Loc}
}

func newFallback() *Calendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, fallback: true}
}

// Open reports whether the market is in session at t.
func (c *Calendar) Open(t time.Time) bool {
	if c.loc != nil {
		t = t.In(c.loc)
	}
	if !c.fallback {
		return c.cal.IsOpen(t)
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	hour, minute := t.Hour(), t.Minute()
	return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
}

// BusinessDay reports whether t falls on a trading day.
func (c *Calendar) BusinessDay(t time.Time) bool {
	if c.loc != nil {
		t = t.In(c.loc)
	}
	if c.fallback {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return c.cal.IsBusinessDay(t)
}
