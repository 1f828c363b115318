// Package calendar maps instants to the calendar dates the ledger is keyed
// on, in a configured location and with a configurable logical day cutoff.
package calendar

import (
	"time"

	"github.com/sadopc/earntime/internal/store"
)

// DefaultCutoffHour is the hour at which a logical day begins.
const DefaultCutoffHour = 6

// Calendar is an injectable clock plus the location used for dates.
// The zero value uses time.Now, time.Local and a 06:00 cutoff.
type Calendar struct {
	Clock      func() time.Time
	Location   *time.Location
	CutoffHour int
}

// Default returns a Calendar on the wall clock in the local time zone.
func Default() Calendar {
	return Calendar{Clock: time.Now, Location: time.Local, CutoffHour: DefaultCutoffHour}
}

// Fixed returns a Calendar whose clock always reads t. Useful in tests.
func Fixed(t time.Time) Calendar {
	return Calendar{Clock: func() time.Time { return t }, Location: t.Location(), CutoffHour: DefaultCutoffHour}
}

func (c Calendar) Now() time.Time {
	if c.Clock == nil {
		return time.Now().In(c.loc())
	}
	return c.Clock().In(c.loc())
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) cutoff() int {
	if c.CutoffHour <= 0 || c.CutoffHour > 23 {
		return DefaultCutoffHour
	}
	return c.CutoffHour
}

// Date formats the calendar day of t as YYYY-MM-DD.
func (c Calendar) Date(t time.Time) string {
	return t.In(c.loc()).Format(store.DateLayout)
}

// Today is Date(Now()).
func (c Calendar) Today() string {
	return c.Date(c.Now())
}

// StartOfDay returns local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc())
}

// StartOfWeek returns local midnight of the Monday of the week containing t.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	weekday := day.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return day.AddDate(0, 0, -int(weekday-time.Monday))
}

// Cutoff returns the cutoff instant on the calendar day of t. The hour is
// on the wall clock, so it stays at 06:00 across DST transitions.
func (c Calendar) Cutoff(t time.Time) time.Time {
	t = t.In(c.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), c.cutoff(), 0, 0, 0, c.loc())
}

// LogicalDate is the calendar date of t with days starting at the cutoff
// hour instead of midnight: 02:00 on the 5th belongs to the 4th.
func (c Calendar) LogicalDate(t time.Time) string {
	t = t.In(c.loc())
	if t.Before(c.Cutoff(t)) {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format(store.DateLayout)
}

// Days returns the n dates ending with the day of t, oldest first.
func (c Calendar) Days(t time.Time, n int) []string {
	day := c.StartOfDay(t)
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, day.AddDate(0, 0, -i).Format(store.DateLayout))
	}
	return out
}

// ParseDate reads a YYYY-MM-DD date as midnight in the calendar's location.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(store.DateLayout, s, c.loc())
}
