// Package timeutil provides calendar helpers for the attendance engine.
// Session dates are civil dates: they are stored as midnight UTC of the
// calendar day observed in the institution's local zone.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// DateLayout is the wire and storage format of a session date.
const DateLayout = "2006-01-02"

var (
	locMu sync.RWMutex
	loc   = time.UTC
)

// SetLocation sets the institution's local zone used to decide which
// calendar day "now" belongs to.
func SetLocation(l *time.Location) {
	if l == nil {
		return
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
}

// LoadLocation resolves an IANA zone name and installs it via SetLocation.
func LoadLocation(name string) error {
	if name == "" {
		return nil
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	SetLocation(l)
	return nil
}

// Location returns the configured local zone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// Clock abstracts time.Now so handlers can be tested with a fixed day.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock reading the wall clock.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// DateOf returns the civil date of t in the configured local zone.
func DateOf(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the civil date of the clock's current instant.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// Date builds a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Normalize strips the clock part of a date without changing its calendar day.
// Unlike DateOf it does not convert zones first.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	a, b = Normalize(a), Normalize(b)
	return int(b.Sub(a).Hours() / 24)
}

// AddDays shifts a civil date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return Normalize(d).AddDate(0, 0, n)
}
