// Package clinic provides practice-specific configuration and business rules:
// opening hours, the treatment catalog, and patient-facing practice info.
package clinic

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosedDay means the practice is closed at the requested time
	// (closed weekday, or outside the open intervals).
	ErrClosedDay = errors.New("clinic: closed at requested time")
	// ErrLunchBreak means the requested time falls inside the lunch closure.
	// Kept distinct from ErrClosedDay so callers can phrase the right apology.
	ErrLunchBreak = errors.New("clinic: lunch break")
)

// Interval is a half-open [Start, End) window within a day, in minutes
// since midnight. A request exactly at End is outside the interval.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether the minute-of-day falls inside the interval.
func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

func (iv Interval) String() string {
	return FormatClock(iv.Start) + "-" + FormatClock(iv.End)
}

// Hours encodes the weekly opening schedule of the practice.
type Hours struct {
	byWeekday [7][]Interval
	lunch     Interval
	lunchDays [7]bool
}

// DefaultHours returns the practice schedule:
//
//	Mon-Thu  09:00-11:30 and 14:00-17:30 (lunch closure 11:30-14:00)
//	Fri      09:00-11:30 and 14:00-16:00 (same lunch closure)
//	Sat      09:00-12:30 (morning only)
//	Sun      closed
func DefaultHours() Hours {
	var h Hours
	morning := Interval{Start: 9 * 60, End: 11*60 + 30}
	lunch := Interval{Start: 11*60 + 30, End: 14 * 60}

	for wd := time.Monday; wd <= time.Thursday; wd++ {
		h.byWeekday[wd] = []Interval{morning, {Start: 14 * 60, End: 17*60 + 30}}
		h.lunchDays[wd] = true
	}
	h.byWeekday[time.Friday] = []Interval{morning, {Start: 14 * 60, End: 16 * 60}}
	h.lunchDays[time.Friday] = true
	h.byWeekday[time.Saturday] = []Interval{{Start: 9 * 60, End: 12*60 + 30}}
	h.lunch = lunch
	return h
}

// OpeningIntervals returns the ordered open intervals for the given date's
// weekday. Empty means the practice is closed all day.
func (h Hours) OpeningIntervals(date time.Time) []Interval {
	return h.byWeekday[date.Weekday()]
}

// Check returns nil when the practice is open at t, ErrLunchBreak when t
// falls inside the lunch closure, and ErrClosedDay otherwise.
func (h Hours) Check(t time.Time) error {
	minute := MinuteOfDay(t)
	for _, iv := range h.OpeningIntervals(t) {
		if iv.Contains(minute) {
			return nil
		}
	}
	if h.lunchDays[t.Weekday()] && h.lunch.Contains(minute) {
		return ErrLunchBreak
	}
	return ErrClosedDay
}

// IsOpen reports whether the practice is open at t.
func (h Hours) IsOpen(t time.Time) bool {
	return h.Check(t) == nil
}

// MinuteOfDay returns t's clock time in minutes since midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseClock parses an "HH:MM" 24-hour clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("clinic: invalid clock time %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clinic: invalid clock time %q", s)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// HoursText renders the weekly schedule as a patient-readable German summary.
func (h Hours) HoursText() string {
	return "Mo-Do 9:00-11:30 und 14:00-17:30, Fr 9:00-11:30 und 14:00-16:00, Sa 9:00-12:30, So geschlossen"
}
