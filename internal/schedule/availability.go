package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/ezekaj/elo-deu/internal/clinic"
)

// ErrNoAvailability is returned when no free slot exists inside the
// search horizon.
var ErrNoAvailability = errors.New("no availability within search horizon")

var germanWeekdays = [7]string{
	"Sonntag", "Montag", "Dienstag", "Mittwoch",
	"Donnerstag", "Freitag", "Samstag",
}

// Slot is one bookable start on a concrete day.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Display renders the slot for the caller, e.g.
// "Mittwoch, 15.01.2025 um 10:00 Uhr".
func (s Slot) Display() string {
	d, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return fmt.Sprintf("%s um %s Uhr", s.Date, s.Time)
	}
	return fmt.Sprintf("%s, %s um %s Uhr",
		germanWeekdays[d.Weekday()], d.Format("02.01.2006"), s.Time)
}

// Engine answers availability questions against the practice hours and
// the slot store. Results are duration-aware: a time counts as free only
// when the treatment's whole span of slots is free.
type Engine struct {
	hours       clinic.Hours
	store       SlotStore
	horizonDays int
}

// NewEngine builds an availability engine. horizonDays bounds every
// forward search.
func NewEngine(hours clinic.Hours, store SlotStore, horizonDays int) *Engine {
	if store == nil {
		panic("schedule: nil SlotStore")
	}
	if horizonDays < 1 {
		horizonDays = 1
	}
	return &Engine{hours: hours, store: store, horizonDays: horizonDays}
}

// Hours exposes the practice hours the engine schedules against.
func (e *Engine) Hours() clinic.Hours { return e.hours }

// SpanFree reports whether the full span for the treatment starting at tm
// on the date is bookable, and returns the span's slot times.
func (e *Engine) SpanFree(date time.Time, tm string, treatment clinic.Treatment) ([]string, bool) {
	span := SpanTimes(e.hours, date, tm, treatment.Duration)
	if span == nil {
		return nil, false
	}
	key := date.Format(DateLayout)
	for _, t := range span {
		if e.store.IsBooked(key, t) {
			return span, false
		}
	}
	return span, true
}

// AvailableTimes lists every free start time on the date for the
// treatment, in clock order. A closed day yields an empty list.
func (e *Engine) AvailableTimes(date time.Time, treatment clinic.Treatment) []string {
	return e.AvailableTimesAfter(date, treatment, -1)
}

// AvailableTimesAfter lists the free start times strictly later than the
// given minute of day. A negative minute applies no cutoff; pass the
// current clock minute so that today's already elapsed times are never
// offered.
func (e *Engine) AvailableTimesAfter(date time.Time, treatment clinic.Treatment, afterMinute int) []string {
	var out []string
	for _, tm := range GridTimes(e.hours, date) {
		if m, err := clinic.ParseClock(tm); err != nil || m <= afterMinute {
			continue
		}
		if _, ok := e.SpanFree(date, tm, treatment); ok {
			out = append(out, tm)
		}
	}
	return out
}

// NextAvailableDay finds the first day at or after from with at least one
// free time for the treatment, together with that day's free times. On
// the first day only times after from's clock time count.
func (e *Engine) NextAvailableDay(from time.Time, treatment clinic.Treatment) (time.Time, []string, error) {
	for i := 0; i < e.horizonDays; i++ {
		day := from.AddDate(0, 0, i)
		after := -1
		if i == 0 {
			after = clinic.MinuteOfDay(from)
		}
		if times := e.AvailableTimesAfter(day, treatment, after); len(times) > 0 {
			return day, times, nil
		}
	}
	return time.Time{}, nil, ErrNoAvailability
}

// FindNext collects up to count free slots starting at from, scanning
// forward day by day. Times already past on the first day are skipped.
func (e *Engine) FindNext(from time.Time, treatment clinic.Treatment, count int) []Slot {
	var out []Slot
	for i := 0; i < e.horizonDays && len(out) < count; i++ {
		day := from.AddDate(0, 0, i)
		key := day.Format(DateLayout)
		after := -1
		if i == 0 {
			after = clinic.MinuteOfDay(from)
		}
		for _, tm := range e.AvailableTimesAfter(day, treatment, after) {
			out = append(out, Slot{Date: key, Time: tm})
			if len(out) == count {
				break
			}
		}
	}
	return out
}

// Alternatives proposes up to n replacements for a taken slot: first the
// free times on the same day nearest to the wish time, then the wish time
// itself on the following days.
func (e *Engine) Alternatives(date time.Time, tm string, treatment clinic.Treatment, n int) []Slot {
	var out []Slot
	wish, err := clinic.ParseClock(tm)
	if err != nil {
		wish = -1
	}

	sameDay := e.AvailableTimes(date, treatment)
	// Order same-day candidates by distance from the wish time.
	for len(sameDay) > 0 && len(out) < n {
		best := 0
		for i := 1; i < len(sameDay); i++ {
			if clockDistance(sameDay[i], wish) < clockDistance(sameDay[best], wish) {
				best = i
			}
		}
		out = append(out, Slot{Date: date.Format(DateLayout), Time: sameDay[best]})
		sameDay = append(sameDay[:best], sameDay[best+1:]...)
	}

	for i := 1; i <= e.horizonDays && len(out) < n; i++ {
		day := date.AddDate(0, 0, i)
		if _, ok := e.SpanFree(day, tm, treatment); ok {
			out = append(out, Slot{Date: day.Format(DateLayout), Time: tm})
		}
	}
	return out
}

func clockDistance(tm string, wish int) int {
	if wish < 0 {
		return 0
	}
	m, err := clinic.ParseClock(tm)
	if err != nil {
		return 1 << 20
	}
	if m > wish {
		return m - wish
	}
	return wish - m
}
