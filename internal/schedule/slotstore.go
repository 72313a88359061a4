// Package schedule owns the slot calendar: which start times are reserved
// per day, and which times remain available given the practice hours.
package schedule

import (
	"sort"
	"sync"
)

// SlotStore tracks reserved start times per calendar day. Dates are
// "YYYY-MM-DD", times are "HH:MM". Reserve must be atomic per day so two
// concurrent callers cannot both take the same slot.
type SlotStore interface {
	// IsBooked reports whether the start time is reserved on the date.
	IsBooked(date, tm string) bool
	// Reserve atomically books every given time on the date. It returns
	// false, reserving nothing, when any of them is already taken.
	Reserve(date string, times ...string) bool
	// Release frees the given times on the date. Unknown times are ignored.
	Release(date string, times ...string)
	// BookedTimes returns the reserved times for the date in clock order.
	BookedTimes(date string) []string
}

// MemorySlotStore is the in-process SlotStore. Each day carries its own
// lock, so bookings on different days never contend.
type MemorySlotStore struct {
	mu   sync.Mutex
	days map[string]*daySlots
}

type daySlots struct {
	mu    sync.Mutex
	taken map[string]struct{}
}

// NewMemorySlotStore creates an empty in-memory slot store.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{days: make(map[string]*daySlots)}
}

func (s *MemorySlotStore) day(date string) *daySlots {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[date]
	if !ok {
		d = &daySlots{taken: make(map[string]struct{})}
		s.days[date] = d
	}
	return d
}

// IsBooked reports whether the start time is reserved on the date.
func (s *MemorySlotStore) IsBooked(date, tm string) bool {
	d := s.day(date)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, booked := d.taken[tm]
	return booked
}

// Reserve books all given times on the date, or none of them.
func (s *MemorySlotStore) Reserve(date string, times ...string) bool {
	if len(times) == 0 {
		return false
	}
	d := s.day(date)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tm := range times {
		if _, booked := d.taken[tm]; booked {
			return false
		}
	}
	for _, tm := range times {
		d.taken[tm] = struct{}{}
	}
	return true
}

// Release frees the given times on the date.
func (s *MemorySlotStore) Release(date string, times ...string) {
	d := s.day(date)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tm := range times {
		delete(d.taken, tm)
	}
}

// BookedTimes returns the reserved times for the date in clock order.
func (s *MemorySlotStore) BookedTimes(date string) []string {
	d := s.day(date)
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.taken))
	for tm := range d.taken {
		out = append(out, tm)
	}
	sort.Strings(out)
	return out
}
