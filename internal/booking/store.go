package booking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrCodeNotFound is returned when no appointment exists for a code.
var ErrCodeNotFound = errors.New("appointment code not found")

// Store persists appointment records.
type Store interface {
	// Save inserts or replaces the appointment by code.
	Save(ctx context.Context, a Appointment) error
	// Get returns the appointment for the code or ErrCodeNotFound.
	Get(ctx context.Context, code string) (Appointment, error)
	// ByPatient returns every appointment whose patient name matches
	// case-insensitively, newest start first.
	ByPatient(ctx context.Context, name string) ([]Appointment, error)
	// ByPhone returns every appointment booked under the phone number,
	// newest start first.
	ByPhone(ctx context.Context, phone string) ([]Appointment, error)
	// ByDate returns the confirmed appointments on a "YYYY-MM-DD" day in
	// start-time order.
	ByDate(ctx context.Context, date string) ([]Appointment, error)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	byCode map[string]Appointment
}

// NewMemoryStore creates an empty appointment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCode: make(map[string]Appointment)}
}

// Save inserts or replaces the appointment by code.
func (s *MemoryStore) Save(_ context.Context, a Appointment) error {
	if a.Code == "" {
		return errors.New("appointment code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode[a.Code] = a
	return nil
}

// Get returns the appointment for the code or ErrCodeNotFound.
func (s *MemoryStore) Get(_ context.Context, code string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byCode[code]
	if !ok {
		return Appointment{}, ErrCodeNotFound
	}
	return a, nil
}

// ByPatient returns the patient's appointments, newest start first.
func (s *MemoryStore) ByPatient(_ context.Context, name string) ([]Appointment, error) {
	return s.collect(func(a Appointment) bool {
		return strings.EqualFold(a.PatientName, name)
	}), nil
}

// ByPhone returns the appointments booked under the phone number, newest
// start first.
func (s *MemoryStore) ByPhone(_ context.Context, phone string) ([]Appointment, error) {
	return s.collect(func(a Appointment) bool {
		return a.Phone != "" && a.Phone == phone
	}), nil
}

func (s *MemoryStore) collect(match func(Appointment) bool) []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.byCode {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	return out
}

// ByDate returns the confirmed appointments on the day in start order.
func (s *MemoryStore) ByDate(_ context.Context, date string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.byCode {
		if a.Date == date && a.Status == StatusConfirmed {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
