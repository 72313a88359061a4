// Package patients keeps the practice's patient records, keyed by phone
// number since that is what a caller is identified by.
package patients

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no patient exists for the phone number.
var ErrNotFound = errors.New("patient not found")

// Patient is one caller's record.
type Patient struct {
	Phone           string    `json:"phone"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Insurance       string    `json:"insurance,omitempty"`
	Complaints      string    `json:"complaints,omitempty"`
	Conditions      string    `json:"conditions,omitempty"`
	Medications     string    `json:"medications,omitempty"`
	Allergies       string    `json:"allergies,omitempty"`
	PreviousDentist string    `json:"previous_dentist,omitempty"`
	LastBookingCode string    `json:"last_booking_code,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// Repository stores patient records.
type Repository interface {
	// Get returns the patient for the phone number or ErrNotFound.
	Get(phone string) (Patient, error)
	// Upsert merges the given record into the stored one. Empty fields on
	// the incoming record never clear stored values.
	Upsert(p Patient) (Patient, error)
	// List returns all patients ordered by phone number.
	List() ([]Patient, error)
}

// InMemoryRepository is the in-process Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byPhone map[string]Patient
	now     func() time.Time
}

// NewInMemoryRepository creates an empty patient repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byPhone: make(map[string]Patient),
		now:     time.Now,
	}
}

// Get returns the patient for the phone number or ErrNotFound.
func (r *InMemoryRepository) Get(phone string) (Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byPhone[phone]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

// Upsert merges the record into the stored one, creating it on first
// contact.
func (r *InMemoryRepository) Upsert(p Patient) (Patient, error) {
	if p.Phone == "" {
		return Patient{}, errors.New("patient phone is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cur, ok := r.byPhone[p.Phone]
	if !ok {
		cur = Patient{Phone: p.Phone, FirstSeen: now}
	}
	if p.Name != "" {
		cur.Name = p.Name
	}
	if p.Email != "" {
		cur.Email = p.Email
	}
	if p.Insurance != "" {
		cur.Insurance = p.Insurance
	}
	if p.Complaints != "" {
		cur.Complaints = p.Complaints
	}
	if p.Conditions != "" {
		cur.Conditions = p.Conditions
	}
	if p.Medications != "" {
		cur.Medications = p.Medications
	}
	if p.Allergies != "" {
		cur.Allergies = p.Allergies
	}
	if p.PreviousDentist != "" {
		cur.PreviousDentist = p.PreviousDentist
	}
	if p.LastBookingCode != "" {
		cur.LastBookingCode = p.LastBookingCode
	}
	cur.LastSeen = now
	r.byPhone[p.Phone] = cur
	return cur, nil
}

// List returns all patients ordered by phone number.
func (r *InMemoryRepository) List() ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Patient, 0, len(r.byPhone))
	for _, p := range r.byPhone {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}
