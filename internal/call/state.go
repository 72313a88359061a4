// Package call tracks the state of one phone conversation: who is
// calling, what has been proposed, and whether the call may still be
// mutated.
package call

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ezekaj/elo-deu/internal/schedule"
)

// ErrCallEnded is returned when a mutation reaches a call that is
// already over.
var ErrCallEnded = errors.New("call already ended")

// Status is the call lifecycle state.
type Status string

const (
	// StatusActive is a live conversation.
	StatusActive Status = "active"
	// StatusEnding means the goodbye has been said; the state may still
	// be summarized but no longer changed.
	StatusEnding Status = "ending"
	// StatusEnded is terminal.
	StatusEnded Status = "ended"
)

// Note is one line of the call protocol, stamped with the wall clock.
type Note struct {
	Stamp string `json:"stamp"` // HH:MM
	Text  string `json:"text"`
}

// State is everything known about one call.
type State struct {
	CallID      string `json:"call_id"`
	CallerPhone string `json:"caller_phone"`
	Status      Status `json:"status"`

	// PatientName is filled once the caller has given it; NameAsked keeps
	// the agent from asking twice.
	PatientName string `json:"patient_name,omitempty"`
	NameAsked   bool   `json:"name_asked,omitempty"`

	Treatment string `json:"treatment,omitempty"`

	// ProposedSlot is the slot last offered to the caller, kept so a
	// correction like "nein, lieber 11:30" can be resolved against it.
	ProposedSlot *schedule.Slot `json:"proposed_slot,omitempty"`

	Notes     []Note    `json:"notes,omitempty"`
	TurnCount int       `json:"turn_count"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// NewState starts an active call.
func NewState(callID, callerPhone string, now time.Time) *State {
	return &State{
		CallID:      callID,
		CallerPhone: callerPhone,
		Status:      StatusActive,
		StartedAt:   now,
	}
}

func (s *State) mutable() error {
	if s.Status != StatusActive {
		return fmt.Errorf("call %s: %w", s.CallID, ErrCallEnded)
	}
	return nil
}

// SetName records the caller's name.
func (s *State) SetName(name string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.PatientName = strings.TrimSpace(name)
	return nil
}

// NeedsName reports whether the agent should ask for the name, and marks
// it asked so the question is only posed once.
func (s *State) NeedsName() bool {
	if s.Status != StatusActive || s.PatientName != "" || s.NameAsked {
		return false
	}
	s.NameAsked = true
	return true
}

// SetTreatment records the treatment under discussion.
func (s *State) SetTreatment(name string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Treatment = name
	return nil
}

// Propose records the slot just offered to the caller.
func (s *State) Propose(slot schedule.Slot) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.ProposedSlot = &slot
	return nil
}

// ClearProposal drops the pending proposal, e.g. after it was booked.
func (s *State) ClearProposal() error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.ProposedSlot = nil
	return nil
}

// AddNote appends a protocol line stamped with the current clock.
func (s *State) AddNote(text string, now time.Time) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Notes = append(s.Notes, Note{Stamp: now.Format("15:04"), Text: text})
	return nil
}

// Turn counts one caller/agent exchange.
func (s *State) Turn() error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.TurnCount++
	return nil
}

// BeginEnding moves the call to the ending state. Ending a call twice is
// a no-op.
func (s *State) BeginEnding(now time.Time) {
	if s.Status == StatusActive {
		s.Status = StatusEnding
		s.EndedAt = now
	}
}

// End makes the call terminal.
func (s *State) End(now time.Time) {
	if s.Status != StatusEnded {
		if s.EndedAt.IsZero() {
			s.EndedAt = now
		}
		s.Status = StatusEnded
	}
}

// Summary renders the call protocol for a human reader.
func (s *State) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anruf %s (%s)", s.CallID, s.Status)
	if s.PatientName != "" {
		fmt.Fprintf(&b, " – %s", s.PatientName)
	}
	for _, n := range s.Notes {
		fmt.Fprintf(&b, "\n[%s] %s", n.Stamp, n.Text)
	}
	return b.String()
}
