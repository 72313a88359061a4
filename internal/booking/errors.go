package booking

import (
	"fmt"

	"github.com/ezekaj/elo-deu/internal/schedule"
)

// Reason classifies why a booking operation was rejected.
type Reason string

const (
	ReasonMalformedInput   Reason = "malformed_input"
	ReasonPastDate         Reason = "past_date"
	ReasonUnknownTreatment Reason = "unknown_treatment"
	ReasonClosedDay        Reason = "closed_day"
	ReasonLunchBreak       Reason = "lunch_break"
	ReasonSlotTaken        Reason = "slot_taken"
	ReasonNotFound         Reason = "not_found"
	ReasonOriginalNotFound Reason = "original_not_found"
	ReasonAmbiguous        Reason = "ambiguous"
	ReasonNoAvailability   Reason = "no_availability"
)

// Error is a rejected booking operation. Message is what the caller
// should be told, in German; Alternatives carries replacement slots when
// the wished one is taken.
type Error struct {
	Reason       Reason
	Message      string
	Alternatives []schedule.Slot
}

func (e *Error) Error() string {
	return fmt.Sprintf("booking rejected (%s): %s", e.Reason, e.Message)
}

// Is makes errors.Is match on the reason, so callers can compare against
// a bare &Error{Reason: ...}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

func reject(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
