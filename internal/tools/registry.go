// Package tools is the boundary the voice layer calls into. Every
// operation takes typed arguments and answers with a spoken German
// message plus structured fields; failures of any kind become messages
// the caller can be read, never a crash.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ezekaj/elo-deu/internal/booking"
	"github.com/ezekaj/elo-deu/internal/call"
	"github.com/ezekaj/elo-deu/internal/clinic"
	"github.com/ezekaj/elo-deu/internal/nlu"
	"github.com/ezekaj/elo-deu/internal/patients"
	"github.com/ezekaj/elo-deu/internal/schedule"
	"github.com/ezekaj/elo-deu/pkg/logging"
)

// apology is spoken whenever an operation fails for a reason the caller
// cannot act on.
const apology = "Entschuldigung, da ist etwas schiefgegangen. Bitte versuchen Sie es gleich noch einmal oder rufen Sie uns direkt an."

// Result is what an operation hands back to the voice layer: the sentence
// to speak and machine-readable fields.
type Result struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func msg(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// dayDisplay renders a date with its German weekday, without a time.
func dayDisplay(date string) string {
	display := schedule.Slot{Date: date, Time: "00:00"}.Display()
	return strings.SplitN(display, " um ", 2)[0]
}

func (r Result) with(key, value string) Result {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
	return r
}

// CallStore is the slice of the session store the registry needs.
type CallStore interface {
	Get(ctx context.Context, callID string) (*call.State, error)
	Save(ctx context.Context, state *call.State) error
}

// Registry bundles every operation the voice layer may invoke.
type Registry struct {
	booking  *booking.Service
	parser   *nlu.Parser
	calls    CallStore
	registry patients.Repository
	practice clinic.PracticeInfo
	logger   *logging.Logger
	now      func() time.Time
}

// NewRegistry wires the tool registry. booking and parser are required;
// calls and registry may be nil, which disables the call-state and
// patient operations gracefully.
func NewRegistry(svc *booking.Service, parser *nlu.Parser, calls CallStore,
	registry patients.Repository, practice clinic.PracticeInfo, logger *logging.Logger) *Registry {
	if svc == nil {
		panic("tools: booking service required")
	}
	if parser == nil {
		panic("tools: parser required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		booking:  svc,
		parser:   parser,
		calls:    calls,
		registry: registry,
		practice: practice,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the registry clock. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// run executes an operation with panic containment. A panic or an
// unexpected error is logged and spoken as the generic apology; booking
// rejections keep their patient-facing message.
func (r *Registry) run(name string, fn func() (Result, error)) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", fmt.Sprint(rec))
			res = Result{Message: apology}
		}
	}()

	res, err := fn()
	if err == nil {
		return res
	}
	var be *booking.Error
	if errors.As(err, &be) {
		out := Result{Message: be.Message}.with("reason", string(be.Reason))
		for i, alt := range be.Alternatives {
			out = out.with(fmt.Sprintf("alternative_%d", i+1), alt.Display())
		}
		if len(be.Alternatives) > 0 {
			var spoken []string
			for _, alt := range be.Alternatives {
				spoken = append(spoken, alt.Display())
			}
			out.Message += " Frei wären zum Beispiel: " + strings.Join(spoken, "; ") + "."
		}
		return out
	}
	r.logger.Error("tool failed", "tool", name, "error", err)
	return Result{Message: apology}
}

// CheckAvailabilityArgs names a day and optionally a treatment.
type CheckAvailabilityArgs struct {
	CallID    string `json:"call_id,omitempty"`
	Date      string `json:"date"`
	Treatment string `json:"treatment,omitempty"`
}

// CheckAvailability lists the free times on a day. When the day is full
// or closed, the answer already names the next day that has room.
func (r *Registry) CheckAvailability(ctx context.Context, args CheckAvailabilityArgs) Result {
	return r.run("check_availability", func() (Result, error) {
		times, err := r.booking.AvailableTimes(ctx, args.Date, args.Treatment)
		if err != nil {
			return Result{}, err
		}
		day := dayDisplay(args.Date)
		if len(times) == 0 {
			out := msg("Am %s haben wir leider keine freien Termine.", day).
				with("reason", string(booking.ReasonClosedDay)).
				with("date", args.Date).
				with("count", "0")
			nextDate, nextTimes, err := r.booking.NextOpenDay(ctx, args.Date, args.Treatment)
			if err != nil {
				out.Message += " Auch in den nächsten Wochen ist leider nichts frei."
				return out, nil
			}
			out.Message += fmt.Sprintf(" Der nächste freie Tag ist %s, zum Beispiel um %s Uhr.",
				dayDisplay(nextDate), strings.Join(headTimes(nextTimes, 3), ", "))
			out = out.with("next_date", nextDate).
				with("next_times", strings.Join(nextTimes, ","))
			r.proposeCall(ctx, args.CallID, schedule.Slot{Date: nextDate, Time: nextTimes[0]})
			return out, nil
		}
		r.proposeCall(ctx, args.CallID, schedule.Slot{Date: args.Date, Time: times[0]})
		return msg("Am %s haben wir folgende Termine frei: %s Uhr.", day, strings.Join(times, ", ")).
			with("date", args.Date).
			with("times", strings.Join(times, ",")).
			with("count", fmt.Sprintf("%d", len(times))), nil
	})
}

// headTimes keeps the sentence short when a day has many free times.
func headTimes(times []string, n int) []string {
	if len(times) <= n {
		return times
	}
	return times[:n]
}

// BookArgs carries everything needed to book.
type BookArgs struct {
	CallID      string `json:"call_id,omitempty"`
	PatientName string `json:"patient_name"`
	Phone       string `json:"phone,omitempty"`
	Treatment   string `json:"treatment,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// BookAppointment books a slot and confirms it in one sentence.
func (r *Registry) BookAppointment(ctx context.Context, args BookArgs) Result {
	return r.run("book_appointment", func() (Result, error) {
		if res, blocked := r.guardCall(ctx, args.CallID); blocked {
			return res, nil
		}
		treatment := args.Treatment
		if treatment == "" {
			treatment = clinic.DefaultTreatment
		}
		appt, err := r.booking.Book(ctx, booking.BookRequest{
			PatientName: args.PatientName,
			Phone:       args.Phone,
			Treatment:   treatment,
			Date:        args.Date,
			Time:        args.Time,
		})
		if err != nil {
			r.proposeAlternative(ctx, args.CallID, err)
			return Result{}, err
		}
		r.updateCall(ctx, args.CallID, func(state *call.State) {
			_ = state.SetName(appt.PatientName)
			_ = state.SetTreatment(appt.Treatment)
			if err := state.AddNote(fmt.Sprintf("Termin gebucht: %s am %s um %s (%s)",
				appt.Treatment, appt.Date, appt.Time, appt.Code), r.now()); err != nil {
				return
			}
			_ = state.ClearProposal()
		})
		return msg("Perfekt, %s! Ihr Termin für %s am %s ist gebucht. Ihre Buchungsnummer ist %s.",
			appt.PatientName, appt.Treatment,
			schedule.Slot{Date: appt.Date, Time: appt.Time}.Display(), appt.Code).
			with("code", appt.Code).
			with("date", appt.Date).
			with("time", appt.Time).
			with("treatment", appt.Treatment), nil
	})
}

// CancelArgs identifies the appointment to cancel. Date and time may be
// omitted when the patient has only one.
type CancelArgs struct {
	CallID      string `json:"call_id,omitempty"`
	PatientName string `json:"patient_name"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
}

// CancelAppointment cancels and confirms.
func (r *Registry) CancelAppointment(ctx context.Context, args CancelArgs) Result {
	return r.run("cancel_appointment", func() (Result, error) {
		if res, blocked := r.guardCall(ctx, args.CallID); blocked {
			return res, nil
		}
		appt, err := r.booking.Cancel(ctx, args.PatientName, args.Date, args.Time)
		if err != nil {
			return Result{}, err
		}
		r.noteCall(ctx, args.CallID, fmt.Sprintf("Termin abgesagt: %s am %s um %s",
			appt.Treatment, appt.Date, appt.Time), false)
		return msg("Ihr Termin am %s ist abgesagt. Möchten Sie einen neuen Termin vereinbaren?",
			schedule.Slot{Date: appt.Date, Time: appt.Time}.Display()).
			with("code", appt.Code).
			with("status", string(appt.Status)), nil
	})
}

// RescheduleArgs moves an appointment.
type RescheduleArgs struct {
	CallID      string `json:"call_id,omitempty"`
	PatientName string `json:"patient_name"`
	OldDate     string `json:"old_date"`
	OldTime     string `json:"old_time"`
	NewDate     string `json:"new_date"`
	NewTime     string `json:"new_time"`
}

// RescheduleAppointment moves an appointment to a new slot.
func (r *Registry) RescheduleAppointment(ctx context.Context, args RescheduleArgs) Result {
	return r.run("reschedule_appointment", func() (Result, error) {
		if res, blocked := r.guardCall(ctx, args.CallID); blocked {
			return res, nil
		}
		appt, err := r.booking.Reschedule(ctx, booking.RescheduleRequest{
			PatientName: args.PatientName,
			OldDate:     args.OldDate, OldTime: args.OldTime,
			NewDate: args.NewDate, NewTime: args.NewTime,
		})
		if err != nil {
			r.proposeAlternative(ctx, args.CallID, err)
			return Result{}, err
		}
		r.noteCall(ctx, args.CallID, fmt.Sprintf("Termin verschoben auf %s %s", appt.Date, appt.Time), false)
		return msg("Ihr Termin ist verschoben: %s, %s. Die Buchungsnummer %s bleibt gültig.",
			appt.Treatment, schedule.Slot{Date: appt.Date, Time: appt.Time}.Display(), appt.Code).
			with("code", appt.Code).
			with("date", appt.Date).
			with("time", appt.Time), nil
	})
}

// FindNextArgs asks for the next free slots.
type FindNextArgs struct {
	CallID    string `json:"call_id,omitempty"`
	Date      string `json:"date,omitempty"`
	Treatment string `json:"treatment,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// FindNextAvailable proposes the next free slots. The first one is
// remembered on the call so a correction like "nein, lieber 11:30" can
// be resolved against it.
func (r *Registry) FindNextAvailable(ctx context.Context, args FindNextArgs) Result {
	return r.run("find_next_available", func() (Result, error) {
		slots, err := r.booking.NextAvailable(ctx, args.Date, args.Treatment, args.Count)
		if err != nil {
			return Result{}, err
		}
		var spoken []string
		out := Result{}
		for i, s := range slots {
			spoken = append(spoken, s.Display())
			out = out.with(fmt.Sprintf("slot_%d", i+1), s.Date+" "+s.Time)
		}
		out.Message = fmt.Sprintf("Die nächsten freien Termine sind: %s. Welcher passt Ihnen?",
			strings.Join(spoken, "; "))
		r.proposeCall(ctx, args.CallID, slots[0])
		return out, nil
	})
}

// HistoryArgs identifies the patient by phone number; the name is a
// fallback for bookings made without one.
type HistoryArgs struct {
	Phone       string `json:"phone"`
	PatientName string `json:"patient_name,omitempty"`
}

// SearchPatientHistory reads the patient's appointments back.
func (r *Registry) SearchPatientHistory(ctx context.Context, args HistoryArgs) Result {
	return r.run("search_patient_history", func() (Result, error) {
		history, err := r.booking.History(ctx, args.Phone, args.PatientName)
		if err != nil {
			return Result{}, err
		}
		who := args.PatientName
		if who == "" {
			who = "diese Nummer"
		}
		if len(history) == 0 {
			return msg("Für %s habe ich keine Termine gefunden.", who).
				with("reason", string(booking.ReasonNotFound)), nil
		}
		var lines []string
		for _, a := range history {
			status := "gebucht"
			if a.Status == booking.StatusCancelled {
				status = "abgesagt"
			}
			lines = append(lines, fmt.Sprintf("%s am %s (%s)",
				a.Treatment, schedule.Slot{Date: a.Date, Time: a.Time}.Display(), status))
		}
		return msg("Ich habe %d Termine für %s gefunden: %s.",
			len(history), who, strings.Join(lines, "; ")).
			with("count", fmt.Sprintf("%d", len(history))), nil
	})
}

// guardCall loads the call state and blocks the operation when the call
// is already over. Without a call ID or store, nothing is guarded.
func (r *Registry) guardCall(ctx context.Context, callID string) (Result, bool) {
	if callID == "" || r.calls == nil {
		return Result{}, false
	}
	state, err := r.calls.Get(ctx, callID)
	if err != nil || state == nil {
		return Result{}, false
	}
	if state.Status != call.StatusActive {
		return msg("Dieser Anruf ist bereits beendet. Bitte rufen Sie uns erneut an, ich helfe Ihnen gerne weiter.").
			with("reason", "call_ended"), true
	}
	return Result{}, false
}

// updateCall loads the call state, applies fn and saves it back. Without
// a call ID or store this is a no-op.
func (r *Registry) updateCall(ctx context.Context, callID string, fn func(*call.State)) {
	if callID == "" || r.calls == nil {
		return
	}
	state, err := r.calls.Get(ctx, callID)
	if err != nil || state == nil {
		return
	}
	fn(state)
	if err := r.calls.Save(ctx, state); err != nil {
		r.logger.Warn("call state not saved", "call_id", callID, "error", err)
	}
}

// noteCall appends a protocol note to the call, optionally clearing the
// pending slot proposal. Best effort.
func (r *Registry) noteCall(ctx context.Context, callID, text string, clearProposal bool) {
	r.updateCall(ctx, callID, func(state *call.State) {
		if err := state.AddNote(text, r.now()); err != nil {
			return
		}
		if clearProposal {
			_ = state.ClearProposal()
		}
	})
}

// proposeCall remembers the slot just offered to the caller so a later
// correction has something to correct.
func (r *Registry) proposeCall(ctx context.Context, callID string, slot schedule.Slot) {
	r.updateCall(ctx, callID, func(state *call.State) {
		_ = state.Propose(slot)
	})
}

// proposeAlternative records the first alternative of a slot conflict as
// the pending proposal.
func (r *Registry) proposeAlternative(ctx context.Context, callID string, err error) {
	var be *booking.Error
	if errors.As(err, &be) && len(be.Alternatives) > 0 {
		r.proposeCall(ctx, callID, be.Alternatives[0])
	}
}

// ListServices reads the treatment catalog back with durations.
func (r *Registry) ListServices(_ context.Context) Result {
	return r.run("list_services", func() (Result, error) {
		var lines []string
		for _, t := range clinic.Treatments() {
			lines = append(lines, fmt.Sprintf("%s (%d Minuten)", t.Name, int(t.Duration/time.Minute)))
		}
		return msg("Wir bieten an: %s.", strings.Join(lines, ", ")), nil
	})
}
