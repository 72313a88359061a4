package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ezekaj/elo-deu/internal/call"
	"github.com/ezekaj/elo-deu/internal/nlu"
	"github.com/ezekaj/elo-deu/internal/patients"
)

// StartCallArgs opens a new call session.
type StartCallArgs struct {
	CallID      string `json:"call_id"`
	CallerPhone string `json:"caller_phone,omitempty"`
}

// StartCall creates the call state and greets the caller by time of day.
func (r *Registry) StartCall(ctx context.Context, args StartCallArgs) Result {
	return r.run("start_call", func() (Result, error) {
		greeting := fmt.Sprintf("%s, hier ist %s. Wie kann ich Ihnen helfen?",
			r.parser.Greeting(), r.practice.Name)
		if r.calls == nil || args.CallID == "" {
			return msg("%s", greeting), nil
		}
		state := call.NewState(args.CallID, args.CallerPhone, r.now())
		if err := r.calls.Save(ctx, state); err != nil {
			return Result{}, err
		}
		return msg("%s", greeting).with("call_id", args.CallID), nil
	})
}

// CallArgs identifies an existing call.
type CallArgs struct {
	CallID string `json:"call_id"`
}

// CallStatus reports where the call stands.
func (r *Registry) CallStatus(ctx context.Context, args CallArgs) Result {
	return r.run("call_status", func() (Result, error) {
		state, err := r.loadCall(ctx, args.CallID)
		if err != nil {
			return Result{}, err
		}
		if state == nil {
			return msg("Zu diesem Anruf habe ich keine Daten.").with("status", "unknown"), nil
		}
		out := msg("Anrufstatus: %s, %d Gesprächsrunden.", state.Status, state.TurnCount).
			with("status", string(state.Status)).
			with("turns", fmt.Sprintf("%d", state.TurnCount))
		if state.PatientName != "" {
			out = out.with("patient_name", state.PatientName)
		}
		return out, nil
	})
}

// CallSummary reads the whole call protocol back.
func (r *Registry) CallSummary(ctx context.Context, args CallArgs) Result {
	return r.run("call_summary", func() (Result, error) {
		state, err := r.loadCall(ctx, args.CallID)
		if err != nil {
			return Result{}, err
		}
		if state == nil {
			return msg("Zu diesem Anruf habe ich keine Daten."), nil
		}
		return msg("%s", state.Summary()).with("status", string(state.Status)), nil
	})
}

// EndCall says goodbye and freezes the call state.
func (r *Registry) EndCall(ctx context.Context, args CallArgs) Result {
	return r.run("end_call", func() (Result, error) {
		state, err := r.loadCall(ctx, args.CallID)
		if err != nil {
			return Result{}, err
		}
		if state != nil {
			state.BeginEnding(r.now())
			state.End(r.now())
			if err := r.calls.Save(ctx, state); err != nil {
				return Result{}, err
			}
		}
		return msg("Vielen Dank für Ihren Anruf bei %s. Auf Wiederhören!", r.practice.Name).
			with("status", string(call.StatusEnded)), nil
	})
}

// NoteArgs appends a protocol note to a call.
type NoteArgs struct {
	CallID string `json:"call_id"`
	Text   string `json:"text"`
}

// AddNote writes a protocol line into the call.
func (r *Registry) AddNote(ctx context.Context, args NoteArgs) Result {
	return r.run("add_note", func() (Result, error) {
		state, err := r.loadCall(ctx, args.CallID)
		if err != nil {
			return Result{}, err
		}
		if state == nil {
			return msg("Zu diesem Anruf habe ich keine Daten."), nil
		}
		if err := state.AddNote(args.Text, r.now()); err != nil {
			return msg("Dieser Anruf ist bereits beendet, ich kann nichts mehr notieren.").
				with("reason", "call_ended"), nil
		}
		if err := r.calls.Save(ctx, state); err != nil {
			return Result{}, err
		}
		return msg("Notiert.").with("notes", fmt.Sprintf("%d", len(state.Notes))), nil
	})
}

// ParseRequestArgs carries a raw caller utterance.
type ParseRequestArgs struct {
	CallID    string `json:"call_id,omitempty"`
	Utterance string `json:"utterance"`
}

// ParseRequest reads an utterance into a structured appointment wish. When
// the call has a pending slot proposal and the utterance corrects it
// ("nein, lieber 11:30"), the repaired slot wins over a fresh parse.
func (r *Registry) ParseRequest(ctx context.Context, args ParseRequestArgs) Result {
	return r.run("parse_request", func() (Result, error) {
		state, err := r.loadCall(ctx, args.CallID)
		if err != nil {
			state = nil
		}
		if state != nil {
			_ = state.Turn()
		}

		if state != nil && state.ProposedSlot != nil {
			if repaired, ok := call.RepairTime(args.Utterance, *state.ProposedSlot); ok {
				_ = state.Propose(repaired)
				_ = r.calls.Save(ctx, state)
				return msg("Alles klar, dann schaue ich nach %s.", repaired.Display()).
					with("date", repaired.Date).
					with("time", repaired.Time).
					with("repaired", "true"), nil
			}
		}

		req := r.parser.Parse(args.Utterance)
		out := msg("Verstanden: %s am %s%s.", req.Treatment,
			dayDisplay(req.Date), timeSuffix(req.Time)).
			with("date", req.Date).
			with("treatment", req.Treatment)
		if req.Time != "" {
			out = out.with("time", req.Time)
		}
		if req.Urgent {
			out = out.with("urgent", "true")
			out.Message = "Das klingt dringend. " + out.Message
		}
		if req.Ambiguous {
			out = out.with("ambiguous", "true")
		}
		out = out.with("is_today", fmt.Sprintf("%t", req.IsToday)).
			with("open_now", fmt.Sprintf("%t", req.OpenNow)).
			with("today_hours", req.TodayHours)

		if state != nil {
			if !req.Ambiguous {
				_ = state.SetTreatment(req.Treatment)
			}
			// The name is asked for at most once per call.
			if state.NeedsName() {
				out.Message += " Und auf welchen Namen darf ich den Termin notieren?"
				out = out.with("needs_name", "true")
			}
			_ = r.calls.Save(ctx, state)
		}
		return out, nil
	})
}

func timeSuffix(tm string) string {
	if tm == "" {
		return ""
	}
	return " um " + tm + " Uhr"
}

// FollowUpArgs carries the caller's complaint.
type FollowUpArgs struct {
	Complaint string `json:"complaint"`
}

// MedicalFollowUp asks the follow-up question that fits the complaint.
func (r *Registry) MedicalFollowUp(_ context.Context, args FollowUpArgs) Result {
	return r.run("medical_follow_up", func() (Result, error) {
		return msg("%s", nlu.FollowUpQuestion(args.Complaint)), nil
	})
}

// IntakeArgs collects patient master data during a call.
type IntakeArgs struct {
	Phone           string `json:"phone"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Insurance       string `json:"insurance,omitempty"`
	Complaints      string `json:"complaints,omitempty"`
	Conditions      string `json:"conditions,omitempty"`
	Medications     string `json:"medications,omitempty"`
	Allergies       string `json:"allergies,omitempty"`
	PreviousDentist string `json:"previous_dentist,omitempty"`
}

// CollectIntake merges the given fields into the patient record.
func (r *Registry) CollectIntake(_ context.Context, args IntakeArgs) Result {
	return r.run("collect_intake", func() (Result, error) {
		if r.registry == nil {
			return msg("Die Patientenaufnahme ist gerade nicht verfügbar."), nil
		}
		p, err := r.registry.Upsert(patients.Patient{
			Phone:           args.Phone,
			Name:            args.Name,
			Email:           args.Email,
			Insurance:       args.Insurance,
			Complaints:      args.Complaints,
			Conditions:      args.Conditions,
			Medications:     args.Medications,
			Allergies:       args.Allergies,
			PreviousDentist: args.PreviousDentist,
		})
		if err != nil {
			return Result{}, err
		}
		name := p.Name
		if name == "" {
			name = "Ihre Daten"
		}
		return msg("Danke, ich habe alles notiert, %s.", strings.TrimSpace(name)).
			with("phone", p.Phone), nil
	})
}

func (r *Registry) loadCall(ctx context.Context, callID string) (*call.State, error) {
	if r.calls == nil || callID == "" {
		return nil, nil
	}
	return r.calls.Get(ctx, callID)
}
