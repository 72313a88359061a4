package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ezekaj/elo-deu/internal/clinic"
	"github.com/ezekaj/elo-deu/internal/observability/metrics"
	"github.com/ezekaj/elo-deu/internal/patients"
	"github.com/ezekaj/elo-deu/internal/schedule"
	"github.com/ezekaj/elo-deu/pkg/logging"
)

var bookingTracer = otel.Tracer("dental.internal.booking")

// Service is the booking engine: it validates wishes against the practice
// rules, reserves the slot span, and records the appointment.
type Service struct {
	engine   *schedule.Engine
	slots    schedule.SlotStore
	store    Store
	registry patients.Repository
	metrics  *metrics.SchedulingMetrics
	logger  *logging.Logger
	loc     *time.Location
	now     func() time.Time

	suggestions int
}

// NewService constructs the booking engine. engine, slots and store are
// required; registry and metrics may be nil.
func NewService(engine *schedule.Engine, slots schedule.SlotStore, store Store,
	registry patients.Repository, m *metrics.SchedulingMetrics,
	logger *logging.Logger, loc *time.Location, suggestions int) *Service {
	if engine == nil {
		panic("booking: engine required")
	}
	if slots == nil {
		panic("booking: slot store required")
	}
	if store == nil {
		panic("booking: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	if suggestions < 1 {
		suggestions = 3
	}
	return &Service{
		engine:      engine,
		slots:       slots,
		store:       store,
		registry:    registry,
		metrics:     m,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
		suggestions: suggestions,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Engine exposes the availability engine the service books against.
func (s *Service) Engine() *schedule.Engine { return s.engine }

// Location is the practice's time zone.
func (s *Service) Location() *time.Location { return s.loc }

// BookRequest is a caller's wish for a new appointment.
type BookRequest struct {
	PatientName string
	Phone       string
	Treatment   string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
}

// validateSlot checks a wished slot in a fixed order and resolves the
// treatment and slot span. The rejection the caller hears is always the
// first problem in that order.
func (s *Service) validateSlot(name, treatmentName, date, tm string) (clinic.Treatment, time.Time, []string, *Error) {
	if strings.TrimSpace(name) == "" {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonMalformedInput, "Bitte nennen Sie mir Ihren Namen für die Buchung.")
	}
	day, err := time.ParseInLocation(schedule.DateLayout, date, s.loc)
	if err != nil {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonMalformedInput, "Das Datum %q habe ich nicht verstanden. Bitte nennen Sie es im Format Jahr-Monat-Tag.", date)
	}
	minute, err := clinic.ParseClock(tm)
	if err != nil {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonMalformedInput, "Die Uhrzeit %q habe ich nicht verstanden. Bitte nennen Sie sie im Format Stunde:Minute.", tm)
	}
	start := day.Add(time.Duration(minute) * time.Minute)
	if !start.After(s.now().In(s.loc)) {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonPastDate, "Dieser Termin liegt in der Vergangenheit. Bitte wählen Sie einen zukünftigen Termin.")
	}
	treatment, ok := clinic.LookupTreatment(treatmentName)
	if !ok {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonUnknownTreatment, "Die Behandlung %q kenne ich nicht. Wir bieten an: %s.",
				treatmentName, strings.Join(clinic.TreatmentNames(), ", "))
	}
	if err := s.engine.Hours().Check(start); err != nil {
		switch {
		case err == clinic.ErrLunchBreak:
			return clinic.Treatment{}, time.Time{}, nil,
				reject(ReasonLunchBreak, "Zwischen 11:30 und 14:00 Uhr machen wir Mittagspause. %s", s.engine.Hours().HoursText())
		default:
			return clinic.Treatment{}, time.Time{}, nil,
				reject(ReasonClosedDay, "An diesem Tag oder zu dieser Zeit haben wir leider geschlossen. %s", s.engine.Hours().HoursText())
		}
	}
	span := schedule.SpanTimes(s.engine.Hours(), day, tm, treatment.Duration)
	if span == nil {
		return clinic.Treatment{}, time.Time{}, nil,
			reject(ReasonClosedDay, "Für %s brauchen wir %d Minuten, das passt um %s Uhr leider nicht mehr. %s",
				treatment.Name, int(treatment.Duration/time.Minute), tm, s.engine.Hours().HoursText())
	}
	return treatment, day, span, nil
}

// Book validates the wish and, when the slot span is free, reserves it and
// records a confirmed appointment.
func (s *Service) Book(ctx context.Context, req BookRequest) (Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("dental.date", req.Date),
		attribute.String("dental.time", req.Time),
	)
	started := s.now()

	treatment, day, slotSpan, rejErr := s.validateSlot(req.PatientName, req.Treatment, req.Date, req.Time)
	if rejErr != nil {
		s.countBooking(string(rejErr.Reason))
		return Appointment{}, rejErr
	}

	if !s.slots.Reserve(req.Date, slotSpan...) {
		alts := s.engine.Alternatives(day, req.Time, treatment, s.suggestions)
		s.countBooking(string(ReasonSlotTaken))
		e := reject(ReasonSlotTaken, "Der Termin am %s ist leider schon vergeben.",
			schedule.Slot{Date: req.Date, Time: req.Time}.Display())
		e.Alternatives = alts
		return Appointment{}, e
	}

	appt := Appointment{
		Code:        NewCode(req.Date, req.Time, s.loc),
		PatientName: strings.TrimSpace(req.PatientName),
		Phone:       req.Phone,
		Treatment:   treatment.Name,
		Date:        req.Date,
		Time:        req.Time,
		Duration:    treatment.Duration,
		Status:      StatusConfirmed,
		CreatedAt:   s.now().In(s.loc),
	}
	if err := s.store.Save(ctx, appt); err != nil {
		s.slots.Release(req.Date, slotSpan...)
		span.RecordError(err)
		s.countBooking("store_error")
		return Appointment{}, fmt.Errorf("booking: persist appointment: %w", err)
	}

	if s.registry != nil && appt.Phone != "" {
		if _, err := s.registry.Upsert(patients.Patient{
			Phone:           appt.Phone,
			Name:            appt.PatientName,
			LastBookingCode: appt.Code,
		}); err != nil {
			s.logger.Warn("patient upsert failed", "phone", appt.Phone, "error", err)
		}
	}

	s.countBooking("confirmed")
	s.observeLatency(started)
	s.logger.Info("appointment booked",
		"code", appt.Code,
		"treatment", appt.Treatment,
		"date", appt.Date,
		"time", appt.Time,
	)
	return appt, nil
}

// RescheduleRequest moves an existing appointment to a new slot. The
// original is identified by patient name plus old date and time.
type RescheduleRequest struct {
	PatientName string
	OldDate     string
	OldTime     string
	NewDate     string
	NewTime     string
}

// Reschedule moves the appointment. On success the old span is released;
// when the new slot is rejected the original booking stays untouched.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule")
	defer span.End()

	orig, ok := s.findConfirmed(ctx, req.PatientName, req.OldDate, req.OldTime)
	if !ok {
		s.countBooking(string(ReasonOriginalNotFound))
		return Appointment{}, reject(ReasonOriginalNotFound,
			"Ich finde keinen Termin für %s am %s um %s Uhr.", req.PatientName, req.OldDate, req.OldTime)
	}

	treatment, day, newSpan, rejErr := s.validateSlot(req.PatientName, orig.Treatment, req.NewDate, req.NewTime)
	if rejErr != nil {
		s.countBooking(string(rejErr.Reason))
		return Appointment{}, rejErr
	}

	oldDay, err := time.ParseInLocation(schedule.DateLayout, orig.Date, s.loc)
	if err != nil {
		return Appointment{}, fmt.Errorf("booking: stored appointment %s has bad date %q", orig.Code, orig.Date)
	}
	oldSpan := schedule.SpanTimes(s.engine.Hours(), oldDay, orig.Time, orig.Duration)

	// Reserve the new span before freeing the old one, so a conflict never
	// leaves the original unprotected. Only when the two spans overlap on
	// the same day must the old span give way first.
	if orig.Date == req.NewDate && spansOverlap(oldSpan, newSpan) {
		s.slots.Release(orig.Date, oldSpan...)
		if !s.slots.Reserve(req.NewDate, newSpan...) {
			if !s.slots.Reserve(orig.Date, oldSpan...) {
				s.logger.Error("reschedule restore failed, slot span lost to a concurrent booking",
					"code", orig.Code, "date", orig.Date, "time", orig.Time)
			}
			return Appointment{}, s.rescheduleConflict(day, req, treatment)
		}
	} else {
		if !s.slots.Reserve(req.NewDate, newSpan...) {
			return Appointment{}, s.rescheduleConflict(day, req, treatment)
		}
		s.slots.Release(orig.Date, oldSpan...)
	}

	moved := orig
	moved.Date = req.NewDate
	moved.Time = req.NewTime
	if err := s.store.Save(ctx, moved); err != nil {
		s.slots.Release(req.NewDate, newSpan...)
		if !s.slots.Reserve(orig.Date, oldSpan...) {
			s.logger.Error("reschedule restore failed, slot span lost to a concurrent booking",
				"code", orig.Code, "date", orig.Date, "time", orig.Time)
		}
		span.RecordError(err)
		return Appointment{}, fmt.Errorf("booking: persist reschedule: %w", err)
	}

	s.countBooking("rescheduled")
	s.logger.Info("appointment rescheduled",
		"code", moved.Code,
		"from_date", orig.Date, "from_time", orig.Time,
		"to_date", moved.Date, "to_time", moved.Time,
	)
	return moved, nil
}

// Cancel cancels a patient's appointment. When the patient has exactly one
// confirmed appointment, date and time may be omitted; with several, the
// caller must say which one. Only confirmed appointments can be cancelled,
// so a second cancel of the same slot fails with NotFound.
func (s *Service) Cancel(ctx context.Context, patientName, date, tm string) (Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()

	if strings.TrimSpace(patientName) == "" {
		return Appointment{}, reject(ReasonMalformedInput, "Bitte nennen Sie mir Ihren Namen, damit ich den Termin finden kann.")
	}
	all, err := s.store.ByPatient(ctx, patientName)
	if err != nil {
		span.RecordError(err)
		return Appointment{}, fmt.Errorf("booking: load appointments: %w", err)
	}

	var candidates []Appointment
	for _, a := range all {
		if a.Status != StatusConfirmed {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		if tm != "" && a.Time != tm {
			continue
		}
		candidates = append(candidates, a)
	}
	switch {
	case len(candidates) == 0:
		return Appointment{}, reject(ReasonNotFound,
			"Ich finde keinen Termin für %s.", patientName)
	case len(candidates) > 1:
		var when []string
		for _, a := range candidates {
			when = append(when, schedule.Slot{Date: a.Date, Time: a.Time}.Display())
		}
		return Appointment{}, reject(ReasonAmbiguous,
			"Sie haben mehrere Termine: %s. Welchen möchten Sie absagen?", strings.Join(when, "; "))
	}

	a := candidates[0]
	day, err := time.ParseInLocation(schedule.DateLayout, a.Date, s.loc)
	if err != nil {
		return Appointment{}, fmt.Errorf("booking: stored appointment %s has bad date %q", a.Code, a.Date)
	}
	a.Status = StatusCancelled
	if err := s.store.Save(ctx, a); err != nil {
		span.RecordError(err)
		return Appointment{}, fmt.Errorf("booking: persist cancel: %w", err)
	}
	s.slots.Release(a.Date, schedule.SpanTimes(s.engine.Hours(), day, a.Time, a.Duration)...)

	s.countBooking("cancelled")
	s.logger.Info("appointment cancelled", "code", a.Code, "date", a.Date, "time", a.Time)
	return a, nil
}

// History returns the patient's appointments, newest start first. The
// phone number is the patient key; the name serves as fallback for
// callers whose bookings carry no number.
func (s *Service) History(ctx context.Context, phone, patientName string) ([]Appointment, error) {
	if strings.TrimSpace(phone) != "" {
		return s.store.ByPhone(ctx, strings.TrimSpace(phone))
	}
	if strings.TrimSpace(patientName) != "" {
		return s.store.ByPatient(ctx, patientName)
	}
	return nil, reject(ReasonMalformedInput, "Bitte nennen Sie mir Ihre Telefonnummer, damit ich Ihre Termine finden kann.")
}

// DayPlan returns the confirmed appointments on the day in start order.
func (s *Service) DayPlan(ctx context.Context, date string) ([]Appointment, error) {
	if _, err := time.ParseInLocation(schedule.DateLayout, date, s.loc); err != nil {
		return nil, reject(ReasonMalformedInput, "Das Datum %q habe ich nicht verstanden.", date)
	}
	return s.store.ByDate(ctx, date)
}

// AvailableTimes lists the free start times on the date for the treatment.
// A date in the past yields a PastDate rejection, a closed day an empty
// list.
func (s *Service) AvailableTimes(ctx context.Context, date, treatmentName string) ([]string, error) {
	_, span := bookingTracer.Start(ctx, "booking.available_times")
	defer span.End()
	span.SetAttributes(attribute.String("dental.date", date))

	day, err := time.ParseInLocation(schedule.DateLayout, date, s.loc)
	if err != nil {
		s.countAvailability("malformed")
		return nil, reject(ReasonMalformedInput, "Das Datum %q habe ich nicht verstanden.", date)
	}
	today := s.now().In(s.loc)
	if day.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)) {
		s.countAvailability("past")
		return nil, reject(ReasonPastDate, "Dieses Datum liegt in der Vergangenheit.")
	}
	if treatmentName == "" {
		treatmentName = clinic.DefaultTreatment
	}
	treatment, ok := clinic.LookupTreatment(treatmentName)
	if !ok {
		s.countAvailability("unknown_treatment")
		return nil, reject(ReasonUnknownTreatment, "Die Behandlung %q kenne ich nicht. Wir bieten an: %s.",
			treatmentName, strings.Join(clinic.TreatmentNames(), ", "))
	}

	// On today's date, times the clock has already passed are not offered.
	after := -1
	if day.Year() == today.Year() && day.YearDay() == today.YearDay() {
		after = clinic.MinuteOfDay(today)
	}
	times := s.engine.AvailableTimesAfter(day, treatment, after)
	if len(times) == 0 {
		s.countAvailability("closed_or_full")
	} else {
		s.countAvailability("open")
	}
	return times, nil
}

// NextOpenDay finds the first day after the given date that still has
// free times for the treatment, together with those times.
func (s *Service) NextOpenDay(ctx context.Context, date, treatmentName string) (string, []string, error) {
	_, span := bookingTracer.Start(ctx, "booking.next_open_day")
	defer span.End()

	day, err := time.ParseInLocation(schedule.DateLayout, date, s.loc)
	if err != nil {
		return "", nil, reject(ReasonMalformedInput, "Das Datum %q habe ich nicht verstanden.", date)
	}
	if treatmentName == "" {
		treatmentName = clinic.DefaultTreatment
	}
	treatment, ok := clinic.LookupTreatment(treatmentName)
	if !ok {
		return "", nil, reject(ReasonUnknownTreatment, "Die Behandlung %q kenne ich nicht. Wir bieten an: %s.",
			treatmentName, strings.Join(clinic.TreatmentNames(), ", "))
	}
	next, times, err := s.engine.NextAvailableDay(day.AddDate(0, 0, 1), treatment)
	if err != nil {
		return "", nil, reject(ReasonNoAvailability,
			"In den nächsten Wochen ist leider kein Termin frei. Bitte rufen Sie später noch einmal an.")
	}
	return next.Format(schedule.DateLayout), times, nil
}

// NextAvailable finds up to count free slots for the treatment starting at
// the given date, or the service's today when date is empty.
func (s *Service) NextAvailable(ctx context.Context, date, treatmentName string, count int) ([]schedule.Slot, error) {
	_, span := bookingTracer.Start(ctx, "booking.next_available")
	defer span.End()

	from := s.now().In(s.loc)
	if date != "" {
		day, err := time.ParseInLocation(schedule.DateLayout, date, s.loc)
		if err != nil {
			return nil, reject(ReasonMalformedInput, "Das Datum %q habe ich nicht verstanden.", date)
		}
		if day.After(from) {
			from = day
		}
	}
	if treatmentName == "" {
		treatmentName = clinic.DefaultTreatment
	}
	treatment, ok := clinic.LookupTreatment(treatmentName)
	if !ok {
		return nil, reject(ReasonUnknownTreatment, "Die Behandlung %q kenne ich nicht. Wir bieten an: %s.",
			treatmentName, strings.Join(clinic.TreatmentNames(), ", "))
	}
	if count < 1 {
		count = s.suggestions
	}
	slots := s.engine.FindNext(from, treatment, count)
	if len(slots) == 0 {
		return nil, reject(ReasonNoAvailability,
			"In den nächsten Wochen ist leider kein Termin frei. Bitte rufen Sie später noch einmal an.")
	}
	return slots, nil
}

func (s *Service) rescheduleConflict(day time.Time, req RescheduleRequest, treatment clinic.Treatment) *Error {
	s.countBooking(string(ReasonSlotTaken))
	e := reject(ReasonSlotTaken, "Der neue Termin am %s ist leider schon vergeben.",
		schedule.Slot{Date: req.NewDate, Time: req.NewTime}.Display())
	e.Alternatives = s.engine.Alternatives(day, req.NewTime, treatment, s.suggestions)
	return e
}

func spansOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (s *Service) findConfirmed(ctx context.Context, name, date, tm string) (Appointment, bool) {
	all, err := s.store.ByPatient(ctx, name)
	if err != nil {
		return Appointment{}, false
	}
	for _, a := range all {
		if a.Status == StatusConfirmed && a.Date == date && a.Time == tm {
			return a, true
		}
	}
	return Appointment{}, false
}

func (s *Service) countBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countAvailability(result string) {
	if s.metrics != nil {
		s.metrics.AvailabilityChecks.WithLabelValues(result).Inc()
	}
}

func (s *Service) observeLatency(started time.Time) {
	if s.metrics != nil {
		s.metrics.BookingLatency.Observe(s.now().Sub(started).Seconds())
	}
}
