package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezekaj/elo-deu/internal/clinic"
	"github.com/ezekaj/elo-deu/internal/observability/metrics"
	"github.com/ezekaj/elo-deu/internal/patients"
	"github.com/ezekaj/elo-deu/internal/schedule"
	"github.com/ezekaj/elo-deu/pkg/logging"
)

type testBooking struct {
	svc      *Service
	slots    *schedule.MemorySlotStore
	store    *MemoryStore
	registry *patients.InMemoryRepository
}

func newTestService(t *testing.T) testBooking {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	slots := schedule.NewMemorySlotStore()
	engine := schedule.NewEngine(clinic.DefaultHours(), slots, 30)
	store := NewMemoryStore()
	registry := patients.NewInMemoryRepository()
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())
	svc := NewService(engine, slots, store, registry, m, logging.Default(), loc, 3)
	// 2025-01-10 is a Friday; every test slot lies in the week after.
	svc.SetClock(func() time.Time {
		return time.Date(2025, 1, 10, 9, 0, 0, 0, loc)
	})
	return testBooking{svc: svc, slots: slots, store: store, registry: registry}
}

func wish(name, treatment, date, tm string) BookRequest {
	return BookRequest{PatientName: name, Phone: "+4930111111", Treatment: treatment, Date: date, Time: tm}
}

func TestService_Book(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	appt, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(appt.Code, "APT-20250115100000-"), appt.Code)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, "Kontrolluntersuchung", appt.Treatment)
	assert.True(t, tb.slots.IsBooked("2025-01-15", "10:00"))

	stored, err := tb.store.Get(ctx, appt.Code)
	require.NoError(t, err)
	assert.Equal(t, appt, stored)

	// Booking registers the caller as a patient.
	p, err := tb.registry.Get("+4930111111")
	require.NoError(t, err)
	assert.Equal(t, "Anna Muster", p.Name)
	assert.Equal(t, appt.Code, p.LastBookingCode)
}

func TestService_Book_ValidationOrder(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    BookRequest
		reason Reason
	}{
		{"missing name", wish("", "Kontrolluntersuchung", "2025-01-15", "10:00"), ReasonMalformedInput},
		{"bad date", wish("Anna Muster", "Kontrolluntersuchung", "15.01.2025", "10:00"), ReasonMalformedInput},
		{"bad time", wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "zehn"), ReasonMalformedInput},
		{"past date", wish("Anna Muster", "Kontrolluntersuchung", "2024-12-20", "10:00"), ReasonPastDate},
		// Past date wins over the unknown treatment on the same request.
		{"past date before treatment", wish("Anna Muster", "Hufschmied", "2024-12-20", "10:00"), ReasonPastDate},
		{"unknown treatment", wish("Anna Muster", "Hufschmied", "2025-01-15", "10:00"), ReasonUnknownTreatment},
		{"sunday", wish("Anna Muster", "Kontrolluntersuchung", "2025-01-12", "10:00"), ReasonClosedDay},
		{"lunch break", wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "12:00"), ReasonLunchBreak},
		{"after closing", wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "17:30"), ReasonClosedDay},
		{"span does not fit", wish("Anna Muster", "Wurzelbehandlung", "2025-01-15", "10:30"), ReasonClosedDay},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tb.svc.Book(ctx, tc.req)
			var be *Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.reason, be.Reason)
			assert.NotEmpty(t, be.Message)
		})
	}
}

func TestService_Book_SlotTakenOffersAlternatives(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)

	_, err = tb.svc.Book(ctx, wish("Ben Beispiel", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonSlotTaken, be.Reason)
	require.Len(t, be.Alternatives, 3)
	assert.Equal(t, "2025-01-15", be.Alternatives[0].Date, "nearest same-day slot first")

	// The failed attempt must not have reserved anything.
	assert.False(t, tb.slots.IsBooked("2025-01-15", "09:30"))
}

func TestService_Book_DurationBlocksSpan(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	// Wurzelbehandlung runs 90 minutes: 09:30, 10:00 and 10:30 are taken.
	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Wurzelbehandlung", "2025-01-15", "09:30"))
	require.NoError(t, err)
	assert.True(t, tb.slots.IsBooked("2025-01-15", "10:30"))

	_, err = tb.svc.Book(ctx, wish("Ben Beispiel", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonSlotTaken, be.Reason)
}

func TestService_Reschedule(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	appt, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)

	moved, err := tb.svc.Reschedule(ctx, RescheduleRequest{
		PatientName: "Anna Muster",
		OldDate:     "2025-01-15", OldTime: "10:00",
		NewDate: "2025-01-16", NewTime: "14:30",
	})
	require.NoError(t, err)
	assert.Equal(t, appt.Code, moved.Code, "reschedule keeps the booking code")
	assert.Equal(t, "2025-01-16", moved.Date)
	assert.False(t, tb.slots.IsBooked("2025-01-15", "10:00"), "old slot is freed")
	assert.True(t, tb.slots.IsBooked("2025-01-16", "14:30"))
}

func TestService_Reschedule_OriginalNotFound(t *testing.T) {
	tb := newTestService(t)
	_, err := tb.svc.Reschedule(context.Background(), RescheduleRequest{
		PatientName: "Anna Muster",
		OldDate:     "2025-01-15", OldTime: "10:00",
		NewDate: "2025-01-16", NewTime: "14:30",
	})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonOriginalNotFound, be.Reason)
}

func TestService_Reschedule_NewSlotTakenKeepsOriginal(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)
	_, err = tb.svc.Book(ctx, wish("Ben Beispiel", "Kontrolluntersuchung", "2025-01-16", "14:30"))
	require.NoError(t, err)

	_, err = tb.svc.Reschedule(ctx, RescheduleRequest{
		PatientName: "Anna Muster",
		OldDate:     "2025-01-15", OldTime: "10:00",
		NewDate: "2025-01-16", NewTime: "14:30",
	})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonSlotTaken, be.Reason)
	assert.True(t, tb.slots.IsBooked("2025-01-15", "10:00"), "original slot is restored")

	history, err := tb.svc.History(ctx, "", "Anna Muster")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-01-15", history[0].Date)
}

func TestService_Reschedule_OverlapConflictRestoresOriginal(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	// Anna's 90 minutes hold 09:00, 09:30 and 10:00; Ben holds 10:30.
	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Wurzelbehandlung", "2025-01-15", "09:00"))
	require.NoError(t, err)
	_, err = tb.svc.Book(ctx, wish("Ben Beispiel", "Kontrolluntersuchung", "2025-01-15", "10:30"))
	require.NoError(t, err)

	// Moving Anna to 09:30 would need 10:30 and must fail, restoring her
	// original span completely.
	_, err = tb.svc.Reschedule(ctx, RescheduleRequest{
		PatientName: "Anna Muster",
		OldDate:     "2025-01-15", OldTime: "09:00",
		NewDate: "2025-01-15", NewTime: "09:30",
	})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonSlotTaken, be.Reason)
	for _, tm := range []string{"09:00", "09:30", "10:00", "10:30"} {
		assert.True(t, tb.slots.IsBooked("2025-01-15", tm), tm)
	}
}

func TestService_Reschedule_SameDayOverlap(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	// Moving a 90-minute treatment half an hour overlaps its own old span.
	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Wurzelbehandlung", "2025-01-15", "09:00"))
	require.NoError(t, err)

	moved, err := tb.svc.Reschedule(ctx, RescheduleRequest{
		PatientName: "Anna Muster",
		OldDate:     "2025-01-15", OldTime: "09:00",
		NewDate: "2025-01-15", NewTime: "09:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", moved.Time)
	assert.False(t, tb.slots.IsBooked("2025-01-15", "09:00"))
	assert.True(t, tb.slots.IsBooked("2025-01-15", "10:30"))
}

func TestService_Cancel(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)

	cancelled, err := tb.svc.Cancel(ctx, "Anna Muster", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, tb.slots.IsBooked("2025-01-15", "10:00"), "cancel frees the slot")

	// The slot is gone, so cancelling it a second time must fail.
	_, err = tb.svc.Cancel(ctx, "Anna Muster", "2025-01-15", "10:00")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonNotFound, be.Reason)

	// The cancelled appointment stays visible in the history.
	history, err := tb.svc.History(ctx, "", "Anna Muster")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusCancelled, history[0].Status)
}

func TestService_Cancel_Ambiguous(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)
	_, err = tb.svc.Book(ctx, wish("Anna Muster", "Zahnreinigung", "2025-01-16", "14:00"))
	require.NoError(t, err)

	_, err = tb.svc.Cancel(ctx, "Anna Muster", "", "")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonAmbiguous, be.Reason)

	// Naming the day resolves the ambiguity.
	cancelled, err := tb.svc.Cancel(ctx, "Anna Muster", "2025-01-16", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-16", cancelled.Date)
}

func TestService_Cancel_NotFound(t *testing.T) {
	tb := newTestService(t)
	_, err := tb.svc.Cancel(context.Background(), "Niemand Bekannt", "", "")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonNotFound, be.Reason)
}

func TestService_AvailableTimes(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	times, err := tb.svc.AvailableTimes(ctx, "2025-01-15", "")
	require.NoError(t, err)
	assert.Len(t, times, 12)

	// Closed days answer with an empty list, not an error.
	times, err = tb.svc.AvailableTimes(ctx, "2025-01-12", "Kontrolluntersuchung")
	require.NoError(t, err)
	assert.Empty(t, times)

	_, err = tb.svc.AvailableTimes(ctx, "2024-12-20", "Kontrolluntersuchung")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonPastDate, be.Reason)

	// On today itself, times the clock has already passed are not offered.
	times, err = tb.svc.AvailableTimes(ctx, "2025-01-10", "")
	require.NoError(t, err)
	assert.NotContains(t, times, "09:00")
	assert.Equal(t, "09:30", times[0])
	assert.Len(t, times, 8)
}

func TestService_NextOpenDay(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	// Sunday is closed; Monday is the next day with room.
	next, times, err := tb.svc.NextOpenDay(ctx, "2025-01-12", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-13", next)
	assert.NotEmpty(t, times)

	_, _, err = tb.svc.NextOpenDay(ctx, "2025-01-12", "Hufschmied")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonUnknownTreatment, be.Reason)
}

func TestService_NextAvailable(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	slots, err := tb.svc.NextAvailable(ctx, "", "Kontrolluntersuchung", 3)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "2025-01-10", slots[0].Date, "search starts today")
	assert.Equal(t, "09:30", slots[0].Time, "the 09:00 slot has already passed")

	_, err = tb.svc.NextAvailable(ctx, "", "Hufschmied", 3)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonUnknownTreatment, be.Reason)
}

func TestService_History(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	_, err := tb.svc.Book(ctx, wish("Anna Muster", "Kontrolluntersuchung", "2025-01-15", "10:00"))
	require.NoError(t, err)
	_, err = tb.svc.Book(ctx, wish("Anna Muster", "Zahnreinigung", "2025-01-20", "14:00"))
	require.NoError(t, err)

	history, err := tb.svc.History(ctx, "", "anna muster")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-01-20", history[0].Date, "newest first")
}

func TestService_HistoryByPhone(t *testing.T) {
	tb := newTestService(t)
	ctx := context.Background()

	booked, err := tb.svc.Book(ctx, wish("Anna Muster", "Zahnreinigung", "2025-01-15", "14:00"))
	require.NoError(t, err)
	_, err = tb.svc.Book(ctx, BookRequest{
		PatientName: "Ben Beispiel", Phone: "+4930222222",
		Treatment: "Kontrolluntersuchung", Date: "2025-01-15", Time: "10:00",
	})
	require.NoError(t, err)

	// The phone number leads straight back to the booked appointment.
	history, err := tb.svc.History(ctx, "+4930111111", "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, booked.Code, history[0].Code)
	assert.Equal(t, "Zahnreinigung", history[0].Treatment)
	assert.Equal(t, "2025-01-15", history[0].Date)
	assert.Equal(t, "14:00", history[0].Time)

	// Neither key given is a malformed request.
	_, err = tb.svc.History(ctx, "", "")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonMalformedInput, be.Reason)
}
