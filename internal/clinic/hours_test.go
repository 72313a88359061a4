package clinic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	require.NoError(t, err)
	return ts
}

func TestCheckWeekday(t *testing.T) {
	h := DefaultHours()

	// 2025-01-15 is a Wednesday.
	tests := []struct {
		clock string
		want  error
	}{
		{"08:59", ErrClosedDay},
		{"09:00", nil},
		{"11:00", nil},
		{"11:29", nil},
		{"11:30", ErrLunchBreak},
		{"12:00", ErrLunchBreak},
		{"13:59", ErrLunchBreak},
		{"14:00", nil},
		{"17:29", nil},
		{"17:30", ErrClosedDay}, // half-open interval, boundary is closed
		{"20:00", ErrClosedDay},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			err := h.Check(at(t, "2025-01-15", tt.clock))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckFridayClosesEarly(t *testing.T) {
	h := DefaultHours()

	// 2025-01-17 is a Friday.
	assert.NoError(t, h.Check(at(t, "2025-01-17", "15:30")))
	assert.ErrorIs(t, h.Check(at(t, "2025-01-17", "16:00")), ErrClosedDay)
	assert.ErrorIs(t, h.Check(at(t, "2025-01-17", "12:30")), ErrLunchBreak)
}

func TestCheckSaturdayMorningOnly(t *testing.T) {
	h := DefaultHours()

	// 2025-01-18 is a Saturday: 09:00-12:30, no lunch closure, no afternoon.
	assert.NoError(t, h.Check(at(t, "2025-01-18", "09:00")))
	assert.NoError(t, h.Check(at(t, "2025-01-18", "12:00")))
	assert.ErrorIs(t, h.Check(at(t, "2025-01-18", "12:30")), ErrClosedDay)
	// Lunch window on Saturday is plain closure, not a lunch break.
	assert.ErrorIs(t, h.Check(at(t, "2025-01-18", "13:00")), ErrClosedDay)
}

func TestCheckSundayClosed(t *testing.T) {
	h := DefaultHours()

	// 2025-01-12 is a Sunday.
	for _, clock := range []string{"09:00", "12:00", "15:00"} {
		assert.ErrorIs(t, h.Check(at(t, "2025-01-12", clock)), ErrClosedDay, clock)
	}
	assert.Empty(t, h.OpeningIntervals(at(t, "2025-01-12", "09:00")))
}

func TestOpeningIntervals(t *testing.T) {
	h := DefaultHours()

	wed := h.OpeningIntervals(at(t, "2025-01-15", "00:00"))
	require.Len(t, wed, 2)
	assert.Equal(t, "09:00-11:30", wed[0].String())
	assert.Equal(t, "14:00-17:30", wed[1].String())

	sat := h.OpeningIntervals(at(t, "2025-01-18", "00:00"))
	require.Len(t, sat, 1)
	assert.Equal(t, "09:00-12:30", sat[0].String())
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("14:30")
	require.NoError(t, err)
	assert.Equal(t, 14*60+30, min)
	assert.Equal(t, "14:30", FormatClock(min))

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("half three")
	assert.Error(t, err)
}
