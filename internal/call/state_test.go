package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezekaj/elo-deu/internal/schedule"
)

func clock(hour, minute int) time.Time {
	return time.Date(2025, 1, 15, hour, minute, 0, 0, time.UTC)
}

func TestState_Lifecycle(t *testing.T) {
	s := NewState("call-1", "+4930111111", clock(10, 0))
	assert.Equal(t, StatusActive, s.Status)

	require.NoError(t, s.SetName("Anna Muster"))
	require.NoError(t, s.SetTreatment("Kontrolluntersuchung"))
	require.NoError(t, s.Turn())
	require.NoError(t, s.AddNote("Termin gewünscht", clock(10, 2)))

	s.BeginEnding(clock(10, 5))
	assert.Equal(t, StatusEnding, s.Status)

	// Once ending, nothing may change any more.
	assert.ErrorIs(t, s.SetName("Jemand Anderes"), ErrCallEnded)
	assert.ErrorIs(t, s.AddNote("zu spät", clock(10, 6)), ErrCallEnded)
	assert.ErrorIs(t, s.Turn(), ErrCallEnded)
	assert.Equal(t, "Anna Muster", s.PatientName)

	s.End(clock(10, 5))
	assert.Equal(t, StatusEnded, s.Status)
	assert.Equal(t, clock(10, 5), s.EndedAt)
}

func TestState_NeedsName(t *testing.T) {
	s := NewState("call-1", "+4930111111", clock(10, 0))

	assert.True(t, s.NeedsName(), "first check asks for the name")
	assert.False(t, s.NeedsName(), "the question is only posed once")

	s2 := NewState("call-2", "+4930222222", clock(10, 0))
	require.NoError(t, s2.SetName("Anna Muster"))
	assert.False(t, s2.NeedsName(), "a known name is never asked for")
}

func TestState_Proposal(t *testing.T) {
	s := NewState("call-1", "+4930111111", clock(10, 0))

	require.NoError(t, s.Propose(schedule.Slot{Date: "2025-01-15", Time: "10:00"}))
	require.NotNil(t, s.ProposedSlot)
	assert.Equal(t, "10:00", s.ProposedSlot.Time)

	require.NoError(t, s.ClearProposal())
	assert.Nil(t, s.ProposedSlot)
}

func TestState_NotesStamped(t *testing.T) {
	s := NewState("call-1", "+4930111111", clock(10, 0))
	require.NoError(t, s.AddNote("Schmerzen seit gestern", clock(10, 3)))
	require.Len(t, s.Notes, 1)
	assert.Equal(t, "10:03", s.Notes[0].Stamp)

	summary := s.Summary()
	assert.Contains(t, summary, "[10:03] Schmerzen seit gestern")
}

func TestRepairTime(t *testing.T) {
	proposed := schedule.Slot{Date: "2025-01-15", Time: "10:00"}

	tests := []struct {
		name      string
		utterance string
		wantTime  string
		repaired  bool
	}{
		{"lieber with colon time", "nein, lieber 11:30", "11:30", true},
		{"besser with dot time", "besser 14.30 bitte", "14:30", true},
		{"stattdessen with uhr", "stattdessen 15 Uhr", "15:00", true},
		{"nein with um", "nein, um 9 bitte", "09:00", true},
		{"cue without time", "nein, das passt nicht", "10:00", false},
		{"time without cue", "11:30 wäre auch gut", "10:00", false},
		{"same time again", "nein, lieber 10:00", "10:00", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := RepairTime(tc.utterance, proposed)
			assert.Equal(t, tc.repaired, ok)
			assert.Equal(t, tc.wantTime, got.Time)
			assert.Equal(t, "2025-01-15", got.Date, "a time repair keeps the date")
		})
	}
}
