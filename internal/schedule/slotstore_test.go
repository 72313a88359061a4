package schedule

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySlotStore_ReserveAndRelease(t *testing.T) {
	s := NewMemorySlotStore()

	assert.False(t, s.IsBooked("2025-01-15", "10:00"))
	require.True(t, s.Reserve("2025-01-15", "10:00"))
	assert.True(t, s.IsBooked("2025-01-15", "10:00"))

	// Same time on another day is independent.
	assert.False(t, s.IsBooked("2025-01-16", "10:00"))

	s.Release("2025-01-15", "10:00")
	assert.False(t, s.IsBooked("2025-01-15", "10:00"))
}

func TestMemorySlotStore_ReserveAllOrNothing(t *testing.T) {
	s := NewMemorySlotStore()
	require.True(t, s.Reserve("2025-01-15", "10:30"))

	// Overlapping span must fail without booking the free slots.
	assert.False(t, s.Reserve("2025-01-15", "10:00", "10:30", "11:00"))
	assert.False(t, s.IsBooked("2025-01-15", "10:00"))
	assert.False(t, s.IsBooked("2025-01-15", "11:00"))

	assert.False(t, s.Reserve("2025-01-15"), "empty reserve must not succeed")
}

func TestMemorySlotStore_BookedTimesSorted(t *testing.T) {
	s := NewMemorySlotStore()
	require.True(t, s.Reserve("2025-01-15", "14:00"))
	require.True(t, s.Reserve("2025-01-15", "09:30"))
	require.True(t, s.Reserve("2025-01-15", "10:00"))

	assert.Equal(t, []string{"09:30", "10:00", "14:00"}, s.BookedTimes("2025-01-15"))
	assert.Empty(t, s.BookedTimes("2025-01-16"))
}

func TestMemorySlotStore_ConcurrentReserveSingleWinner(t *testing.T) {
	s := NewMemorySlotStore()

	const callers = 32
	var wg sync.WaitGroup
	wins := make(chan int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if s.Reserve("2025-01-15", "10:00", "10:30") {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners, "exactly one caller may take the slot")
	assert.Equal(t, []string{"10:00", "10:30"}, s.BookedTimes("2025-01-15"))
}
