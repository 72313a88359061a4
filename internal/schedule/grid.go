package schedule

import (
	"time"

	"github.com/ezekaj/elo-deu/internal/clinic"
)

// SlotMinutes is the width of one bookable slot on the grid.
const SlotMinutes = 30

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// GridTimes returns every slot start time on the date, on a 30-minute
// grid inside the opening intervals. A start qualifies only when the
// whole slot fits before the interval closes.
func GridTimes(h clinic.Hours, date time.Time) []string {
	var out []string
	for _, iv := range h.OpeningIntervals(date) {
		for m := iv.Start; m+SlotMinutes <= iv.End; m += SlotMinutes {
			out = append(out, clinic.FormatClock(m))
		}
	}
	return out
}

// SpanTimes returns the consecutive slot starts an appointment of the given
// duration occupies, beginning at tm. The span is rejected (nil) when it
// leaves the opening interval the start time falls into, so a treatment
// never runs into the lunch break or past closing.
func SpanTimes(h clinic.Hours, date time.Time, tm string, duration time.Duration) []string {
	start, err := clinic.ParseClock(tm)
	if err != nil {
		return nil
	}
	slots := int((duration + SlotMinutes*time.Minute - 1) / (SlotMinutes * time.Minute))
	if slots < 1 {
		slots = 1
	}
	for _, iv := range h.OpeningIntervals(date) {
		if !iv.Contains(start) {
			continue
		}
		if start+slots*SlotMinutes > iv.End {
			return nil
		}
		out := make([]string, slots)
		for i := 0; i < slots; i++ {
			out[i] = clinic.FormatClock(start + i*SlotMinutes)
		}
		return out
	}
	return nil
}
