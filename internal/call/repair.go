package call

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezekaj/elo-deu/internal/schedule"
)

// Callers correct a proposed time mid-sentence ("nein, lieber 11:30").
// correctionCues are the words that signal such a repair.
var correctionCues = []string{"lieber", "besser", "stattdessen", "nein", "anders"}

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2})\.(\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2})\s*uhr\b`),
	regexp.MustCompile(`\bum\s+(\d{1,2})\b`),
}

// RepairTime checks whether the utterance corrects the proposed slot's
// time. On a match it returns the proposal with the new time, keeping the
// date. The bool reports whether a repair happened.
func RepairTime(utterance string, proposed schedule.Slot) (schedule.Slot, bool) {
	lower := strings.ToLower(utterance)

	cued := false
	for _, cue := range correctionCues {
		if strings.Contains(lower, cue) {
			cued = true
			break
		}
	}
	if !cued {
		return proposed, false
	}

	for _, re := range timePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 {
			continue
		}
		minute := 0
		if len(m) > 2 {
			if minute, err = strconv.Atoi(m[2]); err != nil || minute > 59 {
				continue
			}
		}
		repaired := proposed
		repaired.Time = fmt.Sprintf("%02d:%02d", hour, minute)
		if repaired.Time == proposed.Time {
			return proposed, false
		}
		return repaired, true
	}
	return proposed, false
}
