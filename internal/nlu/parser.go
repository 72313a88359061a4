// Package nlu turns German caller utterances into structured appointment
// requests: a date, a time, and a treatment, plus enough context for the
// voice layer to answer naturally.
package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ezekaj/elo-deu/internal/clinic"
	"github.com/ezekaj/elo-deu/internal/schedule"
)

// fuzzyTimes maps colloquial German time phrases to clock times. Order
// matters: the most specific phrasings come first, so "gegen halb 3"
// wins over "am nachmittag" in the same sentence.
var fuzzyTimes = []struct {
	phrase string
	clock  string
}{
	{"kurz nach 14", "14:15"},
	{"kurz nach 2", "14:15"},
	{"gegen halb 3", "14:30"},
	{"gegen halb 15", "14:30"},
	{"kurz vor 15", "14:45"},
	{"kurz vor 16", "15:45"},
	{"kurz vor 17", "16:45"},
	{"gegen 14", "14:00"},
	{"gegen 15", "15:00"},
	{"gegen 16", "16:00"},
	{"gegen 17", "17:00"},
	{"nach dem mittagessen", "13:30"},
	{"vor dem mittagessen", "11:30"},
	{"in der mittagspause", "12:30"},
	{"nach feierabend", "18:00"},
	{"später nachmittag", "16:00"},
	{"früher nachmittag", "13:00"},
	{"früh morgens", "08:00"},
	{"spät abends", "19:00"},
	{"gegen mittag", "12:00"},
	{"mittags", "12:00"},
	{"am vormittag", "10:00"},
	{"vormittags", "10:00"},
	{"am nachmittag", "15:00"},
	{"nachmittags", "15:00"},
}

var (
	clockPattern   = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)
	hourUhrPattern = regexp.MustCompile(`\b(\d{1,2})\s*uhr\b`)
	umHourPattern  = regexp.MustCompile(`\bum\s+(\d{1,2})\b`)

	tomorrowPattern      = regexp.MustCompile(`\bmorgen\b`)
	afterTomorrowPattern = regexp.MustCompile(`übermorgen`)
)

var weekdayNames = map[string]time.Weekday{
	"montag":     time.Monday,
	"dienstag":   time.Tuesday,
	"mittwoch":   time.Wednesday,
	"donnerstag": time.Thursday,
	"freitag":    time.Friday,
	"samstag":    time.Saturday,
	"sonntag":    time.Sunday,
}

// symptomHints maps complaint keywords to a treatment. Urgent hints make
// the request an emergency.
var symptomHints = []struct {
	keywords  []string
	treatment string
	urgent    bool
}{
	{[]string{"notfall", "dringend", "sofort", "unerträglich"}, "Notfallbehandlung", true},
	{[]string{"schmerz", "weh", "ziehen", "stechen", "pochen"}, "Notfallbehandlung", true},
	{[]string{"weisheitszahn", "weisheitszähne"}, "Notfallbehandlung", false},
	{[]string{"implantat", "zahnersatz", "künstlicher zahn"}, "Implantate", false},
	{[]string{"krone", "füllung", "plombe", "abgebrochen", "rausgefallen"}, "Füllungen", false},
	{[]string{"reinigung", "prophylaxe", "zahnstein"}, "Zahnreinigung", false},
	{[]string{"zahnfleisch", "blutet", "entzündet", "parodont"}, "Kontrolluntersuchung", false},
	{[]string{"kontrolle", "untersuchung", "vorsorge", "check"}, "Kontrolluntersuchung", false},
}

// Request is the structured reading of one utterance.
type Request struct {
	Date      string `json:"date"`           // YYYY-MM-DD
	Time      string `json:"time,omitempty"` // HH:MM, empty when none given
	Treatment string `json:"treatment"`
	Urgent    bool   `json:"urgent,omitempty"`
	// Ambiguous is set when the treatment was defaulted rather than heard.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// Context for the voice layer.
	IsToday    bool   `json:"is_today"`
	OpenNow    bool   `json:"open_now"`
	TodayHours string `json:"today_hours"`
}

// Parser resolves utterances against the practice clock and hours.
type Parser struct {
	hours clinic.Hours
	loc   *time.Location
	now   func() time.Time
}

// NewParser builds a parser for the practice's hours and time zone.
func NewParser(hours clinic.Hours, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{hours: hours, loc: loc, now: time.Now}
}

// SetClock overrides the parser clock. Intended for tests.
func (p *Parser) SetClock(now func() time.Time) { p.now = now }

// Parse reads a full utterance into a Request. Missing pieces fall back
// to today and the default treatment.
func (p *Parser) Parse(utterance string) Request {
	lower := strings.ToLower(utterance)
	now := p.now().In(p.loc)

	date := p.resolveDate(lower, now)
	tm, _ := ParseTime(lower)
	treatment, urgent, ambiguous := ParseTreatment(lower)

	today := now.Format(schedule.DateLayout)
	return Request{
		Date:       date,
		Time:       tm,
		Treatment:  treatment,
		Urgent:     urgent,
		Ambiguous:  ambiguous,
		IsToday:    date == today,
		OpenNow:    p.hours.IsOpen(now),
		TodayHours: intervalsText(p.hours.OpeningIntervals(now)),
	}
}

func intervalsText(ivs []clinic.Interval) string {
	if len(ivs) == 0 {
		return "geschlossen"
	}
	parts := make([]string, len(ivs))
	for i, iv := range ivs {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " und ")
}

// ParseTime extracts a clock time from the utterance: first the fuzzy
// phrase table, then numeric patterns.
func ParseTime(utterance string) (string, bool) {
	lower := strings.ToLower(utterance)

	for _, f := range fuzzyTimes {
		if strings.Contains(lower, f.phrase) {
			return f.clock, true
		}
	}

	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour <= 23 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute), true
		}
	}
	for _, re := range []*regexp.Regexp{hourUhrPattern, umHourPattern} {
		if m := re.FindStringSubmatch(lower); m != nil {
			hour, _ := strconv.Atoi(m[1])
			if hour <= 23 {
				return fmt.Sprintf("%02d:00", hour), true
			}
		}
	}
	return "", false
}

// resolveDate reads relative German date words. Without one, the date
// defaults to today.
func (p *Parser) resolveDate(lower string, now time.Time) string {
	switch {
	case afterTomorrowPattern.MatchString(lower):
		return now.AddDate(0, 0, 2).Format(schedule.DateLayout)
	case tomorrowPattern.MatchString(lower):
		return now.AddDate(0, 0, 1).Format(schedule.DateLayout)
	case strings.Contains(lower, "nächste woche"), strings.Contains(lower, "naechste woche"):
		// Next week starts on its Monday.
		ahead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format(schedule.DateLayout)
	case strings.Contains(lower, "heute"):
		return now.Format(schedule.DateLayout)
	}
	for name, wd := range weekdayNames {
		if !strings.Contains(lower, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format(schedule.DateLayout)
	}
	return now.Format(schedule.DateLayout)
}

// ParseTreatment resolves the treatment named or implied by the
// utterance. The catalog is tried first, then symptom keywords; with
// neither, the default treatment is returned with Ambiguous set.
func ParseTreatment(utterance string) (name string, urgent, ambiguous bool) {
	lower := strings.ToLower(utterance)

	for _, t := range clinic.Treatments() {
		if strings.Contains(lower, strings.ToLower(t.Name)) {
			return t.Name, strings.Contains(lower, "notfall") || t.Name == "Notfallbehandlung", false
		}
	}
	for _, hint := range symptomHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				return hint.treatment, hint.urgent, false
			}
		}
	}
	return clinic.DefaultTreatment, false, true
}

// FollowUpQuestion picks the medical follow-up the agent should ask for a
// complaint, mirroring how an assistant would ask before booking.
func FollowUpQuestion(complaint string) string {
	lower := strings.ToLower(complaint)

	type follow struct {
		keywords []string
		question string
	}
	followUps := []follow{
		{[]string{"notfall", "dringend", "sofort", "starke schmerzen", "unerträglich"},
			"Das klingt nach einem Notfall! Haben Sie starke Schmerzen? Ich suche sofort einen dringenden Termin für Sie."},
		{[]string{"schmerz", "weh", "ziehen", "stechen", "pochen"},
			"Oh, das tut mir leid zu hören, dass Sie Schmerzen haben. Seit wann haben Sie denn die Beschwerden? Und haben Sie schon Schmerzmittel genommen?"},
		{[]string{"implantat", "zahnersatz", "künstlicher zahn"},
			"Ah, es geht um Ihr Implantat. Ist das nur für eine Kontrolluntersuchung oder haben Sie Probleme damit?"},
		{[]string{"zahnfleisch", "gingiva", "blut", "geschwollen", "entzündet", "parodont"},
			"Ich verstehe, Sie haben Probleme mit dem Zahnfleisch. Blutet es beim Zähneputzen oder ist es geschwollen?"},
		{[]string{"weisheitszahn", "weisheitszähne", "achter", "8er"},
			"Ach so, es geht um die Weisheitszähne. Haben Sie Schmerzen oder möchten Sie sie entfernen lassen?"},
		{[]string{"krone", "füllung", "plombe", "inlay", "onlay", "abgebrochen", "rausgefallen"},
			"Oh, ist etwas mit einer Füllung oder Krone passiert? Ist sie abgebrochen oder rausgefallen?"},
		{[]string{"kontrolle", "untersuchung", "check", "prophylaxe", "reinigung", "vorsorge"},
			"Das ist sehr gut, dass Sie zur Kontrolle kommen möchten. Wann waren Sie denn das letzte Mal beim Zahnarzt?"},
		{[]string{"bleaching", "aufhellen", "weiß", "ästhetik", "verfärb"},
			"Schön, dass Sie sich für ästhetische Zahnbehandlung interessieren. Möchten Sie Ihre Zähne aufhellen lassen?"},
	}
	for _, f := range followUps {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				return f.question
			}
		}
	}
	return "Gerne helfe ich Ihnen weiter. Können Sie mir sagen, was für Beschwerden Sie haben oder welche Behandlung Sie benötigen?"
}

// Greeting picks the time-of-day greeting for the practice's clock.
func (p *Parser) Greeting() string {
	hour := p.now().In(p.loc).Hour()
	switch {
	case hour < 11:
		return "Guten Morgen"
	case hour < 18:
		return "Guten Tag"
	default:
		return "Guten Abend"
	}
}
