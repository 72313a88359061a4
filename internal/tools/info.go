package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ezekaj/elo-deu/internal/clinic"
	"github.com/ezekaj/elo-deu/internal/schedule"
)

// InfoTopic is the closed set of practice information a caller can ask
// for.
type InfoTopic string

const (
	TopicAddress   InfoTopic = "adresse"
	TopicHours     InfoTopic = "öffnungszeiten"
	TopicContact   InfoTopic = "kontakt"
	TopicInsurance InfoTopic = "versicherung"
	TopicPayment   InfoTopic = "bezahlung"
	TopicTeam      InfoTopic = "team"
)

// ClinicInfoArgs selects the info topic.
type ClinicInfoArgs struct {
	Topic InfoTopic `json:"topic"`
}

// ClinicInfo answers questions about the practice itself.
func (r *Registry) ClinicInfo(_ context.Context, args ClinicInfoArgs) Result {
	return r.run("clinic_info", func() (Result, error) {
		switch args.Topic {
		case TopicAddress:
			return msg("Sie finden uns hier: %s, %s.", r.practice.Name, r.practice.Address).
				with("address", r.practice.Address), nil
		case TopicHours:
			return msg("%s", r.booking.Engine().Hours().HoursText()), nil
		case TopicContact:
			return msg("Sie erreichen uns telefonisch unter %s oder per E-Mail an %s.",
				r.practice.Phone, r.practice.Email).
				with("phone", r.practice.Phone).
				with("email", r.practice.Email), nil
		case TopicInsurance:
			var lines []string
			for _, kind := range sortedKeys(clinic.InsuranceInfo) {
				lines = append(lines, fmt.Sprintf("%s: %s", kind, clinic.InsuranceInfo[kind]))
			}
			return msg("Zur Abrechnung: %s", strings.Join(lines, " ")), nil
		case TopicPayment:
			return msg("Sie können bei uns bezahlen mit: %s.", strings.Join(clinic.PaymentOptions, ", ")), nil
		case TopicTeam:
			var lines []string
			for _, name := range sortedKeys(clinic.Staff) {
				lines = append(lines, fmt.Sprintf("%s (%s)", name, clinic.Staff[name]))
			}
			return msg("Unser Team: %s.", strings.Join(lines, ", ")), nil
		default:
			return msg("Dazu kann ich Ihnen leider nichts sagen. Fragen Sie mich nach Adresse, Öffnungszeiten, Kontakt, Versicherung, Bezahlung oder unserem Team."), nil
		}
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FAQArgs carries the caller's question.
type FAQArgs struct {
	Question string `json:"question"`
}

// AnswerFAQ matches the question against the standing FAQ topics.
func (r *Registry) AnswerFAQ(_ context.Context, args FAQArgs) Result {
	return r.run("answer_faq", func() (Result, error) {
		lower := strings.ToLower(args.Question)
		for _, topic := range sortedKeys(clinic.FAQ) {
			if strings.Contains(lower, topic) {
				return msg("%s", clinic.FAQ[topic]).with("topic", topic), nil
			}
		}
		return msg("Das weiß ich leider nicht genau. Rufen Sie uns gerne unter %s an, dann klären wir das persönlich.",
			r.practice.Phone), nil
	})
}

// DayPlanArgs names the day.
type DayPlanArgs struct {
	Date string `json:"date"`
}

// DayPlan reads the confirmed appointments of a day, for staff.
func (r *Registry) DayPlan(ctx context.Context, args DayPlanArgs) Result {
	return r.run("day_plan", func() (Result, error) {
		appts, err := r.booking.DayPlan(ctx, args.Date)
		if err != nil {
			return Result{}, err
		}
		if len(appts) == 0 {
			return msg("Am %s sind keine Termine eingetragen.", args.Date).with("count", "0"), nil
		}
		var lines []string
		for _, a := range appts {
			lines = append(lines, fmt.Sprintf("%s Uhr %s (%s)", a.Time, a.PatientName, a.Treatment))
		}
		return msg("Tagesplan für %s: %s.", args.Date, strings.Join(lines, "; ")).
			with("count", fmt.Sprintf("%d", len(appts))), nil
	})
}

// WeekOverviewArgs names the first day of the overview.
type WeekOverviewArgs struct {
	StartDate string `json:"start_date"`
}

// WeekOverview summarizes bookings over seven days, for staff.
func (r *Registry) WeekOverview(ctx context.Context, args WeekOverviewArgs) Result {
	return r.run("week_overview", func() (Result, error) {
		start, err := time.ParseInLocation(schedule.DateLayout, args.StartDate, r.booking.Location())
		if err != nil {
			return msg("Das Datum %q habe ich nicht verstanden.", args.StartDate), nil
		}
		var lines []string
		total := 0
		for i := 0; i < 7; i++ {
			date := start.AddDate(0, 0, i).Format(schedule.DateLayout)
			appts, err := r.booking.DayPlan(ctx, date)
			if err != nil {
				return Result{}, err
			}
			if len(appts) > 0 {
				total += len(appts)
				lines = append(lines, fmt.Sprintf("%s: %d Termine", date, len(appts)))
			}
		}
		if total == 0 {
			return msg("In der Woche ab %s sind keine Termine eingetragen.", args.StartDate).with("total", "0"), nil
		}
		return msg("Wochenübersicht ab %s: %s. Insgesamt %d Termine.",
			args.StartDate, strings.Join(lines, "; "), total).
			with("total", fmt.Sprintf("%d", total)), nil
	})
}
