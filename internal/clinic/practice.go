package clinic

// PracticeInfo holds the static contact card of the practice.
type PracticeInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// DefaultPractice returns the practice contact card.
func DefaultPractice() PracticeInfo {
	return PracticeInfo{
		Name:    "Zahnarztpraxis Dr. Weber",
		Address: "Musterstraße 123, 12345 Berlin",
		Phone:   "030 12345678",
		Email:   "info@zahnarzt-weber.de",
		Website: "www.zahnarzt-weber.de",
	}
}

// FAQ maps question topics to their standing answers.
var FAQ = map[string]string{
	"kosten":  "Die Kosten variieren je nach Behandlung. Kontaktieren Sie uns gerne für ein individuelles Angebot.",
	"termine": "Termine können telefonisch oder online gebucht werden.",
	"notfall": "Bei Notfällen rufen Sie bitte sofort an, wir halten täglich Notfalltermine frei.",
}

// InsuranceInfo maps insurance categories to billing explanations.
var InsuranceInfo = map[string]string{
	"gesetzlich": "Wir rechnen direkt mit Ihrer Krankenkasse ab.",
	"privat":     "Private Versicherungen werden nach GOZ abgerechnet.",
}

// PaymentOptions lists the accepted payment methods.
var PaymentOptions = []string{"Barzahlung", "EC-Karte", "Überweisung", "Ratenzahlung"}

// Staff maps team members to their roles.
var Staff = map[string]string{
	"Dr. Weber": "Zahnarzt",
	"Sofia":     "Praxisassistentin (KI)",
}
