package clinic

import (
	"strings"
	"time"
)

// Treatment is a static catalog entry with its standard chair time.
type Treatment struct {
	Name     string
	Duration time.Duration
}

// DefaultTreatment is used when the caller does not name a treatment.
const DefaultTreatment = "Kontrolluntersuchung"

var catalog = []Treatment{
	{Name: "Kontrolluntersuchung", Duration: 30 * time.Minute},
	{Name: "Zahnreinigung", Duration: 60 * time.Minute},
	{Name: "Füllungen", Duration: 45 * time.Minute},
	{Name: "Wurzelbehandlung", Duration: 90 * time.Minute},
	{Name: "Zahnersatz", Duration: 60 * time.Minute},
	{Name: "Implantate", Duration: 120 * time.Minute},
	{Name: "Kieferorthopädie", Duration: 45 * time.Minute},
	{Name: "Notfallbehandlung", Duration: 30 * time.Minute},
}

// treatmentAliases maps common patient phrasings to catalog names.
// Keys are normalized (lowercased, trimmed).
var treatmentAliases = map[string]string{
	"kontrolle":      "Kontrolluntersuchung",
	"untersuchung":   "Kontrolluntersuchung",
	"vorsorge":       "Kontrolluntersuchung",
	"check":          "Kontrolluntersuchung",
	"reinigung":      "Zahnreinigung",
	"prophylaxe":     "Zahnreinigung",
	"füllung":        "Füllungen",
	"plombe":         "Füllungen",
	"wurzel":         "Wurzelbehandlung",
	"implantat":      "Implantate",
	"zahnspange":     "Kieferorthopädie",
	"prothese":       "Zahnersatz",
	"notfall":        "Notfallbehandlung",
	"schmerztermin":  "Notfallbehandlung",
	"krone":          "Zahnersatz",
	"zahnhygiene":    "Zahnreinigung",
	"wurzelkanal":    "Wurzelbehandlung",
	"kieferorthopäd": "Kieferorthopädie",
}

// Treatments returns the catalog in declaration order.
func Treatments() []Treatment {
	out := make([]Treatment, len(catalog))
	copy(out, catalog)
	return out
}

// TreatmentNames returns the valid treatment names, for rejection messages.
func TreatmentNames() []string {
	names := make([]string, len(catalog))
	for i, t := range catalog {
		names[i] = t.Name
	}
	return names
}

func normalizeTreatmentKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LookupTreatment resolves a patient-facing treatment name to a catalog
// entry. Matching is case-insensitive and falls back to alias and substring
// resolution, preferring the longest matching key.
func LookupTreatment(name string) (Treatment, bool) {
	key := normalizeTreatmentKey(name)
	if key == "" {
		return Treatment{}, false
	}

	for _, t := range catalog {
		if normalizeTreatmentKey(t.Name) == key {
			return t, true
		}
	}

	if canonical, ok := treatmentAliases[key]; ok {
		return LookupTreatment(canonical)
	}

	// Substring match in either direction, longest key wins so that
	// "wurzelbehandlung dringend" resolves before "behandlung" noise.
	bestLen := 0
	var best Treatment
	found := false
	for _, t := range catalog {
		tk := normalizeTreatmentKey(t.Name)
		if strings.Contains(key, tk) || strings.Contains(tk, key) {
			if len(tk) > bestLen {
				best, bestLen, found = t, len(tk), true
			}
		}
	}
	for alias, canonical := range treatmentAliases {
		if strings.Contains(key, alias) && len(alias) > bestLen {
			if t, ok := LookupTreatment(canonical); ok {
				best, bestLen, found = t, len(alias), true
			}
		}
	}
	return best, found
}
