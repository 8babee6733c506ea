package intent

import "strings"

// ContextPatterns flags the broad shapes a question takes.
type ContextPatterns struct {
	Temporal     bool `json:"temporal"`
	Comparative  bool `json:"comparative"`
	Aggregative  bool `json:"aggregative"`
	Personal     bool `json:"personal"`
	Departmental bool `json:"departmental"`
	// Complexity grows with length, entity kinds and compound phrasing.
	Complexity float64 `json:"complexity"`
}

var patternWords = map[string][]string{
	"temporal":     {"last", "this", "year", "month", "quarter", "week", "recent", "recently", "since", "ytd", "trend", "over"},
	"comparative":  {"compare", "versus", "vs", "than", "difference", "better", "worse"},
	"aggregative":  {"total", "average", "sum", "count", "many", "mean", "overall"},
	"personal":     {"my", "me", "i", "mine", "myself"},
	"departmental": {"department", "departments", "team", "teams", "division", "unit"},
}

var compoundMarkers = []string{" and ", " or ", " except ", " but ", " not "}

// DetectContextPatterns reports which shapes apply to the query.
func (k *KeywordClassifier) DetectContextPatterns(query string) ContextPatterns {
	lower := strings.ToLower(query)
	tokens := words(lower)
	has := func(kind string) bool {
		for _, w := range patternWords[kind] {
			for _, tok := range tokens {
				if tok == w {
					return true
				}
			}
		}
		return false
	}

	p := ContextPatterns{
		Temporal:     has("temporal"),
		Comparative:  has("comparative"),
		Aggregative:  has("aggregative"),
		Personal:     has("personal"),
		Departmental: has("departmental"),
	}

	ents := k.extractor.Extract(query)
	kinds := 0
	for _, present := range []bool{len(ents.Departments) > 0, len(ents.Roles) > 0, len(ents.Skills) > 0, len(ents.Locations) > 0, ents.HasStructured()} {
		if present {
			kinds++
		}
	}
	p.Complexity = float64(kinds) + min(float64(len(tokens))/5, 2)
	for _, m := range compoundMarkers {
		if strings.Contains(lower, m) {
			p.Complexity++
		}
	}
	return p
}
