package intent

import (
	"regexp"
	"strconv"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
)

var (
	limitRe = regexp.MustCompile(`\b(?:top|bottom|first|last|best|worst|show|list|limit)\s+(\d{1,4})\b`)

	rangeBetweenRe = `\bbetween\s+(\d+(?:\.\d+)?)\s+(?:and|to|-)\s+(\d+(?:\.\d+)?)\s*`
	lowerWords     = `(?:more than|over|above|at least|greater than|minimum of|min|>=|>)`
	upperWords     = `(?:less than|under|below|at most|fewer than|maximum of|max|<=|<)`

	expBetweenRe = regexp.MustCompile(rangeBetweenRe + `years?`)
	expMinRe     = regexp.MustCompile(lowerWords + `\s*(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)
	expMaxRe     = regexp.MustCompile(upperWords + `\s*(\d+(?:\.\d+)?)\s*(?:years?|yrs?)`)
	expPlusRe    = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*\+\s*(?:years?|yrs?)`)

	ageMinRe     = regexp.MustCompile(`\b(?:aged?\s+` + lowerWords + `|older than)\s*(\d{2})\b`)
	ageMaxRe     = regexp.MustCompile(`\b(?:aged?\s+` + upperWords + `|younger than)\s*(\d{2})\b`)
	ageBetweenRe = regexp.MustCompile(`\baged?\s+` + rangeBetweenRe)

	perfMinRe = regexp.MustCompile(`\b(?:rating|rated|performance(?: rating)?)\s+(?:of\s+)?` + lowerWords + `\s*(\d(?:\.\d+)?)`)
	perfMaxRe = regexp.MustCompile(`\b(?:rating|rated|performance(?: rating)?)\s+(?:of\s+)?` + upperWords + `\s*(\d(?:\.\d+)?)`)

	leaveDaysMinRe = regexp.MustCompile(lowerWords + `\s*(\d+)\s*(?:leave\s+)?days?(?:\s+(?:of\s+)?leave)?`)
	leaveDaysMaxRe = regexp.MustCompile(upperWords + `\s*(\d+)\s*(?:leave\s+)?days?(?:\s+(?:of\s+)?leave)?`)
)

var leavePatterns = []struct {
	level    models.Level
	keywords []string
}{
	{models.LevelMaximum, []string{"maximum leave", "max leave", "most leave", "most leaves", "maximum leaves", "highest leave"}},
	{models.LevelMinimum, []string{"minimum leave", "min leave", "least leave", "fewest leave", "minimum leaves", "lowest leave"}},
	{models.LevelHigh, []string{"high leave", "frequent leave", "lot of leave", "lots of leave", "many leaves", "excessive leave"}},
}

var performanceLevels = []struct {
	level    models.Level
	keywords []string
}{
	{models.LevelHigh, []string{"high performer", "high performing", "high performance", "strong performer", "star performer"}},
	{models.LevelLow, []string{"low performer", "poor performer", "low performance", "underperform", "low performing"}},
}

var engagementLevels = []struct {
	level    models.Level
	keywords []string
}{
	{models.LevelLow, []string{"low engagement", "disengaged", "poorly engaged", "not engaged", "less engaged"}},
	{models.LevelHigh, []string{"high engagement", "highly engaged", "well engaged", "most engaged"}},
}

// metricFields maps query words to the numeric field they refer to, checked in order.
var metricFields = []struct {
	keyword string
	field   string
}{
	{"perform", "performance_rating"},
	{"rating", "performance_rating"},
	{"kpi", "kpis_met_pct"},
	{"salary", "current_salary"},
	{"salaries", "current_salary"},
	{"ctc", "total_ctc"},
	{"compensation", "total_ctc"},
	{"bonus", "bonus"},
	{"paid", "current_salary"},
	{"experience", "total_experience_years"},
	{"tenure", "years_in_current_company"},
	{"leave", "leave_days_taken"},
	{"absen", "leave_days_taken"},
	{"attendance", "monthly_attendance_pct"},
	{"engage", "engagement_score"},
	{"bench", "days_on_bench"},
	{"attrition", "attrition_risk_score"},
	{"risk", "attrition_risk_score"},
	{"learning", "learning_hours_ytd"},
	{"training", "learning_hours_ytd"},
	{"course", "courses_completed"},
	{"skills count", "known_skills_count"},
	{"age", "age"},
	{"oldest", "age"},
	{"youngest", "age"},
}

var ascendingWords = []string{"bottom", "lowest", "worst", "least", "minimum", "fewest", "youngest", "poorest"}

// Extractor pulls structured entities out of query text.
type Extractor struct {
	library *entities.Library
}

func NewExtractor(library *entities.Library) *Extractor {
	return &Extractor{library: library}
}

// Extract returns every entity the text mentions; it never fails.
func (e *Extractor) Extract(query string) models.Entities {
	lower := strings.ToLower(query)

	ents := models.Entities{
		Departments: e.library.FindDepartments(query),
		Roles:       e.library.FindRoles(query),
		Skills:      e.library.FindSkills(query),
		Locations:   e.library.FindLocations(query),
	}

	if m := limitRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			ents.Limit = n
		}
	}

	ents.Experience = extractRange(lower, expBetweenRe, expMinRe, expMaxRe)
	if ents.Experience == nil {
		if m := expPlusRe.FindStringSubmatch(lower); m != nil {
			ents.Experience = models.AtLeast(parseFloat(m[1]))
		}
	}
	ents.Age = extractRange(lower, ageBetweenRe, ageMinRe, ageMaxRe)
	ents.Performance = extractRange(lower, nil, perfMinRe, perfMaxRe)
	if strings.Contains(lower, "leave") || strings.Contains(lower, "absen") {
		ents.LeaveThreshold = extractRange(lower, nil, leaveDaysMinRe, leaveDaysMaxRe)
	}

	ents.LeavePattern = matchLevel(lower, leavePatterns)
	ents.PerformanceLevel = matchLevel(lower, performanceLevels)
	ents.EngagementLevel = matchLevel(lower, engagementLevels)

	if field := InferMetricField(lower); field != "" {
		ents.Fields = []string{field}
	}

	return ents
}

// InferMetricField returns the numeric field a query talks about, or "".
func InferMetricField(lower string) string {
	tokens := words(lower)
	for _, m := range metricFields {
		if strings.Contains(m.keyword, " ") {
			if strings.Contains(lower, m.keyword) {
				return m.field
			}
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(tok, m.keyword) {
				return m.field
			}
		}
	}
	return ""
}

// InferDirection returns ascending for "bottom/lowest/worst..." phrasing.
func InferDirection(lower string) models.SortDirection {
	for _, w := range ascendingWords {
		if containsWord(lower, w) {
			return models.SortAsc
		}
	}
	return models.SortDesc
}

func extractRange(text string, between, min, max *regexp.Regexp) *models.Range {
	if between != nil {
		if m := between.FindStringSubmatch(text); m != nil {
			lo, hi := parseFloat(m[1]), parseFloat(m[2])
			if lo > hi {
				lo, hi = hi, lo
			}
			return models.Between(lo, hi)
		}
	}
	var r models.Range
	if m := min.FindStringSubmatch(text); m != nil {
		v := parseFloat(m[1])
		r.Min = &v
	}
	if m := max.FindStringSubmatch(text); m != nil {
		v := parseFloat(m[1])
		r.Max = &v
	}
	if r.IsZero() {
		return nil
	}
	return &r
}

func matchLevel(text string, table []struct {
	level    models.Level
	keywords []string
}) models.Level {
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.level
			}
		}
	}
	return models.LevelNone
}

func containsWord(text, word string) bool {
	for _, tok := range words(text) {
		if tok == word {
			return true
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
