package response

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
)

const maxListed = 10

// Template renders the deterministic answer for an intent.
func (f *Formatter) Template(query string, intent *models.QueryIntent, result *models.QueryResult) string {
	if result == nil || (result.Count == 0 && len(result.Rows) == 0) {
		return f.zeroResult(query, intent)
	}

	switch intent.QueryType {
	case models.QueryTypeCount:
		return fmt.Sprintf("Found %d employees matching your criteria.", result.Count)
	case models.QueryTypeRanking:
		return rankingText(intent, result)
	case models.QueryTypeComparison:
		return comparisonText(result)
	case models.QueryTypeAnalytics:
		return analyticsText(result)
	}
	return listText(result)
}

func rankingText(intent *models.QueryIntent, result *models.QueryResult) string {
	metric := rankingMetric(intent)
	lines := []string{"Top Results:"}
	for i, row := range head(result.Rows, maxListed) {
		line := fmt.Sprintf("%d. %s (%s)", i+1, displayName(row), text(row["department"]))
		if metric != "" {
			line += fmt.Sprintf(" – %s: %s", label(metric), number(row[metric]))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func rankingMetric(intent *models.QueryIntent) string {
	e := intent.Entities
	if e.Sort != nil && e.Sort.Field != "" {
		return e.Sort.Field
	}
	if e.AggregationField != "" {
		return e.AggregationField
	}
	return "performance_rating"
}

func comparisonText(result *models.QueryResult) string {
	lines := []string{"Comparison Results:"}
	for _, group := range result.Aggregates {
		name := text(group[pipeline.GroupKeyField])
		lines = append(lines, fmt.Sprintf("• %s: %s employees", name, number(group["count"])))
		for _, key := range statKeys(group) {
			lines = append(lines, fmt.Sprintf("  - %s: %s", statLabel(key), number(group[key])))
		}
	}
	return strings.Join(lines, "\n")
}

func analyticsText(result *models.QueryResult) string {
	lines := []string{"Analytics Summary:", fmt.Sprintf("• Total: %d employees", result.Count)}
	for _, group := range result.Aggregates {
		for _, key := range statKeys(group) {
			lines = append(lines, fmt.Sprintf("• %s: %s", statLabel(key), number(group[key])))
		}
	}
	return strings.Join(lines, "\n")
}

func listText(result *models.QueryResult) string {
	lines := []string{fmt.Sprintf("Found %d employees matching your criteria.", result.Count)}
	rows := head(result.Rows, maxListed)
	for i, row := range rows {
		line := fmt.Sprintf("%d. %s", i+1, displayName(row))
		var detail []string
		for _, k := range []string{"role", "department", "location"} {
			if s := text(row[k]); s != "" && s != "Unknown" {
				detail = append(detail, s)
			}
		}
		if len(detail) > 0 {
			line += " (" + strings.Join(detail, ", ") + ")"
		}
		lines = append(lines, line)
	}
	if len(result.Rows) > len(rows) {
		lines = append(lines, fmt.Sprintf("...and %d more. Use more specific queries for detailed information.", len(result.Rows)-len(rows)))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) zeroResult(query string, intent *models.QueryIntent) string {
	msg := "I'm sorry, no employees found matching your criteria. Try adjusting your search parameters."
	alts := f.alternatives(query, intent, 3)
	if len(alts) == 0 {
		return msg
	}
	lines := []string{msg, "", "You could try:"}
	for _, a := range alts {
		lines = append(lines, "• "+a)
	}
	return strings.Join(lines, "\n")
}

// statKeys returns the accumulator keys of a group other than the key and count.
func statKeys(group models.Row) []string {
	var keys []string
	for k := range group {
		if k == pipeline.GroupKeyField || k == "count" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if rank(keys[i]) != rank(keys[j]) {
			return rank(keys[i]) < rank(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func rank(key string) int {
	switch {
	case strings.HasPrefix(key, "avg_"):
		return 0
	case strings.HasPrefix(key, "sum_"):
		return 1
	case strings.HasPrefix(key, "max_"):
		return 2
	case strings.HasPrefix(key, "min_"):
		return 3
	}
	return 4
}

var opLabels = map[string]string{"avg": "Average", "sum": "Total", "max": "Maximum", "min": "Minimum"}

// statLabel turns "avg_current_salary" into "Average Current Salary".
func statLabel(key string) string {
	op, field, ok := strings.Cut(key, "_")
	if l, known := opLabels[op]; ok && known {
		return l + " " + label(field)
	}
	return label(key)
}

func label(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		switch w {
		case "pct":
			words[i] = "%"
		case "ctc", "kpis", "ytd":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// displayName prefers the full name and falls back to the employee id.
func displayName(row models.Row) string {
	if name := text(row["full_name"]); name != "Unknown" {
		return name
	}
	return text(row["employee_id"])
}

func text(v interface{}) string {
	if v == nil {
		return "Unknown"
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "Unknown"
	}
	return s
}

// number formats numeric values with thousands separators and at most two decimals.
func number(v interface{}) string {
	f, ok := pipeline.CoerceNumber(v), isNumeric(v)
	if !ok {
		return text(v)
	}
	if f == math.Trunc(f) {
		return thousands(strconv.FormatFloat(f, 'f', 0, 64))
	}
	return thousands(strconv.FormatFloat(f, 'f', 2, 64))
}

func isNumeric(v interface{}) bool {
	switch t := v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return err == nil
	}
	return false
}

func thousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}

func head(rows []models.Row, n int) []models.Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
