package response

import (
	"fmt"
	"regexp"
	"strings"

	"hr-query-engine/internal/models"
)

const maxSuggestions = 5

var wordPattern = regexp.MustCompile(`[A-Za-z]+(?:\.[A-Za-z]+)*`)

// common query words never treated as misspellings
var plainWords = map[string]bool{
	"show": true, "find": true, "list": true, "many": true, "with": true, "from": true, "that": true,
	"have": true, "what": true, "which": true, "work": true, "working": true, "their": true, "than": true,
	"more": true, "less": true, "about": true, "employee": true, "employees": true, "people": true,
	"staff": true, "there": true, "average": true, "highest": true, "lowest": true, "performers": true,
	"performance": true, "salary": true, "leave": true, "years": true, "experience": true, "compare": true,
	"department": true, "departments": true, "rating": true, "skills": true, "certified": true,
	"certification": true, "between": true, "above": true, "below": true, "where": true, "each": true,
	"most": true, "least": true,
}

// alternatives builds up to n rewritten queries for a query that matched nothing.
func (f *Formatter) alternatives(query string, intent *models.QueryIntent, n int) []string {
	var out []string
	add := func(s string) {
		if s == "" || strings.EqualFold(s, query) || len(out) >= n {
			return
		}
		for _, o := range out {
			if o == s {
				return
			}
		}
		out = append(out, s)
	}

	if fixed := f.corrected(query); fixed != "" {
		add(fixed)
	}

	e := intent.Entities
	depts := f.library.Departments()
	for _, d := range e.Departments {
		for _, known := range depts {
			if known != d {
				add(replaceFold(query, d, known))
				break
			}
		}
	}
	for _, s := range e.Skills {
		add(strings.TrimSpace(fmt.Sprintf("Find employees with %s skills", s)))
	}
	if len(e.Roles) > 0 && len(e.Departments) > 0 {
		add(fmt.Sprintf("Find all %ss", e.Roles[0]))
	}
	if e.HasStructured() {
		add("Show all employees in " + firstOr(e.Departments, depts))
	}
	add("How many employees work in each department?")
	return out
}

// corrected returns the query with misspelled words replaced, or "".
func (f *Formatter) corrected(query string) string {
	changed := false
	fixed := wordPattern.ReplaceAllStringFunc(query, func(w string) string {
		lw := strings.ToLower(w)
		if len(lw) < 4 || plainWords[lw] {
			return w
		}
		c := f.library.SuggestCorrections(f.library.Singular(w))
		if len(c) == 0 {
			return w
		}
		changed = true
		return c[0]
	})
	if !changed {
		return ""
	}
	return fixed
}

// Suggestions returns follow-up queries related to the one just answered.
func (f *Formatter) Suggestions(query string, intent *models.QueryIntent) []string {
	if intent == nil {
		return f.defaults()
	}
	e := intent.Entities
	depts := f.library.Departments()
	dept := firstOr(e.Departments, depts)
	other := otherThan(dept, depts)

	var out []string
	switch intent.QueryType {
	case models.QueryTypeCount:
		out = []string{
			fmt.Sprintf("Show top 5 performers in %s", dept),
			fmt.Sprintf("What is the average salary in %s?", dept),
			fmt.Sprintf("Compare %s and %s departments", dept, other),
		}
	case models.QueryTypeRanking:
		out = []string{
			"Show bottom 5 performers",
			"Compare departments by average performance rating",
			fmt.Sprintf("Show top 5 performers in %s", other),
		}
	case models.QueryTypeComparison:
		out = []string{
			"What is the average salary by department?",
			"Which department has the highest engagement score?",
			fmt.Sprintf("How many employees work in %s?", dept),
		}
	case models.QueryTypeAnalytics:
		out = []string{
			"Compare departments by average salary",
			fmt.Sprintf("How many employees work in %s?", dept),
			"Show employees with maximum leave",
		}
	default:
		out = []string{
			fmt.Sprintf("How many employees work in %s?", dept),
			"Show top 5 performers",
			"Find employees with high attrition risk",
		}
	}
	for _, s := range e.Skills {
		out = append(out, fmt.Sprintf("How many employees have %s certification?", s))
	}
	for _, r := range e.Roles {
		out = append(out, fmt.Sprintf("Show %ss with more than 5 years of experience", r))
	}
	out = append(out, f.defaults()...)
	return limitUnique(out, query, maxSuggestions)
}

func (f *Formatter) defaults() []string {
	return []string{
		"How many employees work in each department?",
		"Show top 5 performers",
		"What is the average salary by department?",
		"Find employees with AWS certification",
		"Show employees with maximum leave",
	}
}

func limitUnique(in []string, query string, n int) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}
	out := make([]string, 0, n)
	for _, s := range in {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

func replaceFold(s, old, repl string) string {
	i := strings.Index(strings.ToLower(s), strings.ToLower(old))
	if i < 0 {
		return ""
	}
	return s[:i] + repl + s[i+len(old):]
}

func firstOr(vals, fallback []string) string {
	if len(vals) > 0 {
		return vals[0]
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

func otherThan(v string, vals []string) string {
	for _, o := range vals {
		if o != v {
			return o
		}
	}
	return v
}
