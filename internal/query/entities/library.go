// Package entities holds the static HR vocabulary used to recognize
// departments, roles, skills and locations inside free text.
package entities

import (
	"regexp"
	"sort"
	"strings"
)

// Library is read-only after construction and safe for concurrent use.
type Library struct {
	departments []string
	roles       []string
	skills      []string
	locations   []string

	deptAbbrev map[string]string
	skillSyn   map[string]string
	roleSyn    map[string]string
	locSyn     map[string]string
	termSyn    map[string]string
	plurals    map[string]string

	matchers map[string]*regexp.Regexp
	known    map[string]map[string]string // kind -> lower(term) -> canonical
}

const (
	KindDepartment = "department"
	KindRole       = "role"
	KindSkill      = "skill"
	KindLocation   = "location"
)

// caseSensitive terms collide with ordinary English words when lower-cased.
var caseSensitive = map[string]bool{"IT": true, "AI": true, "US": true}

// Definition is the raw vocabulary a Library is built from.
type Definition struct {
	Departments   []string          `yaml:"departments"`
	Roles         []string          `yaml:"roles"`
	Skills        []string          `yaml:"skills"`
	Locations     []string          `yaml:"locations"`
	Abbreviations map[string]string `yaml:"abbreviations"`
	SkillSynonyms map[string]string `yaml:"skill_synonyms"`
	RoleSynonyms  map[string]string `yaml:"role_synonyms"`
	LocationAlias map[string]string `yaml:"location_aliases"`
	TermSynonyms  map[string]string `yaml:"term_synonyms"`
	Plurals       map[string]string `yaml:"plurals"`
}

// DefaultDefinition returns the built-in vocabulary.
func DefaultDefinition() Definition {
	return Definition{
		Departments: []string{"Sales", "IT", "Operations", "HR", "Finance", "Legal", "Engineering", "Marketing", "Support", "Development"},
		Roles:       []string{"Developer", "Director", "Manager", "Analyst", "Engineer", "Lead", "Consultant", "Specialist", "Architect", "Principal"},
		Skills: []string{"PMP", "GCP", "AWS", "Azure", "Python", "Java", "JavaScript", "SQL", "Docker",
			"Kubernetes", "React", "Angular", "Node.js", "Machine Learning", "Data Science", "AI", "Analytics"},
		Locations: []string{"Offshore", "Onshore", "Remote", "Chennai", "Hyderabad", "Bangalore", "Mumbai", "New York", "California", "India", "USA"},
		Abbreviations: map[string]string{
			"hr": "HR", "tech": "IT", "technology": "IT", "ops": "Operations",
			"eng": "Engineering", "mktg": "Marketing", "fin": "Finance",
		},
		SkillSynonyms: map[string]string{
			"ml": "Machine Learning", "js": "JavaScript", "node": "Node.js", "k8s": "Kubernetes",
			"artificial intelligence": "AI",
		},
		RoleSynonyms: map[string]string{
			"dev": "Developer", "devs": "Developer", "mgr": "Manager", "mgrs": "Manager", "programmer": "Developer",
		},
		LocationAlias: map[string]string{"united states": "USA", "bengaluru": "Bangalore", "ny": "New York", "wfh": "Remote"},
		TermSynonyms: map[string]string{
			"devs": "developers", "dev": "developer", "mgr": "manager", "mgrs": "managers",
			"sr": "senior", "jr": "junior", "ml": "machine learning", "js": "javascript",
			"perf": "performance", "exp": "experience", "dept": "department", "k8s": "kubernetes",
		},
		Plurals: map[string]string{
			"developers": "developer", "directors": "director", "managers": "manager", "analysts": "analyst",
			"engineers": "engineer", "leads": "lead", "consultants": "consultant", "specialists": "specialist",
			"architects": "architect", "principals": "principal", "employees": "employee", "people": "person",
			"staff": "staff",
		},
	}
}

// Default returns a Library over the built-in vocabulary.
func Default() *Library {
	return New(DefaultDefinition())
}

// New compiles a Library from a definition.
func New(def Definition) *Library {
	l := &Library{
		departments: dedupe(def.Departments),
		roles:       dedupe(def.Roles),
		skills:      dedupe(def.Skills),
		locations:   dedupe(def.Locations),
		deptAbbrev:  lowerKeys(def.Abbreviations),
		skillSyn:    lowerKeys(def.SkillSynonyms),
		roleSyn:     lowerKeys(def.RoleSynonyms),
		locSyn:      lowerKeys(def.LocationAlias),
		termSyn:     lowerKeys(def.TermSynonyms),
		plurals:     lowerKeys(def.Plurals),
		matchers:    make(map[string]*regexp.Regexp),
		known:       make(map[string]map[string]string),
	}

	l.index(KindDepartment, l.departments, false)
	l.index(KindRole, l.roles, true)
	l.index(KindSkill, l.skills, false)
	l.index(KindLocation, l.locations, false)
	for _, syn := range []map[string]string{l.deptAbbrev, l.skillSyn, l.roleSyn, l.locSyn} {
		for k := range syn {
			l.compile(k, false)
		}
	}
	return l
}

func (l *Library) index(kind string, terms []string, plural bool) {
	m := make(map[string]string, len(terms))
	for _, t := range terms {
		m[strings.ToLower(t)] = t
		l.compile(t, plural)
	}
	l.known[kind] = m
}

func (l *Library) compile(term string, plural bool) {
	if _, ok := l.matchers[term]; ok {
		return
	}
	pattern := regexp.QuoteMeta(term)
	if plural {
		pattern += `(?:s|es)?`
	}
	pattern = `\b` + pattern + `\b`
	if !caseSensitive[term] {
		pattern = `(?i)` + pattern
	}
	l.matchers[term] = regexp.MustCompile(pattern)
}

func (l *Library) Departments() []string { return append([]string(nil), l.departments...) }
func (l *Library) Roles() []string       { return append([]string(nil), l.roles...) }
func (l *Library) Skills() []string      { return append([]string(nil), l.skills...) }
func (l *Library) Locations() []string   { return append([]string(nil), l.locations...) }

func (l *Library) IsKnownDepartment(s string) bool { return l.isKnown(KindDepartment, s) }
func (l *Library) IsKnownRole(s string) bool       { return l.isKnown(KindRole, l.Singular(s)) }
func (l *Library) IsKnownSkill(s string) bool      { return l.isKnown(KindSkill, s) }
func (l *Library) IsKnownLocation(s string) bool   { return l.isKnown(KindLocation, s) }

// Canonical returns the library spelling of a term of the given kind.
func (l *Library) Canonical(kind, s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if kind == KindRole {
		key = l.Singular(key)
	}
	if v, ok := l.known[kind][key]; ok {
		return v, true
	}
	var syn map[string]string
	switch kind {
	case KindDepartment:
		syn = l.deptAbbrev
	case KindRole:
		syn = l.roleSyn
	case KindSkill:
		syn = l.skillSyn
	case KindLocation:
		syn = l.locSyn
	}
	if v, ok := syn[key]; ok {
		return v, true
	}
	return "", false
}

func (l *Library) isKnown(kind, s string) bool {
	_, ok := l.Canonical(kind, s)
	return ok
}

// FindDepartments returns every department mentioned in text, in library order.
func (l *Library) FindDepartments(text string) []string {
	return l.find(text, l.departments, l.deptAbbrev)
}

// FindRoles matches singular and plural role names.
func (l *Library) FindRoles(text string) []string {
	return l.find(text, l.roles, l.roleSyn)
}

func (l *Library) FindSkills(text string) []string {
	return l.find(text, l.skills, l.skillSyn)
}

func (l *Library) FindLocations(text string) []string {
	return l.find(text, l.locations, l.locSyn)
}

func (l *Library) find(text string, terms []string, synonyms map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range terms {
		if l.matchers[t].MatchString(text) && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		canonical := synonyms[k]
		if !seen[canonical] && l.matchers[k].MatchString(text) {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	return out
}

// Singular maps a plural HR noun to its singular form.
func (l *Library) Singular(word string) string {
	w := strings.ToLower(word)
	if s, ok := l.plurals[w]; ok {
		return s
	}
	if _, ok := l.known[KindRole][w]; ok {
		return w
	}
	if strings.HasSuffix(w, "es") {
		if _, ok := l.known[KindRole][strings.TrimSuffix(w, "es")]; ok {
			return strings.TrimSuffix(w, "es")
		}
	}
	if strings.HasSuffix(w, "s") {
		if _, ok := l.known[KindRole][strings.TrimSuffix(w, "s")]; ok {
			return strings.TrimSuffix(w, "s")
		}
	}
	return w
}

// KnownTerms lists every canonical term across all kinds, sorted.
func (l *Library) KnownTerms() []string {
	var out []string
	for _, group := range [][]string{l.departments, l.roles, l.skills, l.locations} {
		out = append(out, group...)
	}
	sort.Strings(out)
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
