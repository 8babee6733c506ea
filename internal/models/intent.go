package models

import (
	"fmt"
	"strings"
)

// Range is an inclusive numeric bound; either end may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AtLeast returns a range with only a lower bound.
func AtLeast(v float64) *Range { return &Range{Min: &v} }

// AtMost returns a range with only an upper bound.
func AtMost(v float64) *Range { return &Range{Max: &v} }

// Between returns a closed range.
func Between(min, max float64) *Range { return &Range{Min: &min, Max: &max} }

// IsZero reports whether neither bound is set.
func (r *Range) IsZero() bool { return r == nil || (r.Min == nil && r.Max == nil) }

func (r *Range) String() string {
	if r.IsZero() {
		return ""
	}
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%g-%g", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf(">=%g", *r.Min)
	default:
		return fmt.Sprintf("<=%g", *r.Max)
	}
}

// SortSpec orders row-style results.
type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Level is a qualitative threshold keyword such as "high" or "low".
type Level string

const (
	LevelNone    Level = ""
	LevelHigh    Level = "high"
	LevelLow     Level = "low"
	LevelMaximum Level = "maximum"
	LevelMinimum Level = "minimum"
)

// ParseLevel accepts the qualitative threshold keywords.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(s)) {
	case LevelNone, LevelHigh, LevelLow, LevelMaximum, LevelMinimum:
		return Level(strings.ToLower(s)), nil
	case "max", "most":
		return LevelMaximum, nil
	case "min", "least":
		return LevelMinimum, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Entities is the closed set of structured values extracted from a query.
type Entities struct {
	Departments []string `json:"departments,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Locations   []string `json:"locations,omitempty"`

	Experience     *Range `json:"experience,omitempty"`
	Performance    *Range `json:"performance,omitempty"`
	Age            *Range `json:"age,omitempty"`
	LeaveThreshold *Range `json:"leave_threshold,omitempty"`

	LeavePattern     Level `json:"leave_pattern,omitempty"`
	PerformanceLevel Level `json:"performance_level,omitempty"`
	EngagementLevel  Level `json:"engagement_level,omitempty"`

	AggregationType  AggregationType `json:"aggregation_type,omitempty"`
	AggregationField string          `json:"aggregation_field,omitempty"`
	GroupBy          string          `json:"group_by,omitempty"`

	Sort   *SortSpec `json:"sort,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Fields []string  `json:"fields,omitempty"`
}

// HasCategorical reports whether any department, role, skill or location was found.
func (e Entities) HasCategorical() bool {
	return len(e.Departments) > 0 || len(e.Roles) > 0 || len(e.Skills) > 0 || len(e.Locations) > 0
}

// HasStructured reports whether numeric or threshold filters were found.
func (e Entities) HasStructured() bool {
	return !e.Experience.IsZero() || !e.Performance.IsZero() || !e.Age.IsZero() ||
		!e.LeaveThreshold.IsZero() || e.LeavePattern != LevelNone ||
		e.PerformanceLevel != LevelNone || e.EngagementLevel != LevelNone
}

// IsEmpty reports whether nothing was extracted.
func (e Entities) IsEmpty() bool {
	return !e.HasCategorical() && !e.HasStructured() && e.AggregationType == AggregationNone &&
		e.Sort == nil && e.Limit == 0 && len(e.Fields) == 0
}

// Clone returns a deep copy.
func (e Entities) Clone() Entities {
	out := e
	out.Departments = cloneStrings(e.Departments)
	out.Roles = cloneStrings(e.Roles)
	out.Skills = cloneStrings(e.Skills)
	out.Locations = cloneStrings(e.Locations)
	out.Fields = cloneStrings(e.Fields)
	out.Experience = cloneRange(e.Experience)
	out.Performance = cloneRange(e.Performance)
	out.Age = cloneRange(e.Age)
	out.LeaveThreshold = cloneRange(e.LeaveThreshold)
	if e.Sort != nil {
		s := *e.Sort
		out.Sort = &s
	}
	return out
}

// QueryIntent is the classifier output for one query. It is not mutated after construction.
type QueryIntent struct {
	QueryType  QueryType  `json:"query_type"`
	DataSource DataSource `json:"data_source"`
	Confidence float64    `json:"confidence"`
	Entities   Entities   `json:"entities"`
	// Strategy names the classifier that produced the intent ("llm" or "keyword").
	Strategy string `json:"strategy,omitempty"`
}

// NewQueryIntent validates and builds an intent.
func NewQueryIntent(qt QueryType, ds DataSource, confidence float64, entities Entities, strategy string) (*QueryIntent, error) {
	if _, ok := queryTypes[qt]; !ok {
		return nil, fmt.Errorf("unknown query type %q", qt)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range [0,1]", confidence)
	}
	return &QueryIntent{
		QueryType:  qt,
		DataSource: ds,
		Confidence: confidence,
		Entities:   entities.Clone(),
		Strategy:   strategy,
	}, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRange(r *Range) *Range {
	if r == nil {
		return nil
	}
	out := &Range{}
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	return out
}
