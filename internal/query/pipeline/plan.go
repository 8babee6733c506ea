// Package pipeline synthesizes store-agnostic execution plans from query contexts.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

var ErrInvalidPlan = errors.New("INVALID_EXECUTION_PLAN")

// StageKind is one operation in the stage vocabulary.
type StageKind string

const (
	StageJoin    StageKind = "join"
	StageFlatten StageKind = "flatten"
	StageCoerce  StageKind = "coerce_types"
	StageFilter  StageKind = "filter"
	StageGroup   StageKind = "group"
	StageSort    StageKind = "sort"
	StageLimit   StageKind = "limit"
	StageProject StageKind = "project"
)

// GroupKeyField is the output key holding the group value.
const GroupKeyField = "_id"

// Accumulator computes one value per group. Count ignores Field.
type Accumulator struct {
	Name  string                 `json:"name"`
	Op    models.AggregationType `json:"op"`
	Field string                 `json:"field,omitempty"`
}

// Stage is a single pipeline step; only the members for its Kind are set.
type Stage struct {
	Kind         StageKind               `json:"kind"`
	Collection   querycontext.Collection `json:"collection,omitempty"`
	Fields       []string                `json:"fields,omitempty"`
	Conditions   []models.Condition      `json:"conditions,omitempty"`
	GroupKey     string                  `json:"group_key,omitempty"`
	Accumulators []Accumulator           `json:"accumulators,omitempty"`
	SortField    string                  `json:"sort_field,omitempty"`
	Direction    models.SortDirection    `json:"direction,omitempty"`
	Limit        int                     `json:"limit,omitempty"`
}

func (s Stage) String() string {
	switch s.Kind {
	case StageJoin, StageFlatten:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Collection)
	case StageCoerce, StageProject:
		return fmt.Sprintf("%s(%s)", s.Kind, strings.Join(s.Fields, ","))
	case StageFilter:
		parts := make([]string, len(s.Conditions))
		for i, c := range s.Conditions {
			parts[i] = c.String()
		}
		return fmt.Sprintf("filter(%s)", strings.Join(parts, " AND "))
	case StageGroup:
		names := make([]string, len(s.Accumulators))
		for i, a := range s.Accumulators {
			names[i] = a.Name
		}
		return fmt.Sprintf("group(%s: %s)", s.GroupKey, strings.Join(names, ","))
	case StageSort:
		return fmt.Sprintf("sort(%s %s)", s.SortField, s.Direction)
	case StageLimit:
		return fmt.Sprintf("limit(%d)", s.Limit)
	}
	return string(s.Kind)
}

// ExecutionPlan is the ordered stage list run against the base collection.
type ExecutionPlan struct {
	Base      querycontext.Collection `json:"base"`
	QueryType models.QueryType        `json:"query_type"`
	Stages    []Stage                 `json:"stages"`
}

// IsAggregation reports whether the plan contains a group stage.
func (p *ExecutionPlan) IsAggregation() bool {
	return p.index(StageGroup) >= 0
}

// Limit returns the limit stage value, or 0.
func (p *ExecutionPlan) Limit() int {
	if i := p.index(StageLimit); i >= 0 {
		return p.Stages[i].Limit
	}
	return 0
}

// Find returns the first stage of a kind.
func (p *ExecutionPlan) Find(kind StageKind) (Stage, bool) {
	if i := p.index(kind); i >= 0 {
		return p.Stages[i], true
	}
	return Stage{}, false
}

// Count returns how many stages of a kind the plan has.
func (p *ExecutionPlan) Count(kind StageKind) int {
	n := 0
	for _, s := range p.Stages {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Joined lists the joined collections in plan order.
func (p *ExecutionPlan) Joined() []querycontext.Collection {
	var out []querycontext.Collection
	for _, s := range p.Stages {
		if s.Kind == StageJoin {
			out = append(out, s.Collection)
		}
	}
	return out
}

func (p *ExecutionPlan) String() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.String()
	}
	return string(p.Base) + ": " + strings.Join(parts, " -> ")
}

func (p *ExecutionPlan) index(kind StageKind) int {
	for i, s := range p.Stages {
		if s.Kind == kind {
			return i
		}
	}
	return -1
}

// Validate checks stage ordering: every join is immediately followed by its
// flatten, no stage touches a collection's fields before it is flattened, and
// a single group precedes any sort or limit.
func (p *ExecutionPlan) Validate() error {
	flattened := map[querycontext.Collection]bool{p.Base: true}
	groupAt := -1

	for i, s := range p.Stages {
		switch s.Kind {
		case StageJoin:
			if i+1 >= len(p.Stages) || p.Stages[i+1].Kind != StageFlatten || p.Stages[i+1].Collection != s.Collection {
				return fmt.Errorf("%w: join(%s) at %d is not followed by flatten(%s)", ErrInvalidPlan, s.Collection, i, s.Collection)
			}
		case StageFlatten:
			if i == 0 || p.Stages[i-1].Kind != StageJoin || p.Stages[i-1].Collection != s.Collection {
				return fmt.Errorf("%w: flatten(%s) at %d has no preceding join", ErrInvalidPlan, s.Collection, i)
			}
			flattened[s.Collection] = true
		case StageGroup:
			if groupAt >= 0 {
				return fmt.Errorf("%w: more than one group stage", ErrInvalidPlan)
			}
			groupAt = i
		}

		for _, f := range s.referencedFields() {
			c := collectionOf(f)
			if c != "" && !flattened[c] {
				return fmt.Errorf("%w: stage %d references %s before flatten(%s)", ErrInvalidPlan, i, f, c)
			}
		}
	}

	if groupAt >= 0 {
		for i, s := range p.Stages {
			if (s.Kind == StageSort || s.Kind == StageLimit) && i < groupAt {
				return fmt.Errorf("%w: %s at %d precedes group", ErrInvalidPlan, s.Kind, i)
			}
		}
	}
	return nil
}

func (s Stage) referencedFields() []string {
	var out []string
	switch s.Kind {
	case StageCoerce, StageProject:
		out = append(out, s.Fields...)
	case StageFilter:
		for _, c := range s.Conditions {
			out = append(out, c.Field)
		}
	case StageGroup:
		if s.GroupKey != "" {
			out = append(out, s.GroupKey)
		}
		for _, a := range s.Accumulators {
			if a.Field != "" {
				out = append(out, a.Field)
			}
		}
	}
	return out
}

// collectionOf returns the joined collection prefix of a qualified path.
func collectionOf(path string) querycontext.Collection {
	i := strings.IndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return querycontext.Collection(path[:i])
}

// OutputName is the flat key a projected path is written under.
func OutputName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
