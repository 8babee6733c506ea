// Package querycontext normalizes a QueryIntent into the fields, collections
// and filters needed to answer it.
package querycontext

import (
	"sort"

	"hr-query-engine/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// displayFields are added to every row-returning query.
var displayFields = []string{"department", "role"}

// QueryContext is frozen once Build returns; use the accessors.
type QueryContext struct {
	queryType        models.QueryType
	collections      []Collection
	conditions       []models.Condition
	fields           []string
	sort             *models.SortSpec
	limit            int
	aggregationType  models.AggregationType
	aggregationField string
	groupBy          string
	droppedFields    []string
	entities         models.Entities
}

func (c *QueryContext) QueryType() models.QueryType { return c.queryType }

// NeededCollections is sorted with the base collection first.
func (c *QueryContext) NeededCollections() []Collection {
	return append([]Collection(nil), c.collections...)
}

func (c *QueryContext) MatchConditions() []models.Condition {
	return append([]models.Condition(nil), c.conditions...)
}

func (c *QueryContext) FieldsToAnalyze() []string { return append([]string(nil), c.fields...) }

func (c *QueryContext) Sort() *models.SortSpec {
	if c.sort == nil {
		return nil
	}
	s := *c.sort
	return &s
}

func (c *QueryContext) Limit() int                              { return c.limit }
func (c *QueryContext) AggregationType() models.AggregationType { return c.aggregationType }
func (c *QueryContext) AggregationField() string                { return c.aggregationField }
func (c *QueryContext) GroupBy() string                         { return c.groupBy }
func (c *QueryContext) DroppedFields() []string                 { return append([]string(nil), c.droppedFields...) }
func (c *QueryContext) Entities() models.Entities               { return c.entities.Clone() }

// IsAggregation reports whether the answer is produced by a group stage.
func (c *QueryContext) IsAggregation() bool { return c.queryType.IsAggregation() }

// NumericFields lists referenced fields that need type coercion, sorted.
func (c *QueryContext) NumericFields() []string {
	set := map[string]bool{}
	for _, cond := range c.conditions {
		if cond.Op.IsNumeric() && IsNumeric(cond.Field) {
			set[cond.Field] = true
		}
	}
	if c.aggregationField != "" && IsNumeric(c.aggregationField) {
		set[c.aggregationField] = true
	}
	if c.sort != nil && IsNumeric(c.sort.Field) {
		set[c.sort.Field] = true
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Builder maps intents to contexts using the field table and threshold policy.
type Builder struct {
	policy ThresholdPolicy
	logger Logger
}

func NewBuilder(policy ThresholdPolicy, log Logger) *Builder {
	return &Builder{
		policy: policy.WithDefaults(),
		logger: log.With(map[string]interface{}{
			"component": "context-builder",
		}),
	}
}

// Policy returns the active thresholds.
func (b *Builder) Policy() ThresholdPolicy { return b.policy }

// Build never fails. Fields the table does not know are dropped with a warning.
func (b *Builder) Build(intent *models.QueryIntent) *QueryContext {
	e := intent.Entities
	qc := &QueryContext{
		queryType:       intent.QueryType,
		limit:           e.Limit,
		aggregationType: e.AggregationType,
		entities:        e.Clone(),
	}

	qc.conditions = b.conditions(e)

	for _, f := range e.Fields {
		b.addField(qc, f)
	}

	if e.AggregationField != "" {
		if _, ok := Lookup(e.AggregationField); ok {
			qc.aggregationField = e.AggregationField
			b.addField(qc, e.AggregationField)
		} else {
			b.drop(qc, e.AggregationField)
		}
	}

	if e.GroupBy != "" {
		if _, ok := Lookup(e.GroupBy); ok {
			qc.groupBy = e.GroupBy
			b.addField(qc, e.GroupBy)
		} else {
			b.drop(qc, e.GroupBy)
		}
	}
	if qc.queryType == models.QueryTypeComparison && qc.groupBy == "" {
		qc.groupBy = "department"
		b.addField(qc, "department")
	}

	if e.Sort != nil {
		if _, ok := Lookup(e.Sort.Field); ok {
			s := *e.Sort
			qc.sort = &s
			b.addField(qc, s.Field)
		} else {
			b.drop(qc, e.Sort.Field)
		}
	}

	if !qc.IsAggregation() {
		for _, f := range displayFields {
			b.addField(qc, f)
		}
	}

	qc.collections = neededCollections(qc)

	b.logger.Info("query context built", map[string]interface{}{
		"queryType":   qc.queryType,
		"collections": qc.collections,
		"conditions":  len(qc.conditions),
		"dropped":     qc.droppedFields,
	})

	return qc
}

func (b *Builder) conditions(e models.Entities) []models.Condition {
	var out []models.Condition

	addList := func(field string, values []string) {
		switch len(values) {
		case 0:
		case 1:
			out = append(out, models.Condition{Field: field, Op: models.OpEq, Value: values[0]})
		default:
			out = append(out, models.Condition{Field: field, Op: models.OpIn, Value: append([]string(nil), values...)})
		}
	}
	addList("department", e.Departments)
	addList("role", e.Roles)
	addList("location", e.Locations)
	for _, skill := range e.Skills {
		out = append(out, models.Condition{Field: "certifications", Op: models.OpContains, Value: skill})
	}

	addRange := func(field string, r *models.Range) {
		if r.IsZero() {
			return
		}
		if r.Min != nil {
			out = append(out, models.Condition{Field: field, Op: models.OpGte, Value: *r.Min})
		}
		if r.Max != nil {
			out = append(out, models.Condition{Field: field, Op: models.OpLte, Value: *r.Max})
		}
	}
	addRange("total_experience_years", e.Experience)
	addRange("performance_rating", e.Performance)
	addRange("age", e.Age)
	addRange("leave_days_taken", e.LeaveThreshold)

	p := b.policy
	switch e.LeavePattern {
	case models.LevelMaximum:
		out = append(out, models.Condition{Field: "leave_days_taken", Op: models.OpGte, Value: p.LeaveMaximum})
	case models.LevelMinimum, models.LevelLow:
		out = append(out, models.Condition{Field: "leave_days_taken", Op: models.OpLte, Value: p.LeaveMinimum})
	case models.LevelHigh:
		out = append(out, models.Condition{Field: "leave_days_taken", Op: models.OpGte, Value: p.LeaveHigh})
	}

	switch e.PerformanceLevel {
	case models.LevelHigh, models.LevelMaximum:
		out = append(out, models.Condition{Field: "performance_rating", Op: models.OpGte, Value: p.PerformanceHigh})
	case models.LevelLow, models.LevelMinimum:
		out = append(out, models.Condition{Field: "performance_rating", Op: models.OpLte, Value: p.PerformanceLow})
	}

	switch e.EngagementLevel {
	case models.LevelHigh, models.LevelMaximum:
		out = append(out, models.Condition{Field: "engagement_score", Op: models.OpGte, Value: p.EngagementHigh})
	case models.LevelLow, models.LevelMinimum:
		out = append(out, models.Condition{Field: "engagement_score", Op: models.OpLte, Value: p.EngagementLow})
	}

	return out
}

func (b *Builder) addField(qc *QueryContext, field string) {
	if _, ok := Lookup(field); !ok {
		b.drop(qc, field)
		return
	}
	for _, f := range qc.fields {
		if f == field {
			return
		}
	}
	qc.fields = append(qc.fields, field)
}

func (b *Builder) drop(qc *QueryContext, field string) {
	for _, f := range qc.droppedFields {
		if f == field {
			return
		}
	}
	qc.droppedFields = append(qc.droppedFields, field)
	b.logger.Warn("dropping unknown analysis field", map[string]interface{}{
		"field": field,
	})
}

func neededCollections(qc *QueryContext) []Collection {
	set := map[Collection]bool{BaseCollection: true}
	for _, cond := range qc.conditions {
		if c, ok := Lookup(cond.Field); ok {
			set[c] = true
		}
	}
	for _, f := range qc.fields {
		if c, ok := Lookup(f); ok {
			set[c] = true
		}
	}

	out := []Collection{BaseCollection}
	var rest []string
	for c := range set {
		if c != BaseCollection {
			rest = append(rest, string(c))
		}
	}
	sort.Strings(rest)
	for _, c := range rest {
		out = append(out, Collection(c))
	}
	return out
}
