package engine

import (
	"context"
	"fmt"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/router"
)

// fallback answers with keyword classification, a plan over one collection
// and a template response. It uses no completion service and no ranked search.
func (e *Engine) fallback(ctx context.Context, text string, filters map[string]interface{}) (*models.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.FallbackTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "hr.fallback")
	defer span.End()

	qi, err := e.keyword.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	qi, err = e.applyFilters(qi, filters)
	if err != nil {
		return nil, err
	}
	qi, err = models.NewQueryIntent(qi.QueryType, models.DataSourceFallbackEngine, e.config.FallbackConfidence, qi.Entities, qi.Strategy)
	if err != nil {
		return nil, err
	}

	qc := e.builder.Build(qi)
	plan, dropped := e.fallbackPlan(qc)
	if len(dropped) > 0 {
		e.logger.Warn("fallback plan ignores conditions outside its collection", map[string]interface{}{
			"collection": plan.Base,
			"dropped":    dropped,
		})
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	result, err := e.fallbackStore.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("%w: fallback engine: %v", router.ErrPipelineExecution, err)
	}
	result.Source = models.DataSourceFallbackEngine

	env := envelope(text, qi, result, e.formatter.Template(text, qi, result), models.StatusSuccessFallback)
	env.DataSource = models.DataSourceFallbackEngine
	env.Suggestions = e.formatter.Suggestions(text, qi)

	e.logger.Info("fallback engine answered", map[string]interface{}{
		"intent":     qi.QueryType,
		"collection": plan.Base,
		"count":      result.Count,
	})
	return env, nil
}

// fallbackPlan targets the collection owning most of the conditions and keeps
// only the conditions and fields that live there. It returns the dropped
// condition fields.
func (e *Engine) fallbackPlan(qc *querycontext.QueryContext) (*pipeline.ExecutionPlan, []string) {
	conds := qc.MatchConditions()
	base := owningCollection(conds)

	var kept []models.Condition
	var dropped []string
	for _, c := range conds {
		if owner, _ := querycontext.Lookup(c.Field); owner == base {
			kept = append(kept, c)
		} else {
			dropped = append(dropped, c.Field)
		}
	}

	local := func(field string) bool {
		owner, ok := querycontext.Lookup(field)
		return ok && owner == base
	}

	var numeric []string
	seen := map[string]bool{}
	addNumeric := func(field string) {
		if field != "" && local(field) && querycontext.IsNumeric(field) && !seen[field] {
			seen[field] = true
			numeric = append(numeric, field)
		}
	}
	for _, c := range kept {
		addNumeric(c.Field)
	}
	addNumeric(qc.AggregationField())
	if s := qc.Sort(); s != nil {
		addNumeric(s.Field)
	}

	plan := &pipeline.ExecutionPlan{Base: base, QueryType: qc.QueryType()}
	if len(numeric) > 0 {
		plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageCoerce, Fields: numeric})
	}
	if len(kept) > 0 {
		plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageFilter, Conditions: kept})
	}

	if qc.IsAggregation() {
		group := pipeline.Stage{
			Kind:         pipeline.StageGroup,
			Accumulators: []pipeline.Accumulator{{Name: "count", Op: models.AggregationCount}},
		}
		if gb := qc.GroupBy(); gb != "" && local(gb) {
			group.GroupKey = gb
		}
		op, field := qc.AggregationType(), qc.AggregationField()
		if op != models.AggregationNone && op != models.AggregationCount && local(field) && querycontext.IsNumeric(field) {
			group.Accumulators = append(group.Accumulators, pipeline.Accumulator{
				Name: pipeline.AccumulatorName(op, field), Op: op, Field: field,
			})
		}
		plan.Stages = append(plan.Stages, group)
		if group.GroupKey != "" {
			plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageSort, SortField: pipeline.GroupKeyField, Direction: models.SortAsc})
		}
		return plan, dropped
	}

	fields := []string{querycontext.KeyField}
	if base == querycontext.BaseCollection {
		fields = append(fields, querycontext.NameField)
	}
	for _, f := range qc.FieldsToAnalyze() {
		if local(f) && f != querycontext.KeyField && f != querycontext.NameField {
			fields = append(fields, f)
		}
	}
	plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageProject, Fields: fields})

	if s := qc.Sort(); s != nil && local(s.Field) {
		plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageSort, SortField: s.Field, Direction: s.Direction})
	}
	limit := e.config.FallbackLimit
	if l := qc.Limit(); l > 0 && l < limit {
		limit = l
	}
	plan.Stages = append(plan.Stages, pipeline.Stage{Kind: pipeline.StageLimit, Limit: limit})
	return plan, dropped
}

// owningCollection picks the collection holding the most condition fields,
// preferring the earlier collection on ties.
func owningCollection(conds []models.Condition) querycontext.Collection {
	counts := map[querycontext.Collection]int{}
	for _, c := range conds {
		if owner, ok := querycontext.Lookup(c.Field); ok {
			counts[owner]++
		}
	}
	best, bestN := querycontext.BaseCollection, 0
	for _, c := range querycontext.Collections() {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}
