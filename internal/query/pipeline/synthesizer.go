package pipeline

import (
	"fmt"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Synthesizer turns a QueryContext into an ExecutionPlan.
type Synthesizer struct {
	config Config
	logger Logger
}

func NewSynthesizer(config Config, log Logger) *Synthesizer {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = MaxLimit
	}
	if config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = config.MaxLimit
	}
	return &Synthesizer{
		config: config,
		logger: log.With(map[string]interface{}{
			"component": "pipeline-synthesizer",
		}),
	}
}

// Synthesize emits join/flatten pairs in collection order, then coercion,
// filter, and either one group or project/sort/limit.
func (s *Synthesizer) Synthesize(qc *querycontext.QueryContext) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{
		Base:      querycontext.BaseCollection,
		QueryType: qc.QueryType(),
	}

	for _, c := range qc.NeededCollections() {
		if c == querycontext.BaseCollection {
			continue
		}
		plan.Stages = append(plan.Stages,
			Stage{Kind: StageJoin, Collection: c},
			Stage{Kind: StageFlatten, Collection: c},
		)
	}

	if numeric := qc.NumericFields(); len(numeric) > 0 {
		plan.Stages = append(plan.Stages, Stage{Kind: StageCoerce, Fields: qualifyAll(numeric)})
	}

	if conds := qc.MatchConditions(); len(conds) > 0 {
		qualified := make([]models.Condition, len(conds))
		for i, c := range conds {
			c.Field = querycontext.Qualified(c.Field)
			qualified[i] = c
		}
		plan.Stages = append(plan.Stages, Stage{Kind: StageFilter, Conditions: qualified})
	}

	if qc.IsAggregation() {
		plan.Stages = append(plan.Stages, s.groupStages(qc)...)
	} else {
		plan.Stages = append(plan.Stages, s.rowStages(qc)...)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("execution plan synthesized", map[string]interface{}{
		"queryType": plan.QueryType,
		"stages":    len(plan.Stages),
		"plan":      plan.String(),
	})
	return plan, nil
}

func (s *Synthesizer) groupStages(qc *querycontext.QueryContext) []Stage {
	group := Stage{Kind: StageGroup}
	if qc.GroupBy() != "" {
		group.GroupKey = querycontext.Qualified(qc.GroupBy())
	}
	group.Accumulators = []Accumulator{{Name: "count", Op: models.AggregationCount}}

	field := qc.AggregationField()
	numeric := field != "" && querycontext.IsNumeric(field)
	qualified := querycontext.Qualified(field)

	switch {
	case qc.QueryType() == models.QueryTypeComparison && numeric:
		for _, op := range []models.AggregationType{models.AggregationAvg, models.AggregationMax, models.AggregationMin} {
			group.Accumulators = append(group.Accumulators, Accumulator{Name: AccumulatorName(op, field), Op: op, Field: qualified})
		}
	case qc.AggregationType() != models.AggregationCount && qc.AggregationType() != models.AggregationNone && numeric:
		op := qc.AggregationType()
		group.Accumulators = append(group.Accumulators, Accumulator{Name: AccumulatorName(op, field), Op: op, Field: qualified})
	}

	stages := []Stage{group}
	if group.GroupKey != "" {
		stages = append(stages, Stage{Kind: StageSort, SortField: GroupKeyField, Direction: models.SortAsc})
	}
	return stages
}

func (s *Synthesizer) rowStages(qc *querycontext.QueryContext) []Stage {
	fields := []string{querycontext.KeyField, querycontext.NameField}
	for _, f := range qc.FieldsToAnalyze() {
		if f == querycontext.KeyField || f == querycontext.NameField {
			continue
		}
		fields = append(fields, querycontext.Qualified(f))
	}

	stages := []Stage{{Kind: StageProject, Fields: fields}}

	if sort := qc.Sort(); sort != nil {
		stages = append(stages, Stage{Kind: StageSort, SortField: sort.Field, Direction: sort.Direction})
	}

	stages = append(stages, Stage{Kind: StageLimit, Limit: s.limit(qc.Limit())})
	return stages
}

func (s *Synthesizer) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.config.DefaultLimit
	case requested > s.config.MaxLimit:
		s.logger.Warn("clamping requested limit", map[string]interface{}{
			"requested": requested,
			"max":       s.config.MaxLimit,
		})
		return s.config.MaxLimit
	}
	return requested
}

// AccumulatorName is the output key of an accumulator, for example avg_current_salary.
func AccumulatorName(op models.AggregationType, field string) string {
	if op == models.AggregationCount {
		return "count"
	}
	return fmt.Sprintf("%s_%s", op, field)
}

func qualifyAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = querycontext.Qualified(f)
	}
	return out
}
