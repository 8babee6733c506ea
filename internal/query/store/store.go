// Package store executes execution plans against an aggregation store.
package store

import (
	"context"
	"errors"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
)

var (
	ErrStoreUnavailable = errors.New("AGGREGATION_STORE_UNAVAILABLE")
	ErrUnsupportedStage = errors.New("UNSUPPORTED_STAGE")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// AggregationStore runs a plan stage by stage and returns the produced documents.
type AggregationStore interface {
	Execute(ctx context.Context, plan *pipeline.ExecutionPlan) (*models.QueryResult, error)
	Ping(ctx context.Context) error
}

// finish fills Count and Aggregates from the documents a plan produced.
func finish(plan *pipeline.ExecutionPlan, docs []models.Row) *models.QueryResult {
	result := &models.QueryResult{
		Rows:     []models.Row{},
		Source:   models.DataSourceAggregationStore,
		Metadata: map[string]interface{}{},
	}
	if plan.IsAggregation() {
		result.Aggregates = docs
		total := 0
		for _, d := range docs {
			total += int(pipeline.CoerceNumber(d["count"]))
		}
		result.Count = total
		return result
	}
	result.Rows = docs
	result.Count = len(docs)
	return result
}
