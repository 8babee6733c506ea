package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hr-query-engine/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		stages  []Stage
		wantErr bool
	}{
		{
			name: "valid join flatten filter",
			stages: []Stage{
				{Kind: StageJoin, Collection: "employment"},
				{Kind: StageFlatten, Collection: "employment"},
				{Kind: StageFilter, Conditions: []models.Condition{{Field: "employment.department", Op: models.OpEq, Value: "IT"}}},
				{Kind: StageLimit, Limit: 10},
			},
		},
		{
			name: "join without flatten",
			stages: []Stage{
				{Kind: StageJoin, Collection: "employment"},
				{Kind: StageFilter},
			},
			wantErr: true,
		},
		{
			name: "flatten of a different collection",
			stages: []Stage{
				{Kind: StageJoin, Collection: "employment"},
				{Kind: StageFlatten, Collection: "performance"},
			},
			wantErr: true,
		},
		{
			name: "field used before its collection is flattened",
			stages: []Stage{
				{Kind: StageCoerce, Fields: []string{"performance.performance_rating"}},
				{Kind: StageJoin, Collection: "performance"},
				{Kind: StageFlatten, Collection: "performance"},
			},
			wantErr: true,
		},
		{
			name: "two groups",
			stages: []Stage{
				{Kind: StageGroup, Accumulators: []Accumulator{{Name: "count", Op: models.AggregationCount}}},
				{Kind: StageGroup, Accumulators: []Accumulator{{Name: "count", Op: models.AggregationCount}}},
			},
			wantErr: true,
		},
		{
			name: "limit before group",
			stages: []Stage{
				{Kind: StageLimit, Limit: 5},
				{Kind: StageGroup, Accumulators: []Accumulator{{Name: "count", Op: models.AggregationCount}}},
			},
			wantErr: true,
		},
		{
			name: "sort after group",
			stages: []Stage{
				{Kind: StageGroup, GroupKey: "location", Accumulators: []Accumulator{{Name: "count", Op: models.AggregationCount}}},
				{Kind: StageSort, SortField: GroupKeyField, Direction: models.SortAsc},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &ExecutionPlan{Base: "personal", Stages: tt.stages}
			err := plan.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidPlan), "expected ErrInvalidPlan, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPlanString(t *testing.T) {
	plan := &ExecutionPlan{Base: "personal", Stages: []Stage{
		{Kind: StageJoin, Collection: "performance"},
		{Kind: StageFlatten, Collection: "performance"},
		{Kind: StageSort, SortField: "performance_rating", Direction: models.SortDesc},
		{Kind: StageLimit, Limit: 5},
	}}
	assert.Equal(t, "personal: join(performance) -> flatten(performance) -> sort(performance_rating desc) -> limit(5)", plan.String())
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "performance_rating", OutputName("performance.performance_rating"))
	assert.Equal(t, "full_name", OutputName("full_name"))
}
