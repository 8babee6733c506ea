package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/models"
)

func TestSynthesize_TopPerformers(t *testing.T) {
	qc := buildContext(t, models.QueryTypeRanking, models.Entities{
		Sort:  &models.SortSpec{Field: "performance_rating", Direction: models.SortDesc},
		Limit: 5,
	})

	plan, err := newSynth(t).Synthesize(qc)
	require.NoError(t, err)

	expected := []Stage{
		{Kind: StageJoin, Collection: "employment"},
		{Kind: StageFlatten, Collection: "employment"},
		{Kind: StageJoin, Collection: "performance"},
		{Kind: StageFlatten, Collection: "performance"},
		{Kind: StageCoerce, Fields: []string{"performance.performance_rating"}},
		{Kind: StageProject, Fields: []string{
			"employee_id", "full_name", "performance.performance_rating", "employment.department", "employment.role",
		}},
		{Kind: StageSort, SortField: "performance_rating", Direction: models.SortDesc},
		{Kind: StageLimit, Limit: 5},
	}
	if diff := cmp.Diff(expected, plan.Stages); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, plan.Count(StageGroup))
	assert.Equal(t, 5, plan.Limit())
}

func TestSynthesize_CountInDepartment(t *testing.T) {
	qc := buildContext(t, models.QueryTypeCount, models.Entities{
		Departments:     []string{"IT"},
		AggregationType: models.AggregationCount,
	})

	plan, err := newSynth(t).Synthesize(qc)
	require.NoError(t, err)

	expected := []Stage{
		{Kind: StageJoin, Collection: "employment"},
		{Kind: StageFlatten, Collection: "employment"},
		{Kind: StageFilter, Conditions: []models.Condition{
			{Field: "employment.department", Op: models.OpEq, Value: "IT"},
		}},
		{Kind: StageGroup, Accumulators: []Accumulator{{Name: "count", Op: models.AggregationCount}}},
	}
	if diff := cmp.Diff(expected, plan.Stages); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesize_Comparison(t *testing.T) {
	qc := buildContext(t, models.QueryTypeComparison, models.Entities{
		AggregationType:  models.AggregationAvg,
		AggregationField: "current_salary",
	})

	plan, err := newSynth(t).Synthesize(qc)
	require.NoError(t, err)

	group, ok := plan.Find(StageGroup)
	require.True(t, ok)
	assert.Equal(t, "employment.department", group.GroupKey)

	names := make([]string, 0, len(group.Accumulators))
	for _, a := range group.Accumulators {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"count", "avg_current_salary", "max_current_salary", "min_current_salary"}, names)

	last := plan.Stages[len(plan.Stages)-1]
	assert.Equal(t, StageSort, last.Kind)
	assert.Equal(t, GroupKeyField, last.SortField)
	assert.Equal(t, models.SortAsc, last.Direction)
	assert.Equal(t, []string{"compensation", "employment"}, joinedNames(plan))
}

func TestSynthesize_AnalyticsAverage(t *testing.T) {
	qc := buildContext(t, models.QueryTypeAnalytics, models.Entities{
		Departments:      []string{"Sales"},
		AggregationType:  models.AggregationAvg,
		AggregationField: "engagement_score",
	})

	plan, err := newSynth(t).Synthesize(qc)
	require.NoError(t, err)

	group, ok := plan.Find(StageGroup)
	require.True(t, ok)
	assert.Empty(t, group.GroupKey)
	require.Len(t, group.Accumulators, 2)
	assert.Equal(t, Accumulator{Name: "avg_engagement_score", Op: models.AggregationAvg, Field: "engagement.engagement_score"}, group.Accumulators[1])

	coerce, ok := plan.Find(StageCoerce)
	require.True(t, ok)
	assert.Equal(t, []string{"engagement.engagement_score"}, coerce.Fields)
}

func TestSynthesize_Limits(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		expected  int
	}{
		{"no explicit limit uses default cap", 0, DefaultLimit},
		{"explicit limit kept", 25, 25},
		{"oversized limit clamped", 5000, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := buildContext(t, models.QueryTypeEmployeeSearch, models.Entities{
				Roles: []string{"Developer"},
				Limit: tt.requested,
			})
			plan, err := newSynth(t).Synthesize(qc)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, plan.Limit())
		})
	}
}

func TestSynthesize_ConfiguredDefaultLimit(t *testing.T) {
	s := NewSynthesizer(Config{DefaultLimit: 20, MaxLimit: 50}, NewTestLogger(t))
	plan, err := s.Synthesize(buildContext(t, models.QueryTypeEmployeeSearch, models.Entities{}))
	require.NoError(t, err)
	assert.Equal(t, 20, plan.Limit())
}

func TestSynthesize_StageOrdering(t *testing.T) {
	cases := []struct {
		qt   models.QueryType
		ents models.Entities
	}{
		{models.QueryTypeCount, models.Entities{Skills: []string{"AWS"}, AggregationType: models.AggregationCount}},
		{models.QueryTypeComplexFilter, models.Entities{
			Departments:  []string{"IT", "Sales"},
			Experience:   models.AtLeast(5),
			LeavePattern: models.LevelMaximum,
		}},
		{models.QueryTypeComparison, models.Entities{GroupBy: "role", AggregationField: "bonus"}},
		{models.QueryTypeRanking, models.Entities{
			Sort:            &models.SortSpec{Field: "attrition_risk_score", Direction: models.SortDesc},
			EngagementLevel: models.LevelLow,
		}},
		{models.QueryTypeTextSearch, models.Entities{Fields: []string{"certifications", "current_project"}}},
	}

	for _, c := range cases {
		t.Run(string(c.qt), func(t *testing.T) {
			plan, err := newSynth(t).Synthesize(buildContext(t, c.qt, c.ents))
			require.NoError(t, err)

			groupAt := -1
			for i, s := range plan.Stages {
				if s.Kind == StageJoin {
					require.Less(t, i+1, len(plan.Stages))
					assert.Equal(t, StageFlatten, plan.Stages[i+1].Kind)
					assert.Equal(t, s.Collection, plan.Stages[i+1].Collection)
				}
				if s.Kind == StageGroup {
					groupAt = i
				}
				if (s.Kind == StageSort || s.Kind == StageLimit) && groupAt < 0 {
					assert.Equal(t, 0, plan.Count(StageGroup), "sort/limit precedes group")
				}
			}
			assert.LessOrEqual(t, plan.Count(StageGroup), 1)
			assert.Equal(t, c.qt.IsAggregation(), plan.IsAggregation())
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	ents := models.Entities{
		Departments: []string{"IT"},
		Skills:      []string{"AWS"},
		Performance: models.AtLeast(4),
		Fields:      []string{"current_salary", "engagement_score"},
	}
	first, err := newSynth(t).Synthesize(buildContext(t, models.QueryTypeComplexFilter, ents))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := newSynth(t).Synthesize(buildContext(t, models.QueryTypeComplexFilter, ents))
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
	}
	assert.Equal(t, []string{"compensation", "employment", "engagement", "learning", "performance"}, joinedNames(first))
}

func joinedNames(p *ExecutionPlan) []string {
	var out []string
	for _, c := range p.Joined() {
		out = append(out, string(c))
	}
	return out
}
