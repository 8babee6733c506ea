package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hr-query-engine/internal/models"
)

func TestTemplate_Ranking(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeRanking, models.Entities{
		Sort:  &models.SortSpec{Field: "performance_rating", Direction: models.SortDesc},
		Limit: 2,
	})
	result := &models.QueryResult{
		Rows: []models.Row{
			{"full_name": "Asha Rao", "department": "IT", "performance_rating": 5.0},
			{"full_name": "Ben Ode", "department": nil, "performance_rating": 4.5},
		},
		Count: 2,
	}

	text := f.Template("Top 2 performers", intent, result)

	assert.Equal(t, "Top Results:\n"+
		"1. Asha Rao (IT) – Performance Rating: 5\n"+
		"2. Ben Ode (Unknown) – Performance Rating: 4.50", text)
}

func TestTemplate_Comparison(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeComparison, models.Entities{AggregationField: "current_salary"})
	result := &models.QueryResult{
		Aggregates: []models.Row{
			{"_id": "IT", "count": 7, "avg_current_salary": 95000.0, "max_current_salary": 150000.0, "min_current_salary": 40000.0},
			{"_id": "Sales", "count": 3, "avg_current_salary": 61250.5, "max_current_salary": 80000.0, "min_current_salary": 50000.0},
		},
		Count: 10,
	}

	text := f.Template("Compare IT and Sales salaries", intent, result)

	assert.Equal(t, strings.Join([]string{
		"Comparison Results:",
		"• IT: 7 employees",
		"  - Average Current Salary: 95,000",
		"  - Maximum Current Salary: 150,000",
		"  - Minimum Current Salary: 40,000",
		"• Sales: 3 employees",
		"  - Average Current Salary: 61,250.50",
		"  - Maximum Current Salary: 80,000",
		"  - Minimum Current Salary: 50,000",
	}, "\n"), text)
}

func TestTemplate_Analytics(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeAnalytics, models.Entities{AggregationType: models.AggregationAvg, AggregationField: "engagement_score"})
	result := &models.QueryResult{
		Aggregates: []models.Row{{"_id": "", "count": 10, "avg_engagement_score": 3.75}},
		Count:      10,
	}

	text := f.Template("Average engagement score", intent, result)

	assert.Equal(t, "Analytics Summary:\n• Total: 10 employees\n• Average Engagement Score: 3.75", text)
}

func TestTemplate_List(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeEmployeeSearch, models.Entities{})
	result := &models.QueryResult{Rows: rows(12), Count: 12}

	text := f.Template("Find employees in IT", intent, result)
	lines := strings.Split(text, "\n")

	assert.Equal(t, "Found 12 employees matching your criteria.", lines[0])
	assert.Equal(t, "1. Employee A (IT)", lines[1])
	assert.Len(t, lines, 12)
	assert.Contains(t, lines[11], "...and 2 more")
}

func TestTemplate_ZeroResultSuggestsAlternatives(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeCount, models.Entities{Departments: []string{"Legal"}})

	text := f.Template("How many employees work in Legal?", intent, &models.QueryResult{})
	lines := strings.Split(text, "\n")

	assert.Equal(t, "I'm sorry, no employees found matching your criteria. Try adjusting your search parameters.", lines[0])
	assert.Contains(t, lines, "• How many employees work in Sales?")
	assert.LessOrEqual(t, len(lines)-3, 3)
}

func TestTemplate_ZeroResultCorrectsSpelling(t *testing.T) {
	f := NewFormatter(nil, nil, Config{}, NewTestLogger(t))
	intent := newIntent(t, models.QueryTypeEmployeeSearch, models.Entities{})

	text := f.Template("Find developers in Engeneering", intent, &models.QueryResult{})

	assert.Contains(t, text, "• Find developers in Engineering")
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{1234567.0, "1,234,567"},
		{-1500, "-1,500"},
		{3.14159, "3.14"},
		{"110,000", "110,000"},
		{"N/A", "N/A"},
		{nil, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, number(tt.in), "%v", tt.in)
	}
}

func TestStatLabel(t *testing.T) {
	assert.Equal(t, "Average Current Salary", statLabel("avg_current_salary"))
	assert.Equal(t, "Maximum KPIS Met %", statLabel("max_kpis_met_pct"))
	assert.Equal(t, "Rrf Score", statLabel("rrf_score"))
}
