package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
)

func newPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, "", NewTestLogger(t)), mock
}

func TestPostgresStore_CompileCount(t *testing.T) {
	s, _ := newPostgres(t)

	query, args, err := s.Compile(countPlan(models.Condition{Field: "employment.department", Op: models.OpEq, Value: "IT"}))
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) AS "count" FROM "personal" AS "personal" `+
		`LEFT JOIN "employment" AS "employment" ON "employment"."employee_id" = "personal"."employee_id" `+
		`WHERE lower("employment"."department"::text) = lower($1)`, query)
	assert.Equal(t, []interface{}{"IT"}, args)
}

func TestPostgresStore_CompileRanking(t *testing.T) {
	s := NewPostgresStore(nil, "hr", NewTestLogger(t))
	plan := &pipeline.ExecutionPlan{Base: "personal", Stages: []pipeline.Stage{
		{Kind: pipeline.StageJoin, Collection: "performance"},
		{Kind: pipeline.StageFlatten, Collection: "performance"},
		{Kind: pipeline.StageCoerce, Fields: []string{"performance.performance_rating"}},
		{Kind: pipeline.StageProject, Fields: []string{"employee_id", "full_name", "performance.performance_rating"}},
		{Kind: pipeline.StageSort, SortField: "performance_rating", Direction: models.SortDesc},
		{Kind: pipeline.StageLimit, Limit: 5},
	}}

	query, args, err := s.Compile(plan)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "hr"."personal" AS "personal" LEFT JOIN "hr"."performance" AS "performance"`)
	assert.Contains(t, query, `THEN btrim("performance"."performance_rating"::text)::double precision END, 0) AS "performance_rating"`)
	assert.Contains(t, query, ` DESC NULLS LAST LIMIT $1`)
	assert.Equal(t, []interface{}{5}, args)
}

func TestPostgresStore_CompileConditions(t *testing.T) {
	s, _ := newPostgres(t)
	plan := countPlan(
		models.Condition{Field: "employment.role", Op: models.OpIn, Value: []string{"Developer", "Engineer"}},
		models.Condition{Field: "employment.total_experience_years", Op: models.OpGte, Value: 5.0},
		models.Condition{Field: "location", Op: models.OpContains, Value: "chen"},
	)

	query, args, err := s.Compile(plan)
	require.NoError(t, err)

	assert.Contains(t, query, `lower("employment"."role"::text) = ANY($1)`)
	assert.Contains(t, query, `::double precision END, 0) >= $2`)
	assert.Contains(t, query, `"personal"."location"::text ILIKE $3`)
	require.Len(t, args, 3)
	assert.Equal(t, 5.0, args[1])
	assert.Equal(t, "%chen%", args[2])
}

func TestPostgresStore_CompileComparison(t *testing.T) {
	s, _ := newPostgres(t)
	plan := &pipeline.ExecutionPlan{Base: "personal", Stages: []pipeline.Stage{
		{Kind: pipeline.StageJoin, Collection: "employment"},
		{Kind: pipeline.StageFlatten, Collection: "employment"},
		{Kind: pipeline.StageGroup, GroupKey: "employment.department", Accumulators: []pipeline.Accumulator{
			{Name: "count", Op: models.AggregationCount},
			{Name: "avg_total_experience_years", Op: models.AggregationAvg, Field: "employment.total_experience_years"},
		}},
		{Kind: pipeline.StageSort, SortField: "_id", Direction: models.SortAsc},
	}}

	query, _, err := s.Compile(plan)
	require.NoError(t, err)

	assert.Contains(t, query, `SELECT "employment"."department" AS "_id", COUNT(*) AS "count", COALESCE(AVG(`)
	assert.Contains(t, query, ` GROUP BY 1 ORDER BY "_id" ASC`)
}

func TestPostgresStore_Execute(t *testing.T) {
	s, mock := newPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS "count" FROM "personal"`)).
		WithArgs("IT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	result, err := s.Execute(context.Background(), countPlan(models.Condition{Field: "employment.department", Op: models.OpEq, Value: "IT"}))
	require.NoError(t, err)

	assert.Equal(t, 7, result.Count)
	require.Len(t, result.Aggregates, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExecuteRows(t *testing.T) {
	s, mock := newPostgres(t)
	plan := &pipeline.ExecutionPlan{Base: "personal", Stages: []pipeline.Stage{
		{Kind: pipeline.StageJoin, Collection: "employment"},
		{Kind: pipeline.StageFlatten, Collection: "employment"},
		{Kind: pipeline.StageFilter, Conditions: []models.Condition{{Field: "employment.role", Op: models.OpEq, Value: "Manager"}}},
		{Kind: pipeline.StageProject, Fields: []string{"employee_id", "full_name", "employment.department"}},
		{Kind: pipeline.StageLimit, Limit: 100},
	}}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "personal" AS "personal" LEFT JOIN "employment"`)).
		WithArgs("Manager", 100).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "full_name", "department"}).
			AddRow("E1", []byte("Asha Rao"), "IT").
			AddRow("E2", "Ravi Kumar", nil))

	result, err := s.Execute(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "Asha Rao", result.Rows[0]["full_name"])
	assert.Nil(t, result.Rows[1]["department"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExecuteError(t *testing.T) {
	s, mock := newPostgres(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := s.Execute(context.Background(), countPlan())
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestPostgresStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db, "", NewTestLogger(t))

	mock.ExpectPing()
	assert.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorIs(t, s.Ping(context.Background()), ErrStoreUnavailable)
}

func TestPostgresStore_CompileNonPersonalBase(t *testing.T) {
	s, _ := newPostgres(t)
	plan := &pipeline.ExecutionPlan{Base: "employment", Stages: []pipeline.Stage{
		{Kind: pipeline.StageCoerce, Fields: []string{"total_experience_years"}},
		{Kind: pipeline.StageFilter, Conditions: []models.Condition{{Field: "role", Op: models.OpEq, Value: "Manager"}}},
		{Kind: pipeline.StageProject, Fields: []string{"employee_id", "department", "total_experience_years"}},
		{Kind: pipeline.StageSort, SortField: "total_experience_years", Direction: models.SortDesc},
		{Kind: pipeline.StageLimit, Limit: 100},
	}}

	query, args, err := s.Compile(plan)
	require.NoError(t, err)

	assert.NotContains(t, query, `"personal"`)
	assert.Contains(t, query, `SELECT "employment"."employee_id" AS "employee_id", "employment"."department" AS "department"`)
	assert.Contains(t, query, `FROM "employment" AS "employment" WHERE lower("employment"."role"::text) = lower($1)`)
	assert.Contains(t, query, `ORDER BY COALESCE(CASE WHEN btrim("employment"."total_experience_years"::text)`)
	assert.Equal(t, []interface{}{"Manager", 100}, args)
}

func TestPostgresStore_CompileNonPersonalBaseJoin(t *testing.T) {
	s, _ := newPostgres(t)
	plan := &pipeline.ExecutionPlan{Base: "performance", Stages: []pipeline.Stage{
		{Kind: pipeline.StageJoin, Collection: "learning"},
		{Kind: pipeline.StageFlatten, Collection: "learning"},
	}}

	query, _, err := s.Compile(plan)
	require.NoError(t, err)

	assert.Equal(t, `SELECT "performance"."employee_id" AS "employee_id" FROM "performance" AS "performance" `+
		`LEFT JOIN "learning" AS "learning" ON "learning"."employee_id" = "performance"."employee_id"`, query)
}
