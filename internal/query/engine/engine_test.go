package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/intent"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/router"
	"hr-query-engine/internal/query/search"
	"hr-query-engine/internal/query/store"
)

func TestEngine_CountQuery(t *testing.T) {
	e := newEngine(t, options{})

	env := e.ProcessQuery(context.Background(), "How many employees work in IT?")

	assert.Equal(t, models.QueryTypeCount, env.Intent)
	assert.Equal(t, 7, env.Count)
	assert.Equal(t, models.StatusSuccess, env.Status)
	assert.Equal(t, models.DataSourceAggregationStore, env.DataSource)
	assert.Equal(t, "Found 7 employees matching your criteria.", env.Response)
	assert.Equal(t, []string{"IT"}, env.Entities.Departments)
	assert.NotEmpty(t, env.QueryID)
	assert.NotEmpty(t, env.Suggestions)
	assert.False(t, env.Timestamp.IsZero())
	assert.Empty(t, env.Error)
}

func TestEngine_RankedSearch(t *testing.T) {
	searcher := &fakeSearcher{docs: []search.Document{
		{ID: "E01", Score: 3.2, Fields: models.Row{"full_name": "Employee E01", "role": "Developer", "certifications": "AWS Solutions Architect"}},
		{ID: "E05", Score: 2.1, Fields: models.Row{"full_name": "Employee E05", "role": "Developer", "certifications": "AWS Developer"}},
	}}
	e := newEngine(t, options{searcher: searcher})

	env := e.ProcessQuery(context.Background(), "Find developers with AWS certification")

	assert.Equal(t, models.StatusSuccess, env.Status)
	assert.Equal(t, models.DataSourceRankedSearch, env.DataSource)
	assert.Len(t, env.Results, 2)
	assert.Equal(t, 2, env.Count)
	require.Len(t, searcher.requests, 1)
	assert.Contains(t, searcher.requests[0].Query, "developers")
}

func TestEngine_TopPerformers(t *testing.T) {
	e := newEngine(t, options{})

	env := e.ProcessQuery(context.Background(), "Top 5 performers")

	require.Equal(t, models.StatusSuccess, env.Status)
	assert.Equal(t, models.QueryTypeRanking, env.Intent)
	require.Len(t, env.Results, 5)
	for i := 1; i < len(env.Results); i++ {
		prev := pipeline.CoerceNumber(env.Results[i-1]["performance_rating"])
		cur := pipeline.CoerceNumber(env.Results[i]["performance_rating"])
		assert.GreaterOrEqual(t, prev, cur, "rows sorted descending at %d", i)
	}
	assert.True(t, strings.HasPrefix(env.Response, "Top Results:"))
}

func TestEngine_EmptyQuery(t *testing.T) {
	alerts := &fakeAlerts{}
	e := newEngine(t, options{alerts: alerts})

	for _, q := range []string{"", "   \t"} {
		env := e.ProcessQuery(context.Background(), q)

		assert.Equal(t, models.StatusError, env.Status)
		assert.NotEmpty(t, env.Response)
		assert.True(t, strings.HasPrefix(env.Response, apologyPrefix))
		assert.Contains(t, env.Response, "rephrase")
		assert.NotNil(t, env.Results)
		assert.Empty(t, env.Results)
		assert.Contains(t, env.Error, intent.ErrIntentDetection.Error())
	}
	assert.Empty(t, alerts.alerts, "bad input does not page anyone")
}

func TestEngine_CacheHit(t *testing.T) {
	slow := &fakeStore{
		delay: 30 * time.Millisecond,
		next:  store.NewMemoryStore(testDataset(), storeLogger{NewTestLogger(t)}),
	}
	e := newEngine(t, options{cache: cache.NewMemoryCache(time.Minute, 10), primary: slow})

	first := e.ProcessQuery(context.Background(), "How many employees work in IT?")
	second := e.ProcessQuery(context.Background(), "  how many employees work in it?")

	require.Equal(t, models.StatusSuccess, first.Status)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, first.Response, second.Response)
	assert.NotEqual(t, first.QueryID, second.QueryID)
	assert.Less(t, second.ExecutionTimeMs, first.ExecutionTimeMs)
	assert.Equal(t, 1, slow.Calls(), "second call never reaches the store")
	assert.Equal(t, int64(1), e.CacheStats().Hits)
}

func TestEngine_FiltersChangeCacheKey(t *testing.T) {
	e := newEngine(t, options{cache: cache.NewMemoryCache(time.Minute, 10)})

	all := e.ProcessQuery(context.Background(), "How many employees are there?")
	sales := e.ProcessQueryWithFilters(context.Background(), "How many employees are there?", map[string]interface{}{
		"department": "Sales",
		"unknown":    true,
	})

	assert.Equal(t, 10, all.Count)
	assert.False(t, sales.CacheHit)
	assert.Equal(t, 3, sales.Count)
	assert.Equal(t, []string{"Sales"}, sales.Entities.Departments)
}

func TestEngine_FallbackOnTotalFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	down := &fakeStore{err: errDown}
	e := newEngine(t, options{
		completer: &fakeCompleter{err: errors.New("llm unavailable")},
		primary:   down,
		recorder:  recorder,
	})

	env := e.ProcessQuery(context.Background(), "Find managers")

	assert.Equal(t, models.StatusSuccessFallback, env.Status)
	assert.Equal(t, models.DataSourceFallbackEngine, env.DataSource)
	assert.InDelta(t, 0.7, env.Confidence, 1e-9)
	assert.Equal(t, 3, env.Count)
	assert.Contains(t, env.Response, "Found 3 employees")
	assert.Equal(t, []string{router.ErrPipelineExecution.Error()}, recorder.fallbacks)
	assert.Zero(t, recorder.active)
}

func TestEngine_FallbackOnPostgresStore(t *testing.T) {
	var statements []string
	matcher := sqlmock.QueryMatcherFunc(func(_, actual string) error {
		statements = append(statements, actual)
		return nil
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("fallback").
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "role"}).
			AddRow("E03", "Manager").
			AddRow("E08", "Manager").
			AddRow("E10", "Manager"))

	e := newEngine(t, options{
		completer: &fakeCompleter{err: errors.New("llm unavailable")},
		primary:   &fakeStore{err: errDown},
		fallback:  store.NewPostgresStore(db, "", storeLogger{NewTestLogger(t)}),
	})

	env := e.ProcessQuery(context.Background(), "Find managers")

	assert.Equal(t, models.StatusSuccessFallback, env.Status)
	assert.Equal(t, 3, env.Count)
	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], `FROM "employment" AS "employment"`)
	assert.Contains(t, statements[0], `"employment"."role"`)
	assert.NotContains(t, statements[0], `"personal"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ErrorWhenFallbackFails(t *testing.T) {
	alerts := &fakeAlerts{}
	down := &fakeStore{err: errDown}
	c := cache.NewMemoryCache(time.Minute, 10)
	e := newEngine(t, options{
		completer: &fakeCompleter{err: errors.New("llm unavailable")},
		primary:   down,
		fallback:  down,
		cache:     c,
		alerts:    alerts,
	})

	env := e.ProcessQuery(context.Background(), "Find managers")

	assert.Equal(t, models.StatusError, env.Status)
	assert.True(t, strings.HasPrefix(env.Response, apologyPrefix))
	assert.Empty(t, env.Results)
	assert.Equal(t, models.DataSourceNone, env.DataSource)
	assert.Contains(t, env.Error, "fallback engine")
	assert.Equal(t, 2, strings.Count(env.Error, router.ErrPipelineExecution.Error()), "both failures are reported")
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, env.QueryID, alerts.alerts[0].QueryID)
	assert.Equal(t, 0, c.Len(), "errors are never cached")
}

func TestEngine_FallbackNotCached(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, 10)
	e := newEngine(t, options{primary: &fakeStore{err: errDown}, cache: c})

	env := e.ProcessQuery(context.Background(), "How many employees work in IT?")

	assert.Equal(t, models.StatusSuccessFallback, env.Status)
	assert.Equal(t, 7, env.Count)
	assert.Equal(t, 0, c.Len())
}

func TestEngine_Cancelled(t *testing.T) {
	e := newEngine(t, options{primary: &fakeStore{delay: time.Second}, cache: cache.NewMemoryCache(time.Minute, 10)})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	env := e.ProcessQuery(ctx, "How many employees work in IT?")

	assert.Equal(t, models.StatusError, env.Status)
	assert.Contains(t, env.Response, "cancelled")
	assert.Zero(t, e.CacheStats().Size)
}

func TestEngine_Concurrent(t *testing.T) {
	e := newEngine(t, options{cache: cache.NewMemoryCache(time.Minute, 100)})
	queries := []string{"How many employees work in IT?", "Top 5 performers", "Find managers", ""}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			env := e.ProcessQuery(context.Background(), q)
			assert.NotNil(t, env)
			assert.NotEmpty(t, env.Response)
		}(queries[i%len(queries)])
	}
	wg.Wait()

	assert.Equal(t, int64(40), e.PerformanceAnalytics().Queries.TotalQueries)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{}, Config{}, NewTestLogger(t))
	assert.Error(t, err)
}
