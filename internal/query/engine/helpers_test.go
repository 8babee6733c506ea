package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/entities"
	"hr-query-engine/internal/query/intent"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/response"
	"hr-query-engine/internal/query/router"
	"hr-query-engine/internal/query/search"
	"hr-query-engine/internal/query/store"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger        { return l }

// Adapters for the component Logger interfaces.
type intentLogger struct{ *TestLogger }

func (l intentLogger) With(map[string]interface{}) intent.Logger { return l }

type ctxLogger struct{ *TestLogger }

func (l ctxLogger) With(map[string]interface{}) querycontext.Logger { return l }

type pipeLogger struct{ *TestLogger }

func (l pipeLogger) With(map[string]interface{}) pipeline.Logger { return l }

type routerLogger struct{ *TestLogger }

func (l routerLogger) With(map[string]interface{}) router.Logger { return l }

type responseLogger struct{ *TestLogger }

func (l responseLogger) With(map[string]interface{}) response.Logger { return l }

type storeLogger struct{ *TestLogger }

func (l storeLogger) With(map[string]interface{}) store.Logger { return l }

type searchLogger struct{ *TestLogger }

func (l searchLogger) With(map[string]interface{}) search.Logger { return l }

// testDataset has seven IT and three Sales employees.
func testDataset() store.Dataset {
	roles := []string{"Developer", "Developer", "Manager", "Analyst", "Developer", "Analyst", "Architect", "Manager", "Analyst", "Manager"}
	ratings := []interface{}{"5", "4", "3", "2", 4, "N/A", "1", 3.5, "5", nil}
	data := store.Dataset{}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("E%02d", i+1)
		dept := "IT"
		if i >= 7 {
			dept = "Sales"
		}
		data[querycontext.CollectionPersonal] = append(data[querycontext.CollectionPersonal], models.Row{
			"employee_id": id, "full_name": "Employee " + id, "location": "Chennai",
		})
		data[querycontext.CollectionEmployment] = append(data[querycontext.CollectionEmployment], models.Row{
			"employee_id": id, "department": dept, "role": roles[i], "total_experience_years": i + 1,
		})
		data[querycontext.CollectionPerformance] = append(data[querycontext.CollectionPerformance], models.Row{
			"employee_id": id, "performance_rating": ratings[i],
		})
		certs := ""
		if i%3 == 0 {
			certs = "AWS Solutions Architect, PMP"
		}
		data[querycontext.CollectionLearning] = append(data[querycontext.CollectionLearning], models.Row{
			"employee_id": id, "certifications": certs,
		})
	}
	return data
}

// fakeStore fails every call, optionally after a delay.
type fakeStore struct {
	err   error
	delay time.Duration
	next  store.AggregationStore
	mu    sync.Mutex
	calls int
}

func (f *fakeStore) Execute(ctx context.Context, plan *pipeline.ExecutionPlan) (*models.QueryResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.next.Execute(ctx, plan)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	return nil
}

func (f *fakeStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSearcher struct {
	docs     []search.Document
	err      error
	requests []search.Request
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) ([]search.Document, error) {
	f.requests = append(f.requests, req)
	return f.docs, f.err
}

type fakeCompleter struct {
	err error
}

func (f *fakeCompleter) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return "", f.err
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (f *fakeAlerts) PublishAlert(_ context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	finished  []models.Status
	fallbacks []string
	lookups   []bool
	active    int
}

func (f *fakeRecorder) QueryStarted() {
	f.mu.Lock()
	f.active++
	f.mu.Unlock()
}

func (f *fakeRecorder) QueryFinished(_ models.QueryType, status models.Status, _ models.DataSource, _ time.Duration) {
	f.mu.Lock()
	f.active--
	f.finished = append(f.finished, status)
	f.mu.Unlock()
}

func (f *fakeRecorder) CacheLookup(hit bool) {
	f.mu.Lock()
	f.lookups = append(f.lookups, hit)
	f.mu.Unlock()
}

func (f *fakeRecorder) Fallback(reason string) {
	f.mu.Lock()
	f.fallbacks = append(f.fallbacks, reason)
	f.mu.Unlock()
}

type options struct {
	completer llm.Completer
	primary   store.AggregationStore
	fallback  store.AggregationStore
	searcher  search.RankedSearcher
	cache     cache.Cache
	alerts    AlertPublisher
	recorder  Recorder
}

func newEngine(t *testing.T, opts options) *Engine {
	t.Helper()
	log := NewTestLogger(t)
	lib := entities.Default()
	mem := store.NewMemoryStore(testDataset(), storeLogger{log})
	if opts.primary == nil {
		opts.primary = mem
	}
	if opts.fallback == nil {
		opts.fallback = mem
	}

	keyword := intent.NewKeywordClassifier(lib)
	var primary intent.Classifier
	if opts.completer != nil {
		primary = intent.NewLLMClassifier(opts.completer, lib, intent.DefaultLLMConfig(), intentLogger{log})
	}

	routerOpts := []router.Option{router.WithLibrary(lib)}
	if opts.searcher != nil {
		routerOpts = append(routerOpts, router.WithSearcher(opts.searcher))
	}
	rc := router.DefaultConfig()
	rc.RetryDelay = time.Millisecond

	e, err := New(Dependencies{
		Classifier:    intent.NewChainClassifier(primary, keyword, intentLogger{log}),
		Keyword:       keyword,
		Builder:       querycontext.NewBuilder(querycontext.DefaultPolicy(), ctxLogger{log}),
		Synthesizer:   pipeline.NewSynthesizer(pipeline.Config{}, pipeLogger{log}),
		Router:        router.New(opts.primary, rc, routerLogger{log}, routerOpts...),
		Formatter:     response.NewFormatter(opts.completer, lib, response.Config{}, responseLogger{log}),
		FallbackStore: opts.fallback,
		Cache:         opts.cache,
		Alerts:        opts.alerts,
		Recorder:      opts.recorder,
	}, Config{}, log)
	require.NoError(t, err)
	return e
}

var errDown = errors.New("connection refused")
