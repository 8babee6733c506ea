// Package router decides where a query executes and runs it there.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/search"
	"hr-query-engine/internal/query/store"
)

var ErrPipelineExecution = errors.New("PIPELINE_EXECUTION_FAILED")

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Recorder observes calls to external backends.
type Recorder interface {
	ObserveExternalCall(service, outcome string, duration time.Duration)
}

type Config struct {
	StoreTimeout  time.Duration
	SearchTimeout time.Duration
	EmbedTimeout  time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	TopK          int
	RRFConstant   int
}

func DefaultConfig() Config {
	return Config{
		StoreTimeout:  10 * time.Second,
		SearchTimeout: 10 * time.Second,
		EmbedTimeout:  5 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    100 * time.Millisecond,
		TopK:          search.DefaultTopK,
		RRFConstant:   60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = d.SearchTimeout
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = d.RRFConstant
	}
	return c
}

// Route is the execution target chosen for one query.
type Route struct {
	DataSource models.DataSource
	Plan       *pipeline.ExecutionPlan
	Search     *search.Request
}

// Router executes plans on the aggregation store and free-text lookups on
// ranked search. Searcher, embedder and library are optional.
type Router struct {
	store    store.AggregationStore
	searcher search.RankedSearcher
	embedder llm.Embedder
	library  *entities.Library
	recorder Recorder
	config   Config
	logger   Logger
}

type Option func(*Router)

func WithSearcher(s search.RankedSearcher) Option { return func(r *Router) { r.searcher = s } }
func WithEmbedder(e llm.Embedder) Option          { return func(r *Router) { r.embedder = e } }
func WithLibrary(l *entities.Library) Option      { return func(r *Router) { r.library = l } }
func WithRecorder(rec Recorder) Option            { return func(r *Router) { r.recorder = rec } }

func New(st store.AggregationStore, config Config, log Logger, opts ...Option) *Router {
	r := &Router{
		store:  st,
		config: config.withDefaults(),
		logger: log.With(map[string]interface{}{
			"component": "execution-router",
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide applies the routing rule: free-text intents without structured
// filters go to ranked search, free-text with structured filters is hybrid,
// everything else runs on the aggregation store.
func Decide(qt models.QueryType, e models.Entities) models.DataSource {
	if !qt.IsSearch() {
		return models.DataSourceAggregationStore
	}
	if e.HasStructured() {
		return models.DataSourceHybrid
	}
	return models.DataSourceRankedSearch
}

// Route picks the target for a built context and its synthesized plan.
func (r *Router) Route(query string, qc *querycontext.QueryContext, plan *pipeline.ExecutionPlan) *Route {
	ds := Decide(qc.QueryType(), qc.Entities())
	if ds != models.DataSourceAggregationStore && r.searcher == nil {
		r.logger.Warn("ranked search not configured, using aggregation store", map[string]interface{}{
			"wanted": ds,
		})
		ds = models.DataSourceAggregationStore
	}

	route := &Route{DataSource: ds}
	if ds != models.DataSourceRankedSearch {
		route.Plan = plan
	}
	if ds != models.DataSourceAggregationStore {
		text := query
		if r.library != nil {
			text = r.library.ExpandQuery(query)
		}
		topK := r.config.TopK
		if l := qc.Limit(); l > 0 {
			topK = l
		}
		route.Search = &search.Request{Query: text, TopK: topK, Filters: qc.MatchConditions()}
	}
	return route
}

// Execute never returns an error: failures become an empty result whose
// metadata carries the error.
func (r *Router) Execute(ctx context.Context, route *Route) *models.QueryResult {
	start := time.Now()
	var (
		result *models.QueryResult
		err    error
	)

	switch route.DataSource {
	case models.DataSourceAggregationStore:
		result, err = r.executePlan(ctx, route.Plan)
	case models.DataSourceRankedSearch:
		result, err = r.executeSearch(ctx, route.Search)
	case models.DataSourceHybrid:
		result, err = r.executeHybrid(ctx, route)
	default:
		err = fmt.Errorf("unknown data source %q", route.DataSource)
	}

	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPipelineExecution, err)
		r.logger.Warn("execution failed", map[string]interface{}{
			"dataSource": route.DataSource,
			"error":      err.Error(),
		})
		failed := models.EmptyResult(route.DataSource, wrapped, time.Since(start))
		failed.Metadata["error_code"] = ErrPipelineExecution.Error()
		return failed
	}

	result.Source = route.DataSource
	result.ExecutionTimeMs = models.Millis(time.Since(start))
	r.logger.Info("execution completed", map[string]interface{}{
		"dataSource": route.DataSource,
		"count":      result.Count,
		"took":       result.ExecutionTimeMs,
	})
	return result
}

func (r *Router) executePlan(ctx context.Context, plan *pipeline.ExecutionPlan) (*models.QueryResult, error) {
	if plan == nil {
		return nil, errors.New("no execution plan")
	}
	if r.store == nil {
		return nil, store.ErrStoreUnavailable
	}
	var result *models.QueryResult
	err := r.retry(ctx, "aggregation_store", r.config.StoreTimeout, func(ctx context.Context) error {
		res, err := r.store.Execute(ctx, plan)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

func (r *Router) executeSearch(ctx context.Context, req *search.Request) (*models.QueryResult, error) {
	if req == nil {
		return nil, errors.New("no search request")
	}
	if r.searcher == nil {
		return nil, errors.New("ranked search not configured")
	}

	sreq := *req
	if r.embedder != nil && len(sreq.Vector) == 0 {
		sreq.Vector = r.embed(ctx, sreq.Query)
	}

	var docs []search.Document
	err := r.retry(ctx, "ranked_search", r.config.SearchTimeout, func(ctx context.Context) error {
		d, err := r.searcher.Search(ctx, sreq)
		if err != nil {
			return err
		}
		docs = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, len(docs))
	maxScore := 0.0
	for i, d := range docs {
		rows[i] = d.Row()
		maxScore = max(maxScore, d.Score)
	}
	return &models.QueryResult{
		Rows:     rows,
		Count:    len(rows),
		Metadata: map[string]interface{}{"max_score": maxScore, "vector": len(sreq.Vector) > 0},
	}, nil
}

// embed is best effort; lexical search still runs without a vector.
func (r *Router) embed(ctx context.Context, text string) []float32 {
	ctx, cancel := context.WithTimeout(ctx, r.config.EmbedTimeout)
	defer cancel()

	start := time.Now()
	vec, err := r.embedder.Embed(ctx, text)
	r.observe("embedding", err, time.Since(start))
	if err != nil {
		r.logger.Warn("embedding failed, searching without vector", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return vec
}

func (r *Router) retry(ctx context.Context, service string, timeout time.Duration, fn func(context.Context) error) error {
	return retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := fn(callCtx)
			r.observe(service, err, time.Since(start))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.config.MaxAttempts)),
		retry.Delay(r.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("retrying external call", map[string]interface{}{
				"service": service,
				"attempt": n + 1,
				"error":   err.Error(),
			})
		}),
	)
}

func (r *Router) observe(service string, err error, d time.Duration) {
	if r.recorder == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, search.ErrSearchTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	r.recorder.ObserveExternalCall(service, outcome, d)
}

// retryable excludes errors a second attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, pipeline.ErrInvalidPlan) &&
		!errors.Is(err, store.ErrUnsupportedStage) &&
		!errors.Is(err, search.ErrInvalidRequest) &&
		!errors.Is(err, context.Canceled)
}
