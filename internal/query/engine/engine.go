// Package engine answers natural-language HR questions end to end. It tries
// the primary pipeline, degrades to a keyword-only fallback, and always
// returns a well-formed envelope.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/analytics"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/intent"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/response"
	"hr-query-engine/internal/query/router"
	"hr-query-engine/internal/query/store"
)

const apologyPrefix = "I apologize, but I encountered an error processing your query: "

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Recorder receives per-query measurements.
type Recorder interface {
	QueryStarted()
	QueryFinished(qt models.QueryType, status models.Status, ds models.DataSource, d time.Duration)
	CacheLookup(hit bool)
	Fallback(reason string)
}

// Alert describes a query that ended in an error response.
type Alert struct {
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertPublisher forwards error alerts to an operator channel.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert Alert) error
}

type Config struct {
	PrimaryTimeout     time.Duration
	FallbackTimeout    time.Duration
	AlertTimeout       time.Duration
	FallbackConfidence float64
	FallbackLimit      int
}

func DefaultConfig() Config {
	return Config{
		PrimaryTimeout:     30 * time.Second,
		FallbackTimeout:    10 * time.Second,
		AlertTimeout:       5 * time.Second,
		FallbackConfidence: 0.7,
		FallbackLimit:      pipeline.DefaultLimit,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = d.PrimaryTimeout
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = d.FallbackTimeout
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = d.AlertTimeout
	}
	if c.FallbackConfidence <= 0 || c.FallbackConfidence > 1 {
		c.FallbackConfidence = d.FallbackConfidence
	}
	if c.FallbackLimit <= 0 || c.FallbackLimit > pipeline.MaxLimit {
		c.FallbackLimit = d.FallbackLimit
	}
	return c
}

// Dependencies are the collaborators of an Engine. Cache, Tracker, Alerts,
// Recorder and Tracer are optional.
type Dependencies struct {
	Classifier    intent.Classifier
	Keyword       *intent.KeywordClassifier
	Builder       *querycontext.Builder
	Synthesizer   *pipeline.Synthesizer
	Router        *router.Router
	Formatter     *response.Formatter
	FallbackStore store.AggregationStore

	Cache    cache.Cache
	Tracker  *analytics.Tracker
	Alerts   AlertPublisher
	Recorder Recorder
	Tracer   trace.Tracer
}

type Engine struct {
	classifier    intent.Classifier
	keyword       *intent.KeywordClassifier
	builder       *querycontext.Builder
	synth         *pipeline.Synthesizer
	router        *router.Router
	formatter     *response.Formatter
	fallbackStore store.AggregationStore
	cache         cache.Cache
	tracker       *analytics.Tracker
	alerts        AlertPublisher
	recorder      Recorder
	tracer        trace.Tracer
	config        Config
	logger        Logger
}

func New(deps Dependencies, config Config, log Logger) (*Engine, error) {
	switch {
	case deps.Classifier == nil:
		return nil, errors.New("engine: classifier is required")
	case deps.Keyword == nil:
		return nil, errors.New("engine: keyword classifier is required")
	case deps.Builder == nil || deps.Synthesizer == nil:
		return nil, errors.New("engine: context builder and synthesizer are required")
	case deps.Router == nil:
		return nil, errors.New("engine: router is required")
	case deps.Formatter == nil:
		return nil, errors.New("engine: formatter is required")
	case deps.FallbackStore == nil:
		return nil, errors.New("engine: fallback store is required")
	}

	e := &Engine{
		classifier:    deps.Classifier,
		keyword:       deps.Keyword,
		builder:       deps.Builder,
		synth:         deps.Synthesizer,
		router:        deps.Router,
		formatter:     deps.Formatter,
		fallbackStore: deps.FallbackStore,
		cache:         deps.Cache,
		tracker:       deps.Tracker,
		alerts:        deps.Alerts,
		recorder:      deps.Recorder,
		tracer:        deps.Tracer,
		config:        config.withDefaults(),
		logger: log.With(map[string]interface{}{
			"component": "query-engine",
		}),
	}
	if e.tracker == nil {
		e.tracker = analytics.NewTracker(analytics.DefaultHistory)
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("hr-query-engine")
	}
	return e, nil
}

// ProcessQuery answers a question. It never returns nil.
func (e *Engine) ProcessQuery(ctx context.Context, text string) *models.Envelope {
	return e.ProcessQueryWithFilters(ctx, text, nil)
}

// ProcessQueryWithFilters answers a question with extra entity filters
// (department, role, skill, location, limit) merged into the classified intent.
func (e *Engine) ProcessQueryWithFilters(ctx context.Context, text string, filters map[string]interface{}) *models.Envelope {
	start := time.Now()
	queryID := uuid.New().String()

	ctx, span := e.tracer.Start(ctx, "hr.process_query", trace.WithAttributes(
		attribute.String("query.id", queryID),
	))
	defer span.End()

	if e.recorder != nil {
		e.recorder.QueryStarted()
	}

	env := e.process(ctx, queryID, text, filters, start)
	env.QueryID = queryID
	env.ExecutionTimeMs = models.Millis(time.Since(start))
	if env.Timestamp.IsZero() {
		env.Timestamp = start.UTC()
	}

	span.SetAttributes(
		attribute.String("query.intent", string(env.Intent)),
		attribute.String("query.status", string(env.Status)),
		attribute.String("query.data_source", string(env.DataSource)),
		attribute.Bool("query.cache_hit", env.CacheHit),
	)
	if env.Status == models.StatusError {
		span.SetStatus(codes.Error, env.Error)
	}

	elapsed := time.Since(start)
	e.tracker.Track(analytics.FromEnvelope(env, elapsed))
	if e.recorder != nil {
		e.recorder.QueryFinished(env.Intent, env.Status, env.DataSource, elapsed)
	}

	e.logger.Info("query processed", map[string]interface{}{
		"queryId":    queryID,
		"intent":     env.Intent,
		"status":     env.Status,
		"dataSource": env.DataSource,
		"count":      env.Count,
		"cacheHit":   env.CacheHit,
		"took":       env.ExecutionTimeMs,
	})
	return env
}

func (e *Engine) process(ctx context.Context, queryID, text string, filters map[string]interface{}, start time.Time) *models.Envelope {
	if strings.TrimSpace(text) == "" {
		return e.errorResponse(ctx, queryID, text, fmt.Errorf("%w: empty query", intent.ErrIntentDetection))
	}

	key := cache.Key(text, filters)
	if env, ok := e.lookup(ctx, key); ok {
		env.Query = text
		env.CacheHit = true
		env.Timestamp = start.UTC()
		return env
	}

	var errs *multierror.Error
	errs = multierror.Append(errs)
	errs.ErrorFormat = joinErrors

	env, err := e.primary(ctx, text, filters)
	if err == nil {
		env.Timestamp = start.UTC()
		e.store(ctx, key, env)
		return env
	}
	errs = multierror.Append(errs, err)

	if ctx.Err() != nil {
		errs = multierror.Append(errs, ctx.Err())
		return e.errorResponse(ctx, queryID, text, errs.ErrorOrNil())
	}

	reason := errorCode(err)
	e.logger.Warn("primary pipeline failed, running fallback engine", map[string]interface{}{
		"queryId": queryID,
		"reason":  reason,
		"error":   err.Error(),
	})
	if e.recorder != nil {
		e.recorder.Fallback(reason)
	}

	env, err = e.fallback(ctx, text, filters)
	if err == nil {
		return env
	}
	errs = multierror.Append(errs, err)
	return e.errorResponse(ctx, queryID, text, errs.ErrorOrNil())
}

// primary runs classify, build, synthesize, route and format.
func (e *Engine) primary(ctx context.Context, text string, filters map[string]interface{}) (*models.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.PrimaryTimeout)
	defer cancel()

	cctx, span := e.tracer.Start(ctx, "hr.classify")
	qi, err := e.classifier.Classify(cctx, text)
	span.End()
	if err != nil {
		return nil, err
	}
	qi, err = e.applyFilters(qi, filters)
	if err != nil {
		return nil, err
	}

	_, span = e.tracer.Start(ctx, "hr.synthesize")
	qc := e.builder.Build(qi)
	plan, err := e.synth.Synthesize(qc)
	span.End()
	if err != nil {
		return nil, err
	}

	ectx, span := e.tracer.Start(ctx, "hr.execute")
	route := e.router.Route(text, qc, plan)
	span.SetAttributes(attribute.String("route.data_source", string(route.DataSource)))
	result := e.router.Execute(ectx, route)
	span.End()
	if result.Failed() {
		return nil, fmt.Errorf("%w: %s", router.ErrPipelineExecution,
			strings.TrimPrefix(result.Error(), router.ErrPipelineExecution.Error()+": "))
	}

	fctx, span := e.tracer.Start(ctx, "hr.format")
	answer, strategy := e.formatter.Format(fctx, text, qi, result)
	span.End()

	env := envelope(text, qi, result, answer, models.StatusSuccess)
	env.Suggestions = e.formatter.Suggestions(text, qi)
	e.logger.Info("primary pipeline answered", map[string]interface{}{
		"intent":     qi.QueryType,
		"classifier": qi.Strategy,
		"dataSource": result.Source,
		"formatter":  strategy,
	})
	return env, nil
}

func (e *Engine) lookup(ctx context.Context, key string) (*models.Envelope, bool) {
	if e.cache == nil {
		return nil, false
	}
	env, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if e.recorder != nil {
		e.recorder.CacheLookup(ok)
	}
	return env, ok
}

// store writes successful answers once, after formatting.
func (e *Engine) store(ctx context.Context, key string, env *models.Envelope) {
	if e.cache == nil || env.Status != models.StatusSuccess || env.Error != "" {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := e.cache.Set(ctx, key, env); err != nil {
		e.logger.Warn("cache store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (e *Engine) errorResponse(ctx context.Context, queryID, text string, err error) *models.Envelope {
	if err == nil {
		err = errors.New("unknown failure")
	}
	e.logger.Error("query failed", map[string]interface{}{
		"queryId": queryID,
		"error":   err.Error(),
	})

	env := &models.Envelope{
		Query:       text,
		DataSource:  models.DataSourceNone,
		Results:     []models.Row{},
		Response:    apologyPrefix + userMessage(err),
		Status:      models.StatusError,
		Suggestions: e.formatter.Suggestions(text, nil),
		Error:       err.Error(),
	}

	if e.alerts != nil && !errors.Is(err, intent.ErrIntentDetection) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.AlertTimeout)
		defer cancel()
		alert := Alert{QueryID: queryID, Query: text, Error: err.Error(), Timestamp: time.Now().UTC()}
		if perr := e.alerts.PublishAlert(actx, alert); perr != nil {
			e.logger.Warn("alert publish failed", map[string]interface{}{
				"queryId": queryID,
				"error":   perr.Error(),
			})
		}
	}
	return env
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, intent.ErrIntentDetection):
		return "the question could not be understood. Please rephrase it, for example \"How many employees work in IT?\""
	case errors.Is(err, context.Canceled):
		return "the request was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out. Please try again."
	}
	return "the HR data services are unavailable right now. Please try again shortly."
}

func envelope(text string, qi *models.QueryIntent, result *models.QueryResult, answer string, status models.Status) *models.Envelope {
	rows := result.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	return &models.Envelope{
		Query:      text,
		Intent:     qi.QueryType,
		Entities:   qi.Entities.Clone(),
		DataSource: result.Source,
		Results:    rows,
		Aggregates: result.Aggregates,
		Count:      result.Count,
		Response:   answer,
		Confidence: qi.Confidence,
		Status:     status,
	}
}

// errorCode is the leading upper-case code of a wrapped sentinel error.
func errorCode(err error) string {
	code, _, _ := strings.Cut(err.Error(), ":")
	return strings.TrimSpace(code)
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
