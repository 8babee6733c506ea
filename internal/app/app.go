// Package app assembles the query engine and its backends from configuration.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"hr-query-engine/internal/common/aws"
	"hr-query-engine/internal/common/config"
	"hr-query-engine/internal/common/database"
	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/common/logger"
	"hr-query-engine/internal/common/metrics"
	"hr-query-engine/internal/common/observability"
	"hr-query-engine/internal/query/analytics"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/engine"
	"hr-query-engine/internal/query/entities"
	"hr-query-engine/internal/query/intent"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/response"
	"hr-query-engine/internal/query/router"
	"hr-query-engine/internal/query/search"
	"hr-query-engine/internal/query/store"
)

const connectTimeout = 10 * time.Second

// App owns the engine and every connection opened to build it.
type App struct {
	Engine *engine.Engine
	Config *config.Config
	Log    logger.Logger

	closers []func() error
}

// Build wires the engine for cfg. Backends are chosen by the query section:
// memory stores run entirely from the fixture file.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (*App, error) {
	log := logger.NewZapAdapter(zapLog)
	a := &App{Config: cfg, Log: log}

	fail := func(err error) (*App, error) {
		_ = a.Close()
		return nil, err
	}

	lib := entities.Default()
	if path := cfg.Query.EntityLibrary; path != "" {
		loaded, err := entities.LoadFile(path)
		if err != nil {
			return fail(fmt.Errorf("load entity library: %w", err))
		}
		lib = loaded
	}

	var dataset store.Dataset
	needFixture := cfg.Query.StoreBackend == "memory" || cfg.Query.SearchBackend == "memory"
	if needFixture {
		data, err := store.LoadDataset(cfg.Query.FixturePath)
		if err != nil {
			return fail(err)
		}
		dataset = data
	}

	var pg *database.PostgresClient
	if cfg.Query.StoreBackend == "postgres" || cfg.Query.SearchBackend == "pgvector" {
		c, err := database.Connect(ctx, cfg.Database.Postgres, connectTimeout)
		if err != nil {
			return fail(fmt.Errorf("DATABASE_CONNECTION_FAILED: %w", err))
		}
		pg = c
		a.closers = append(a.closers, c.Close)
		log.Info("postgres connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})
	}

	var st store.AggregationStore
	switch cfg.Query.StoreBackend {
	case "postgres":
		st = store.NewPostgresStore(pg.DB, cfg.Database.Postgres.Schema, &storeLogger{log})
	default:
		st = store.NewMemoryStore(dataset, &storeLogger{log})
	}

	var completer llm.Completer
	var openaiClient *llm.OpenAIClient
	if cfg.APIs.GenAI.Provider != "" && cfg.APIs.GenAI.APIKey != "" {
		c, err := llm.NewOpenAIClient(llm.Config{
			Provider:       cfg.APIs.GenAI.Provider,
			BaseURL:        cfg.APIs.GenAI.BaseURL,
			APIKey:         cfg.APIs.GenAI.APIKey,
			APIVersion:     cfg.APIs.GenAI.APIVersion,
			Model:          cfg.APIs.GenAI.Model,
			EmbeddingModel: embeddingModel(cfg, "openai"),
			Dimensions:     cfg.APIs.Embedding.Dimensions,
			Timeout:        config.GetDuration(cfg.APIs.GenAI.Timeout),
			MaxRetries:     cfg.APIs.GenAI.MaxRetries,
		}, &llmLogger{log})
		if err != nil {
			return fail(err)
		}
		openaiClient = c
		completer = c
	} else {
		log.Warn("no completion service configured, using keyword classification and templates", nil)
	}

	embedder, err := buildEmbedder(ctx, cfg, openaiClient, log)
	if err != nil {
		return fail(err)
	}

	rec := metrics.NewRecorder()
	if cfg.Tracing.ServiceName != "" {
		obs := observability.New(cfg.Tracing.ServiceName)
		a.closers = append(a.closers, func() error { obs.Shutdown(); return nil })
		rec = metrics.NewRecorder(obs)
	}

	routerOpts := []router.Option{
		router.WithLibrary(lib),
		router.WithRecorder(rec),
	}
	searcher, err := buildSearcher(cfg, dataset, pg, log)
	if err != nil {
		return fail(err)
	}
	if searcher != nil {
		routerOpts = append(routerOpts, router.WithSearcher(searcher))
	}
	if embedder != nil {
		routerOpts = append(routerOpts, router.WithEmbedder(embedder))
	}

	resultCache, err := buildCache(ctx, cfg, log, a)
	if err != nil {
		return fail(err)
	}

	var alerts engine.AlertPublisher
	if sns := cfg.Notifications.SNS; sns.Enabled {
		p, err := aws.NewAlertPublisherFromRegion(ctx, sns.Region, sns.TopicARN, cfg.App.Name)
		if err != nil {
			return fail(err)
		}
		alerts = p
	}

	tracing, err := observability.NewTracing(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, func() error { tracing.Shutdown(); return nil })

	llmTimeout := config.GetDuration(cfg.Query.LLMTimeout)
	var primary intent.Classifier
	if completer != nil {
		ic := intent.DefaultLLMConfig()
		ic.Timeout = llmTimeout
		primary = intent.NewLLMClassifier(completer, lib, ic, &intentLogger{log})
	}
	keyword := intent.NewKeywordClassifier(lib)

	rc := config.GetDuration
	formatterConfig := response.DefaultConfig()
	formatterConfig.Timeout = llmTimeout

	eng, err := engine.New(engine.Dependencies{
		Classifier: intent.NewChainClassifier(primary, keyword, &intentLogger{log}),
		Keyword:    keyword,
		Builder:    querycontext.NewBuilder(cfg.Query.Thresholds.WithDefaults(), &contextLogger{log}),
		Synthesizer: pipeline.NewSynthesizer(pipeline.Config{
			DefaultLimit: cfg.Query.DefaultLimit,
			MaxLimit:     cfg.Query.MaxLimit,
		}, &pipelineLogger{log}),
		Router: router.New(st, router.Config{
			StoreTimeout:  rc(cfg.Query.StoreTimeout),
			SearchTimeout: rc(cfg.Query.SearchTimeout),
			EmbedTimeout:  llmTimeout,
			MaxAttempts:   cfg.Query.MaxRetries,
			TopK:          cfg.Query.SearchTopK,
		}, &routerLogger{log}, routerOpts...),
		Formatter:     response.NewFormatter(completer, lib, formatterConfig, &responseLogger{log}),
		FallbackStore: st,
		Cache:         resultCache,
		Tracker:       analytics.NewTracker(cfg.Query.History),
		Alerts:        alerts,
		Recorder:      rec,
		Tracer:        tracing.Tracer(),
	}, engine.Config{
		PrimaryTimeout:  rc(cfg.Query.PrimaryTimeout),
		FallbackTimeout: rc(cfg.Query.FallbackTimeout),
		FallbackLimit:   cfg.Query.DefaultLimit,
	}, &engineLogger{log})
	if err != nil {
		return fail(err)
	}
	a.Engine = eng

	log.Info("query engine ready", map[string]interface{}{
		"store":  cfg.Query.StoreBackend,
		"search": cfg.Query.SearchBackend,
		"cache":  cfg.Query.Cache.Backend,
		"llm":    completer != nil,
	})
	return a, nil
}

func embeddingModel(cfg *config.Config, provider string) string {
	if strings.EqualFold(cfg.APIs.Embedding.Provider, provider) {
		return cfg.APIs.Embedding.Model
	}
	return ""
}

func buildEmbedder(ctx context.Context, cfg *config.Config, openaiClient *llm.OpenAIClient, log logger.Logger) (llm.Embedder, error) {
	switch strings.ToLower(cfg.APIs.Embedding.Provider) {
	case "":
		return nil, nil
	case "gemini":
		return llm.NewGeminiEmbedder(ctx, cfg.APIs.Embedding.APIKey, cfg.APIs.Embedding.Model)
	case "openai":
		if openaiClient != nil {
			return openaiClient, nil
		}
		return llm.NewOpenAIClient(llm.Config{
			Provider:       "openai",
			APIKey:         cfg.APIs.Embedding.APIKey,
			EmbeddingModel: cfg.APIs.Embedding.Model,
			Dimensions:     cfg.APIs.Embedding.Dimensions,
			MaxRetries:     cfg.APIs.GenAI.MaxRetries,
		}, &llmLogger{log})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.APIs.Embedding.Provider)
	}
}

func buildSearcher(cfg *config.Config, dataset store.Dataset, pg *database.PostgresClient, log logger.Logger) (search.RankedSearcher, error) {
	switch cfg.Query.SearchBackend {
	case "memory":
		return search.NewMemorySearcher(dataset.Documents(), &searchLogger{log}), nil
	case "elasticsearch":
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("ELASTICSEARCH_CONNECTION_FAILED: %w", err)
		}
		esConfig := search.DefaultElasticsearchConfig()
		esConfig.Index = cfg.Database.Elasticsearch.Index
		return search.NewElasticsearchSearcher(es.Client, esConfig, &searchLogger{log}), nil
	case "pgvector":
		return search.NewPgvectorSearcher(pg.DB, cfg.Database.Postgres.EmbeddingTable, &searchLogger{log}), nil
	default:
		return nil, nil
	}
}

func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger, a *App) (cache.Cache, error) {
	cc := cfg.Query.Cache
	ttl := time.Duration(cc.TTL) * time.Second

	var redisTier cache.Cache
	if cc.Backend == "redis" || cc.Backend == "tiered" {
		rdb, err := database.ConnectRedis(ctx, cfg.Database.Redis, connectTimeout)
		if err != nil {
			if cc.Backend == "redis" {
				return nil, fmt.Errorf("CACHE_ERROR: %w", err)
			}
			log.Warn("redis unavailable, tiered cache runs in-process only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			a.closers = append(a.closers, rdb.Close)
			redisTier = cache.NewRedisCache(rdb.Client, cc.Prefix, ttl, &cacheLogger{log})
		}
	}

	switch cc.Backend {
	case "none":
		return nil, nil
	case "redis":
		return redisTier, nil
	case "tiered":
		tiers := []cache.Cache{cache.NewMemoryCache(ttl, cc.Capacity)}
		if redisTier != nil {
			tiers = append(tiers, redisTier)
		}
		return cache.NewTiered(&cacheLogger{log}, tiers...), nil
	default:
		return cache.NewMemoryCache(ttl, cc.Capacity), nil
	}
}

// Close releases every connection opened by Build.
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}
