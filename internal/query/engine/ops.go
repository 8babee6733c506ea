package engine

import (
	"context"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/analytics"
	"hr-query-engine/internal/query/cache"
)

const maxQuerySuggestions = 5

// DefaultWarmUpQueries are answered at start-up to prime the cache.
var DefaultWarmUpQueries = []string{
	"How many employees work in IT?",
	"How many employees work in each department?",
	"Show top 5 performers",
	"What is the average salary by department?",
	"Find employees with AWS certification",
	"Show employees with maximum leave",
}

type WarmUpReport struct {
	Warmed int `json:"warmed_queries"`
	Failed int `json:"failed_queries"`
}

// WarmUp answers each query once; only primary successes end up cached.
func (e *Engine) WarmUp(ctx context.Context, queries []string) WarmUpReport {
	if len(queries) == 0 {
		queries = DefaultWarmUpQueries
	}
	var rep WarmUpReport
	for _, q := range queries {
		if ctx.Err() != nil {
			rep.Failed++
			continue
		}
		if env := e.ProcessQuery(ctx, q); env.Status == models.StatusSuccess {
			rep.Warmed++
		} else {
			rep.Failed++
		}
	}
	e.logger.Info("cache warm-up completed", map[string]interface{}{
		"warmed": rep.Warmed,
		"failed": rep.Failed,
	})
	return rep
}

// ClearCache empties the cache and reports how many in-process entries were removed.
func (e *Engine) ClearCache(ctx context.Context) (int, error) {
	if e.cache == nil {
		return 0, nil
	}
	removed := e.cache.Stats().Size
	if removed < 0 {
		removed = 0
	}
	if err := e.cache.Clear(ctx); err != nil {
		return 0, err
	}
	e.logger.Info("cache cleared", map[string]interface{}{
		"removed": removed,
	})
	return removed, nil
}

func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{Backend: "disabled"}
	}
	return e.cache.Stats()
}

type SystemHealth struct {
	TotalQueries      int64   `json:"total_queries_processed"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	AverageResponseMs float64 `json:"average_response_time_ms"`
}

type PerformanceReport struct {
	Cache   cache.Stats      `json:"cache_stats"`
	Queries analytics.Report `json:"query_analytics"`
	Health  SystemHealth     `json:"system_health"`
}

func (e *Engine) PerformanceAnalytics() PerformanceReport {
	rep := e.tracker.Report()
	stats := e.CacheStats()
	return PerformanceReport{
		Cache:   stats,
		Queries: rep,
		Health: SystemHealth{
			TotalQueries:      rep.TotalQueries,
			CacheHitRate:      rep.CacheHitRate,
			AverageResponseMs: rep.AverageDurationMs,
		},
	}
}

// QuerySuggestions completes a partial question from popular history and
// the built-in examples.
func (e *Engine) QuerySuggestions(partial string) []string {
	p := strings.ToLower(strings.TrimSpace(partial))

	candidates := make([]string, 0, 16)
	for _, c := range e.tracker.Report().PopularQueries {
		candidates = append(candidates, c.Value)
	}
	candidates = append(candidates, DefaultWarmUpQueries...)
	candidates = append(candidates, e.formatter.Suggestions(partial, nil)...)

	seen := map[string]bool{}
	var prefix, contains []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if seen[lc] || lc == p {
			continue
		}
		seen[lc] = true
		switch {
		case p == "" || strings.HasPrefix(lc, p):
			prefix = append(prefix, c)
		case strings.Contains(lc, p):
			contains = append(contains, c)
		}
	}
	out := append(prefix, contains...)
	if len(out) > maxQuerySuggestions {
		out = out[:maxQuerySuggestions]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Ready reports whether the fallback store can serve queries.
func (e *Engine) Ready(ctx context.Context) error {
	return e.fallbackStore.Ping(ctx)
}
