// Package analytics keeps a bounded history of query outcomes for reporting.
package analytics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"hr-query-engine/internal/models"
)

const (
	DefaultHistory = 1000
	TrendingWindow = 24 * time.Hour

	topQueries  = 10
	topErrors   = 10
	topTrending = 10
)

// Record is one processed query.
type Record struct {
	Query       string            `json:"query"`
	Intent      models.QueryType  `json:"intent"`
	Status      models.Status     `json:"status"`
	DataSource  models.DataSource `json:"data_source"`
	Duration    time.Duration     `json:"duration"`
	ResultCount int               `json:"result_count"`
	CacheHit    bool              `json:"cache_hit"`
	Error       string            `json:"error,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// FromEnvelope builds a record from a finished envelope.
func FromEnvelope(env *models.Envelope, d time.Duration) Record {
	return Record{
		Query:       env.Query,
		Intent:      env.Intent,
		Status:      env.Status,
		DataSource:  env.DataSource,
		Duration:    d,
		ResultCount: env.Count,
		CacheHit:    env.CacheHit,
		Error:       env.Error,
		Timestamp:   env.Timestamp,
	}
}

// Tracker is a fixed-size ring of the most recent records.
type Tracker struct {
	mu    sync.Mutex
	ring  []Record
	next  int
	full  bool
	total int64
	now   func() time.Time
}

func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultHistory
	}
	return &Tracker{ring: make([]Record, size), now: time.Now}
}

func (t *Tracker) Track(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring[t.next] = r
	t.next = (t.next + 1) % len(t.ring)
	if t.next == 0 {
		t.full = true
	}
	t.total++
}

// Records returns the retained history, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records()
}

func (t *Tracker) records() []Record {
	if !t.full {
		return append([]Record(nil), t.ring[:t.next]...)
	}
	out := make([]Record, 0, len(t.ring))
	out = append(out, t.ring[t.next:]...)
	return append(out, t.ring[:t.next]...)
}

// Count is one entry of a ranked frequency list.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Report struct {
	TotalQueries      int64                        `json:"total_queries"`
	Retained          int                          `json:"retained"`
	SuccessRate       float64                      `json:"success_rate"`
	FallbackRate      float64                      `json:"fallback_rate"`
	ErrorRate         float64                      `json:"error_rate"`
	CacheHitRate      float64                      `json:"cache_hit_rate"`
	AverageDurationMs float64                      `json:"average_duration_ms"`
	AverageByIntentMs map[models.QueryType]float64 `json:"average_by_intent_ms"`
	PopularQueries    []Count                      `json:"popular_queries"`
	ErrorPatterns     []Count                      `json:"error_patterns"`
	TrendingTopics    []string                     `json:"trending_topics"`
}

// Report summarizes the retained history. Rates are fractions in [0,1].
func (t *Tracker) Report() Report {
	t.mu.Lock()
	recs := t.records()
	total := t.total
	now := t.now()
	t.mu.Unlock()

	rep := Report{
		TotalQueries:      total,
		Retained:          len(recs),
		AverageByIntentMs: map[models.QueryType]float64{},
		PopularQueries:    []Count{},
		ErrorPatterns:     []Count{},
		TrendingTopics:    []string{},
	}
	if len(recs) == 0 {
		return rep
	}

	var success, fallback, failed, hits int
	var sum time.Duration
	byIntent := map[models.QueryType][]time.Duration{}
	popular := map[string]int{}
	errs := map[string]int{}
	words := map[string]int{}
	cutoff := now.Add(-TrendingWindow)

	for _, r := range recs {
		switch r.Status {
		case models.StatusSuccess:
			success++
		case models.StatusSuccessFallback:
			fallback++
		default:
			failed++
		}
		if r.CacheHit {
			hits++
		}
		sum += r.Duration
		byIntent[r.Intent] = append(byIntent[r.Intent], r.Duration)

		if r.Status == models.StatusError {
			errs[errorPattern(r)]++
		} else {
			popular[strings.ToLower(strings.TrimSpace(r.Query))]++
		}
		if r.Timestamp.After(cutoff) {
			for _, w := range strings.Fields(strings.ToLower(r.Query)) {
				w = strings.Trim(w, "?!.,;:\"'()")
				if len(w) > 3 {
					words[w]++
				}
			}
		}
	}

	n := float64(len(recs))
	rep.SuccessRate = float64(success) / n
	rep.FallbackRate = float64(fallback) / n
	rep.ErrorRate = float64(failed) / n
	rep.CacheHitRate = float64(hits) / n
	rep.AverageDurationMs = models.Millis(sum) / n
	for intent, ds := range byIntent {
		var s time.Duration
		for _, d := range ds {
			s += d
		}
		rep.AverageByIntentMs[intent] = models.Millis(s) / float64(len(ds))
	}
	rep.PopularQueries = ranked(popular, topQueries)
	rep.ErrorPatterns = ranked(errs, topErrors)
	for _, c := range ranked(words, topTrending) {
		rep.TrendingTopics = append(rep.TrendingTopics, c.Value)
	}
	return rep
}

// errorPattern reduces an error to its leading code, falling back to the intent.
func errorPattern(r Record) string {
	if r.Error != "" {
		code, _, _ := strings.Cut(r.Error, ":")
		return strings.TrimSpace(code)
	}
	if r.Intent != "" {
		return string(r.Intent)
	}
	return "unknown"
}

// ranked sorts by count descending then value, truncated to n.
func ranked(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
