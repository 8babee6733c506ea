// Package cache stores answered envelopes keyed by normalized query text.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/atomic"

	"hr-query-engine/internal/models"
)

var ErrCache = errors.New("CACHE_ERROR")

const DefaultTTL = 300 * time.Second

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Cache is a result cache. A miss is (nil, false, nil); errors are returned
// wrapped in ErrCache and callers treat them as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Envelope, bool, error)
	Set(ctx context.Context, key string, env *models.Envelope) error
	Clear(ctx context.Context) error
	Stats() Stats
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Backend   string  `json:"backend"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Expired   int64   `json:"expired"`
	Errors    int64   `json:"errors"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
	Tiers     []Stats `json:"tiers,omitempty"`
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64
	errors    atomic.Int64
}

func (c *counters) snapshot(backend string, size int) Stats {
	s := Stats{
		Backend:   backend,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
		Errors:    c.errors.Load(),
		Size:      size,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.evictions.Store(0)
	c.expired.Store(0)
	c.errors.Store(0)
}

type keyMaterial struct {
	Query   string                 `json:"query"`
	Filters map[string]interface{} `json:"filters"`
}

// Key hashes the lower-cased, whitespace-collapsed query with its filters.
// encoding/json writes map keys sorted, so filter order does not matter.
func Key(query string, filters map[string]interface{}) string {
	if filters == nil {
		filters = map[string]interface{}{}
	}
	raw, err := json.Marshal(keyMaterial{
		Query:   Normalize(query),
		Filters: filters,
	})
	if err != nil {
		raw = []byte(Normalize(query))
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// Normalize lower-cases a query and collapses its whitespace.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
