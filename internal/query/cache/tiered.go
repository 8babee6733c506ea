package cache

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	"hr-query-engine/internal/models"
)

// Tiered looks tiers up in order and back-fills the faster tiers on a hit
// from a slower one. A back-filled entry expires when its source entry does.
// Writes go to every tier.
type Tiered struct {
	tiers  []Cache
	logger Logger
	stats  counters
}

func NewTiered(log Logger, tiers ...Cache) *Tiered {
	return &Tiered{
		tiers: tiers,
		logger: log.With(map[string]interface{}{
			"component": "tiered-cache",
		}),
	}
}

func (t *Tiered) Get(ctx context.Context, key string) (*models.Envelope, bool, error) {
	var result *multierror.Error
	for i, tier := range t.tiers {
		env, remaining, ok, err := getWithTTL(ctx, tier, key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !ok {
			continue
		}
		for _, upper := range t.tiers[:i] {
			if err := setWithTTL(ctx, upper, key, env, remaining); err != nil {
				t.logger.Warn("cache back-fill failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
		t.stats.hits.Inc()
		return env, true, nil
	}
	t.stats.misses.Inc()
	if result != nil {
		t.stats.errors.Inc()
	}
	return nil, false, result.ErrorOrNil()
}

func (t *Tiered) Set(ctx context.Context, key string, env *models.Envelope) error {
	var result *multierror.Error
	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, env); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		t.stats.errors.Inc()
		return result.ErrorOrNil()
	}
	t.stats.sets.Inc()
	return nil
}

func (t *Tiered) Clear(ctx context.Context) error {
	var result *multierror.Error
	for _, tier := range t.tiers {
		if err := tier.Clear(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// ClearExpired purges expired entries from the in-process tiers.
func (t *Tiered) ClearExpired() int {
	n := 0
	for _, tier := range t.tiers {
		if m, ok := tier.(*MemoryCache); ok {
			n += m.ClearExpired()
		}
	}
	return n
}

func (t *Tiered) Stats() Stats {
	size := 0
	tiers := make([]Stats, len(t.tiers))
	for i, tier := range t.tiers {
		tiers[i] = tier.Stats()
		if tiers[i].Size > 0 {
			size += tiers[i].Size
		}
	}
	s := t.stats.snapshot("tiered", size)
	s.Tiers = tiers
	return s
}

type ttlReader interface {
	GetWithTTL(ctx context.Context, key string) (*models.Envelope, time.Duration, bool, error)
}

type ttlWriter interface {
	SetWithTTL(ctx context.Context, key string, env *models.Envelope, ttl time.Duration) error
}

// getWithTTL reports a remaining lifetime of 0 when the tier cannot tell.
func getWithTTL(ctx context.Context, tier Cache, key string) (*models.Envelope, time.Duration, bool, error) {
	if r, ok := tier.(ttlReader); ok {
		return r.GetWithTTL(ctx, key)
	}
	env, ok, err := tier.Get(ctx, key)
	return env, 0, ok, err
}

func setWithTTL(ctx context.Context, tier Cache, key string, env *models.Envelope, ttl time.Duration) error {
	if w, ok := tier.(ttlWriter); ok && ttl > 0 {
		return w.SetWithTTL(ctx, key, env, ttl)
	}
	return tier.Set(ctx, key, env)
}
