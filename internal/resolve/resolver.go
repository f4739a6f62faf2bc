// Package resolve maps free-text unit and food names to store ids, caching
// every successful lookup for the life of the resolver.
package resolve

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/resilience"
	"github.com/sells-group/recipe-miner/internal/store"
)

// FallbackUnit is used when a unit name matches neither a unit name nor an
// abbreviation.
const FallbackUnit = "piece"

// Stats counts resolver outcomes.
type Stats struct {
	UnitHits      int `json:"unit_hits"`
	UnitLookups   int `json:"unit_lookups"`
	UnitFallbacks int `json:"unit_fallbacks"`
	UnitMisses    int `json:"unit_misses"`
	FoodHits      int `json:"food_hits"`
	FoodLookups   int `json:"food_lookups"`
	FoodMisses    int `json:"food_misses"`
}

type foodKey struct {
	name    string
	spaceID string
}

// Resolver is safe for concurrent use.
type Resolver struct {
	lookup store.Lookup
	userID string
	retry  resilience.RetryConfig

	mu    sync.Mutex
	units map[string]string
	foods map[foodKey]string
	stats Stats
}

// New creates a Resolver. Foods it creates are owned by userID.
func New(lookup store.Lookup, userID string) *Resolver {
	return &Resolver{
		lookup: lookup,
		userID: userID,
		retry:  resilience.DefaultRetryConfig(),
		units:  make(map[string]string),
		foods:  make(map[foodKey]string),
	}
}

// WithRetry replaces the retry policy used for unit lookups.
func (r *Resolver) WithRetry(cfg resilience.RetryConfig) *Resolver {
	r.retry = cfg
	return r
}

// ResolveUnit returns the id for a unit name. It tries the cache, an exact
// name match, an abbreviation match and finally the "piece" unit. Failed
// resolutions are not cached.
func (r *Resolver) ResolveUnit(ctx context.Context, name string) (string, bool) {
	key := strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.units[key]; ok {
		r.stats.UnitHits++
		return id, true
	}
	r.stats.UnitLookups++

	log := zap.L().With(zap.String("unit", key))

	if key != "" {
		for _, field := range []store.UnitField{store.UnitByName, store.UnitByAbbreviation} {
			id, err := r.findUnit(ctx, field, key)
			if err != nil {
				log.Warn("resolve: unit lookup failed", zap.String("field", string(field)), zap.Error(err))
				r.stats.UnitMisses++
				return "", false
			}
			if id != "" {
				r.units[key] = id
				return id, true
			}
		}
	}

	id, err := r.findUnit(ctx, store.UnitByName, FallbackUnit)
	if err != nil || id == "" {
		log.Warn("resolve: could not find unit", zap.Error(err))
		r.stats.UnitMisses++
		return "", false
	}
	log.Info("resolve: using fallback unit", zap.String("fallback", FallbackUnit))
	r.stats.UnitFallbacks++
	r.units[key] = id
	return id, true
}

func (r *Resolver) findUnit(ctx context.Context, field store.UnitField, value string) (string, error) {
	retry := r.retry
	retry.OnRetry = resilience.RetryLogger("store", "find_unit")
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return r.lookup.FindUnit(ctx, field, value)
	})
}

// ResolveFood returns the id of the food called name in spaceID, creating
// it when the store has no match. Identical names in different spaces
// resolve independently.
func (r *Resolver) ResolveFood(ctx context.Context, name, spaceID string) (string, bool) {
	key := foodKey{name: strings.TrimSpace(name), spaceID: spaceID}
	if key.name == "" {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.foods[key]; ok {
		r.stats.FoodHits++
		return id, true
	}
	r.stats.FoodLookups++

	id, err := r.lookup.FindOrCreateFood(ctx, store.FoodRequest{
		Name:    key.name,
		SpaceID: spaceID,
		UserID:  r.userID,
		Source:  store.FoodSourceMiner,
	})
	if err != nil || id == "" {
		zap.L().Warn("resolve: could not resolve food",
			zap.String("food", key.name),
			zap.String("space_id", spaceID),
			zap.Error(err),
		)
		r.stats.FoodMisses++
		return "", false
	}
	r.foods[key] = id
	return id, true
}

// ClearCache empties both caches. Counters are kept.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.units)
	clear(r.foods)
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
