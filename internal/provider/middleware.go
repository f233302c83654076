// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// guard wraps a provider with a per-provider rate limiter and an in-process
// response cache. Repeated identical queries within the TTL are served from
// the cache without consuming upstream quota.
type guard struct {
	Provider

	limiter *rate.Limiter
	cache   *gocache.Cache
}

// Guarded applies the configured rate limit and response cache to p. With
// both disabled the provider is returned unchanged.
func Guarded(p Provider, cfg types.SearchConfig) Provider {
	g := &guard{Provider: p}
	if cfg.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	if cfg.CacheTTL > 0 {
		g.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	if g.limiter == nil && g.cache == nil {
		return p
	}
	return g
}

// Execute serves from cache when possible, otherwise waits for the rate
// limiter and delegates to the wrapped provider. Only successful responses
// are cached.
func (g *guard) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	key := cacheKey(query)
	if g.cache != nil {
		if hit, ok := g.cache.Get(key); ok {
			return hit.([]json.RawMessage), nil
		}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	records, err := g.Provider.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Set(key, records, gocache.DefaultExpiration)
	}
	return records, nil
}

func cacheKey(q types.ProviderQuery) string {
	parts := []string{q.ProviderID, q.Query}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+q.Filters[k])
	}
	return strings.Join(parts, "|")
}
