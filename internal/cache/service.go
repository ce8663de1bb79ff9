// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package cache

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/qualisight/qualisight/internal/logging"
)

// Factory produces the value for a cache miss, typically by querying the
// database layer. Failures propagate to the caller unmodified and are never
// cached.
type Factory func(ctx context.Context) (any, error)

// WarmupQuery declares one query to pre-populate during cache warm-up.
type WarmupQuery struct {
	QueryID string
	Params  map[string]any
	TTL     time.Duration // zero selects the categorized default
	Factory Factory
}

// Service is the caching facade consumed by query handlers. It combines key
// generation, categorized TTL assignment, and the bounded Store.
//
// Construct one Service at process start and pass it by reference; the
// package deliberately exports no shared instance.
type Service struct {
	store *Store
}

// NewService creates a cache service over a store bounded at maxEntries
// (DefaultMaxEntries when non-positive).
func NewService(maxEntries int) *Service {
	return &Service{store: NewStore(maxEntries)}
}

// Get returns the cached value for key, or (nil, false) on a miss.
func (s *Service) Get(key string) (any, bool) {
	return s.store.Get(key)
}

// Set caches data under key with a TTL resolved from the key's query
// identifier category.
func (s *Service) Set(key string, data any) {
	s.store.Set(key, data, ResolveTTL(queryIDOf(key)))
}

// SetTTL caches data under key with an explicit TTL, bypassing category
// resolution.
func (s *Service) SetTTL(key string, data any, ttl time.Duration) {
	s.store.Set(key, data, ttl)
}

// GetOrSet resolves the cache key for (queryID, params), returns the cached
// value on a hit, and otherwise invokes factory, caches its result under the
// categorized TTL, and returns it.
//
// There is no single-flight guarantee: concurrent callers missing on the same
// key will each invoke factory and each write the result. Factory errors
// propagate unmodified and leave the cache untouched.
func (s *Service) GetOrSet(ctx context.Context, queryID string, params map[string]any, factory Factory) (any, error) {
	return s.GetOrSetTTL(ctx, queryID, params, factory, ResolveTTL(queryID))
}

// GetOrSetTTL is GetOrSet with an explicit TTL.
func (s *Service) GetOrSetTTL(ctx context.Context, queryID string, params map[string]any, factory Factory, ttl time.Duration) (any, error) {
	key := GenerateKey(queryID, params)

	if data, ok := s.store.Get(key); ok {
		return data, nil
	}

	data, err := factory(ctx)
	if err != nil {
		return nil, err
	}

	s.store.Set(key, data, ttl)
	return data, nil
}

// Invalidate removes the exact key, reporting whether an entry existed.
func (s *Service) Invalidate(key string) bool {
	return s.store.Delete(key)
}

// InvalidatePattern removes every key matching the regular expression and
// returns the number removed. An invalid pattern removes nothing.
func (s *Service) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}
	return s.store.DeleteFunc(re.MatchString), nil
}

// InvalidateQuery removes the bare queryID key and every parameterized
// "queryID:..." variant, returning the number removed. Call it after a write
// to the entity the query reads so stale shapes are dropped together.
func (s *Service) InvalidateQuery(queryID string) int {
	prefix := queryID + ":"
	return s.store.DeleteFunc(func(key string) bool {
		return key == queryID || strings.HasPrefix(key, prefix)
	})
}

// Clear drops every entry.
func (s *Service) Clear() {
	s.store.Clear()
}

// EvictLRU removes up to count entries with the fewest hits and returns the
// number removed.
func (s *Service) EvictLRU(count int) int {
	return s.store.EvictLRU(count)
}

// Cleanup sweeps expired entries and returns the number removed.
func (s *Service) Cleanup() int {
	return s.store.Cleanup()
}

// Stats returns the current store statistics snapshot.
func (s *Service) Stats() Stats {
	return s.store.Stats()
}

// Entries lists live entries for administrative display.
func (s *Service) Entries() []EntryInfo {
	return s.store.Entries()
}

// Warmup sequentially executes GetOrSet for each declared query and returns
// the number that succeeded. A failing query is logged and skipped; it never
// aborts the rest of the batch.
func (s *Service) Warmup(ctx context.Context, queries []WarmupQuery) int {
	warmed := 0
	for _, q := range queries {
		ttl := q.TTL
		if ttl <= 0 {
			ttl = ResolveTTL(q.QueryID)
		}
		if _, err := s.GetOrSetTTL(ctx, q.QueryID, q.Params, q.Factory, ttl); err != nil {
			logging.Warn().
				Err(err).
				Str("query_id", q.QueryID).
				Msg("Cache warmup query failed")
			continue
		}
		warmed++
	}
	logging.Info().
		Int("warmed", warmed).
		Int("total", len(queries)).
		Msg("Cache warmup complete")
	return warmed
}
