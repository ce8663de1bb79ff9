// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/qualisight/qualisight/internal/metrics"
)

// DefaultMaxEntries bounds the store when no explicit capacity is configured.
const DefaultMaxEntries = 1000

// entryOverhead is the fixed per-entry bookkeeping cost used by the memory
// footprint estimate, covering the entry struct and map slot.
const entryOverhead = 100

// Entry is a cached value with its lifetime and usage accounting.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
	Hits      int64
}

// expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Stats is a point-in-time view of store contents and hit/miss accounting
// accumulated since the store was created. It is recomputed on every call,
// never persisted.
type Stats struct {
	TotalEntries   int            `json:"total_entries"`
	TotalHits      int64          `json:"total_hits"`
	TotalMisses    int64          `json:"total_misses"`
	HitRate        float64        `json:"hit_rate"`
	OldestEntry    time.Time      `json:"oldest_entry"`
	NewestEntry    time.Time      `json:"newest_entry"`
	Categories     map[string]int `json:"categories"`
	EstimatedBytes int64          `json:"estimated_bytes"`
}

// EntryInfo describes a live cache entry for administrative listings.
type EntryInfo struct {
	Key       string        `json:"key"`
	Hits      int64         `json:"hits"`
	Age       time.Duration `json:"age"`
	TTL       time.Duration `json:"ttl"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// Store is a bounded in-memory key-value store with per-entry TTLs.
//
// When an insert would exceed capacity the single oldest entry by insertion
// time is evicted first. Expired entries are deleted lazily on read and in
// bulk by Cleanup. All operations are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxEntries int

	hits   int64
	misses int64

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewStore creates a store holding at most maxEntries entries. Non-positive
// capacities fall back to DefaultMaxEntries.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries:    make(map[string]*Entry, maxEntries),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key, or (nil, false) on a miss. An entry
// past its TTL counts as a miss and is removed. A hit increments the entry's
// hit counter.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}

	if entry.expired(s.now()) {
		delete(s.entries, key)
		s.misses++
		metrics.CacheMisses.Inc()
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		metrics.CacheEntries.Set(float64(len(s.entries)))
		return nil, false
	}

	entry.Hits++
	s.hits++
	metrics.CacheHits.Inc()
	return entry.Data, true
}

// Set stores data under key with the given TTL, overwriting any existing
// entry. If the store is at capacity the oldest entry is evicted first.
func (s *Store) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	s.entries[key] = &Entry{
		Data:      data,
		Timestamp: s.now(),
		TTL:       ttl,
	}
	metrics.CacheEntries.Set(float64(len(s.entries)))
}

// Delete removes the entry for key, reporting whether one existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	metrics.CacheEvictions.WithLabelValues("invalidated").Inc()
	metrics.CacheEntries.Set(float64(len(s.entries)))
	return true
}

// DeleteFunc removes every entry whose key matches the predicate and returns
// the number removed.
func (s *Store) DeleteFunc(match func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if match(key) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("invalidated").Add(float64(removed))
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return removed
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = make(map[string]*Entry, s.maxEntries)
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("invalidated").Add(float64(removed))
	}
	metrics.CacheEntries.Set(0)
}

// EvictOldest removes the single oldest entry by insertion time, reporting
// whether anything was evicted. This is the automatic overflow policy.
func (s *Store) EvictOldest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictOldestLocked()
}

func (s *Store) evictOldestLocked() bool {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range s.entries {
		if first || entry.Timestamp.Before(oldest) {
			oldestKey = key
			oldest = entry.Timestamp
			first = false
		}
	}
	if first {
		return false
	}
	delete(s.entries, oldestKey)
	metrics.CacheEvictions.WithLabelValues("overflow").Inc()
	metrics.CacheEntries.Set(float64(len(s.entries)))
	return true
}

// EvictLRU removes up to count entries with the lowest hit counts and returns
// the number removed. Hit count approximates recency of use here; this is the
// operator-triggered pressure-relief policy, distinct from the oldest-by-age
// overflow policy.
func (s *Store) EvictLRU(count int) int {
	if count <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type keyHits struct {
		key  string
		hits int64
	}
	candidates := make([]keyHits, 0, len(s.entries))
	for key, entry := range s.entries {
		candidates = append(candidates, keyHits{key: key, hits: entry.Hits})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].hits != candidates[j].hits {
			return candidates[i].hits < candidates[j].hits
		}
		return candidates[i].key < candidates[j].key
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	for _, c := range candidates[:count] {
		delete(s.entries, c.key)
	}
	if count > 0 {
		metrics.CacheEvictions.WithLabelValues("lru").Add(float64(count))
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return count
}

// Cleanup sweeps all currently-expired entries and returns the number
// removed. It is not self-scheduling; run it from a janitor.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
		metrics.CacheEntries.Set(float64(len(s.entries)))
	}
	return removed
}

// Len returns the current number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats computes a snapshot of store contents and accumulated hit/miss
// counters. The memory estimate assumes two bytes per key/value character
// (UTF-16 approximation) plus a fixed per-entry overhead.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(s.entries),
		TotalHits:    s.hits,
		TotalMisses:  s.misses,
		Categories:   make(map[string]int),
	}
	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = float64(s.hits) / float64(total)
	}

	var estimated int64
	first := true
	for key, entry := range s.entries {
		stats.Categories[categoryOf(key)]++

		if first || entry.Timestamp.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.Timestamp
		}
		if first || entry.Timestamp.After(stats.NewestEntry) {
			stats.NewestEntry = entry.Timestamp
		}
		first = false

		estimated += int64(len(key)) * 2
		if data, err := json.Marshal(entry.Data); err == nil {
			estimated += int64(len(data)) * 2
		}
		estimated += entryOverhead
	}
	stats.EstimatedBytes = estimated

	return stats
}

// Entries lists live entries for administrative display, skipping any that
// have expired but not yet been swept.
func (s *Store) Entries() []EntryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	infos := make([]EntryInfo, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		age := now.Sub(entry.Timestamp)
		infos = append(infos, EntryInfo{
			Key:       key,
			Hits:      entry.Hits,
			Age:       age,
			TTL:       entry.TTL,
			ExpiresIn: entry.TTL - age,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}
