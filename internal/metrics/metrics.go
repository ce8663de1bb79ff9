// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package metrics exposes Prometheus instrumentation for the cache, session,
// and memory-monitoring subsystems. Metrics are registered with the default
// registry via promauto and served at /metrics by the admin API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Query cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualisight_cache_hits_total",
			Help: "Total number of query cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualisight_cache_misses_total",
			Help: "Total number of query cache misses",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualisight_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "expired", "overflow", "lru", "invalidated"
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qualisight_cache_entries",
			Help: "Current number of cached query results",
		},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qualisight_sessions_active",
			Help: "Current number of active sessions",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualisight_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualisight_sessions_revoked_total",
			Help: "Total number of sessions revoked",
		},
		[]string{"reason"}, // "logout", "expired", "inactive", "concurrent_limit", "force_logout", "device_revoke"
	)

	SessionRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualisight_session_rotations_total",
			Help: "Total number of session id rotations",
		},
	)

	// Memory monitoring metrics
	HeapUsedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qualisight_heap_used_bytes",
			Help: "Heap bytes in use at the last memory snapshot",
		},
	)

	HeapTotalBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qualisight_heap_total_bytes",
			Help: "Heap bytes obtained from the OS at the last memory snapshot",
		},
	)

	RSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qualisight_rss_bytes",
			Help: "Resident set size at the last memory snapshot",
		},
	)

	MemoryAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualisight_memory_alerts_total",
			Help: "Total number of memory alerts raised",
		},
		[]string{"type", "severity"},
	)

	ForcedGCs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualisight_forced_gc_total",
			Help: "Total number of operator-forced garbage collections",
		},
	)
)
