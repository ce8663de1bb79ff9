// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package cache provides the in-process query cache for Qualisight.
//
// The cache is a bounded key-value store with per-entry TTLs, hit counters,
// and two distinct eviction policies: oldest-by-insertion for automatic
// overflow handling and lowest-hit-count for operator-triggered pressure
// relief. Keys are derived deterministically from a query identifier plus its
// parameters, and default TTLs are assigned per query category (realtime,
// list, statistics, config, user, aggregation) by an ordered rule table.
//
// The cache performs no request coalescing: two goroutines that miss on the
// same key concurrently will both invoke their factory and both write the
// result. Callers that need single-flight semantics must layer it themselves.
//
// Expired entries are removed lazily on read; Cleanup sweeps the remainder
// and is intended to be driven by a supervised janitor (see the supervisor
// package) or by the embedding application.
package cache
