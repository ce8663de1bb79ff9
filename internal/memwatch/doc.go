// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package memwatch detects sustained heap growth through periodic sampling
// and linear trend estimation.
//
// A Monitor samples the Go runtime's heap counters plus the process RSS on a
// fixed interval, keeps a bounded ring of snapshots, and raises deduplicated
// alerts when usage crosses thresholds, the heap grows faster than the
// configured rate, or the recent sample window shows a mostly-monotonic
// growth pattern. The monitor runs as a supervised service (Serve) or under
// its own goroutine (Start/Stop, both idempotent).
package memwatch
