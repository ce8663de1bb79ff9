// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package services contains suture.Service wrappers for Qualisight's
// background work: periodic cleanup sweeps and the supervised HTTP server.
package services

import (
	"context"
	"time"

	"github.com/qualisight/qualisight/internal/logging"
)

// Janitor periodically invokes a cleanup sweep. The cache and session layers
// expose manual Cleanup methods and deliberately do not self-schedule; this
// wrapper is the scheduler, run under the supervisor.
type Janitor struct {
	name     string
	interval time.Duration
	sweep    func() int
}

// NewJanitor creates a supervised sweeper. The sweep function returns the
// number of items it removed, which is logged at debug level.
func NewJanitor(name string, interval time.Duration, sweep func() int) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{name: name, interval: interval, sweep: sweep}
}

// Serve implements suture.Service: sweep on each tick until canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed := j.sweep()
			if removed > 0 {
				logging.Debug().
					Str("janitor", j.name).
					Int("removed", removed).
					Msg("Cleanup sweep complete")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (j *Janitor) String() string {
	return j.name
}
