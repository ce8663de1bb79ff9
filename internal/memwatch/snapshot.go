// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package memwatch

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/qualisight/qualisight/internal/metrics"
)

// Snapshot is one immutable reading of process memory counters.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// HeapUsed is the heap in active use (runtime HeapAlloc).
	HeapUsed uint64 `json:"heap_used"`

	// HeapTotal is the heap obtained from the OS (runtime HeapSys).
	HeapTotal uint64 `json:"heap_total"`

	// External is non-heap runtime memory (Sys minus HeapSys).
	External uint64 `json:"external"`

	// StackInUse is goroutine stack memory in use.
	StackInUse uint64 `json:"stack_in_use"`

	// RSS is the process resident set size, 0 if unavailable.
	RSS uint64 `json:"rss"`

	// NumGC is the cumulative GC cycle count at sampling time.
	NumGC uint32 `json:"num_gc"`
}

// sampler produces snapshots; swappable for synthetic-sequence tests.
type sampler func() Snapshot

// newRuntimeSampler builds the production sampler. The process handle for
// RSS lookups is resolved once; RSS reads that fail leave the field zero.
func newRuntimeSampler() sampler {
	proc, procErr := process.NewProcess(int32(os.Getpid()))

	return func() Snapshot {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		snap := Snapshot{
			Timestamp:  time.Now(),
			HeapUsed:   ms.HeapAlloc,
			HeapTotal:  ms.HeapSys,
			External:   ms.Sys - ms.HeapSys,
			StackInUse: ms.StackInuse,
			NumGC:      ms.NumGC,
		}

		if procErr == nil {
			if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
				snap.RSS = mi.RSS
			}
		}

		metrics.HeapUsedBytes.Set(float64(snap.HeapUsed))
		metrics.HeapTotalBytes.Set(float64(snap.HeapTotal))
		metrics.RSSBytes.Set(float64(snap.RSS))

		return snap
	}
}
