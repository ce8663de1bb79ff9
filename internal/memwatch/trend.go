// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package memwatch

import "fmt"

// Trend summarizes heap behavior across the snapshot window.
type Trend struct {
	SampleCount   int     `json:"sample_count"`
	WindowMinutes float64 `json:"window_minutes"`
	AvgHeapUsed   uint64  `json:"avg_heap_used"`
	MinHeapUsed   uint64  `json:"min_heap_used"`
	MaxHeapUsed   uint64  `json:"max_heap_used"`

	// GrowthRate is the first-to-last heap delta in bytes per minute;
	// negative when the heap shrank.
	GrowthRate float64 `json:"growth_rate"`

	IsLeaking      bool   `json:"is_leaking"`
	Recommendation string `json:"recommendation"`
}

// analyzeTrend computes the trend over the given snapshots. Requires at least
// two; fewer yield an insufficient-data recommendation.
//
// A leak is flagged when the overall growth rate exceeds rapidGrowthPerMin,
// or, for windows longer than the detection window, when more than 70% of
// consecutive sample pairs inside the most recent detection window were
// increasing.
func analyzeTrend(snapshots []Snapshot, rapidGrowthPerMin float64, detectionWindowMinutes float64) Trend {
	trend := Trend{SampleCount: len(snapshots)}

	if len(snapshots) < 2 {
		trend.Recommendation = "Insufficient data: at least two snapshots are required for trend analysis."
		return trend
	}

	first := snapshots[0]
	last := snapshots[len(snapshots)-1]

	var sum uint64
	trend.MinHeapUsed = first.HeapUsed
	trend.MaxHeapUsed = first.HeapUsed
	for _, s := range snapshots {
		sum += s.HeapUsed
		if s.HeapUsed < trend.MinHeapUsed {
			trend.MinHeapUsed = s.HeapUsed
		}
		if s.HeapUsed > trend.MaxHeapUsed {
			trend.MaxHeapUsed = s.HeapUsed
		}
	}
	trend.AvgHeapUsed = sum / uint64(len(snapshots))

	trend.WindowMinutes = last.Timestamp.Sub(first.Timestamp).Minutes()
	if trend.WindowMinutes > 0 {
		trend.GrowthRate = (float64(last.HeapUsed) - float64(first.HeapUsed)) / trend.WindowMinutes
	}

	switch {
	case trend.GrowthRate > rapidGrowthPerMin:
		trend.IsLeaking = true
		trend.Recommendation = fmt.Sprintf(
			"Heap is growing rapidly (%.1f MB/min). Inspect recent allocations and in-flight work.",
			trend.GrowthRate/(1024*1024))

	case trend.WindowMinutes > detectionWindowMinutes && sustainedGrowth(snapshots, detectionWindowMinutes):
		trend.IsLeaking = true
		trend.Recommendation = "Sustained heap growth pattern detected across the detection window; a leak is likely."

	default:
		trend.Recommendation = "Heap usage is stable."
	}

	return trend
}

// sustainedGrowth reports whether more than 70% of consecutive snapshot pairs
// within the most recent detection window show increasing heap usage.
func sustainedGrowth(snapshots []Snapshot, windowMinutes float64) bool {
	last := snapshots[len(snapshots)-1]
	start := 0
	for i, s := range snapshots {
		if last.Timestamp.Sub(s.Timestamp).Minutes() <= windowMinutes {
			start = i
			break
		}
	}

	window := snapshots[start:]
	if len(window) < 2 {
		return false
	}

	increasing := 0
	for i := 1; i < len(window); i++ {
		if window[i].HeapUsed > window[i-1].HeapUsed {
			increasing++
		}
	}

	return float64(increasing)/float64(len(window)-1) > 0.7
}
