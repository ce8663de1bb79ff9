// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package memwatch

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/qualisight/qualisight/internal/logging"
	"github.com/qualisight/qualisight/internal/metrics"
)

// Config holds memory-monitoring tunables.
type Config struct {
	// SnapshotInterval is the sampling period. Default: 60s.
	SnapshotInterval time.Duration

	// MaxSnapshots bounds the snapshot ring; with the default interval
	// the default of 60 keeps one hour of history.
	MaxSnapshots int

	// HighUsageThreshold is the heap-used/heap-total ratio that raises a
	// high_usage alert. Default: 0.85.
	HighUsageThreshold float64

	// CriticalUsageThreshold upgrades high_usage to critical. Default: 0.95.
	CriticalUsageThreshold float64

	// RapidGrowthThreshold is the heap growth rate in bytes per minute
	// that flags a leak outright. Default: 10 MiB/min.
	RapidGrowthThreshold float64

	// LeakDetectionWindow is the span over which a mostly-monotonic growth
	// pattern counts as a leak. Default: 15m.
	LeakDetectionWindow time.Duration

	// GCPressureThreshold is the GC cycle rate (cycles per minute) that
	// raises a gc_pressure alert. Default: 30.
	GCPressureThreshold float64

	// AllowForcedGC gates ForceGC; when false ForceGC reports failure
	// without touching the runtime. Default: true (see DefaultConfig).
	AllowForcedGC bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval:       60 * time.Second,
		MaxSnapshots:           60,
		HighUsageThreshold:     0.85,
		CriticalUsageThreshold: 0.95,
		RapidGrowthThreshold:   10 * 1024 * 1024,
		LeakDetectionWindow:    15 * time.Minute,
		GCPressureThreshold:    30,
		AllowForcedGC:          true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = d.SnapshotInterval
	}
	if c.MaxSnapshots <= 0 {
		c.MaxSnapshots = d.MaxSnapshots
	}
	if c.HighUsageThreshold <= 0 {
		c.HighUsageThreshold = d.HighUsageThreshold
	}
	if c.CriticalUsageThreshold <= 0 {
		c.CriticalUsageThreshold = d.CriticalUsageThreshold
	}
	if c.RapidGrowthThreshold <= 0 {
		c.RapidGrowthThreshold = d.RapidGrowthThreshold
	}
	if c.LeakDetectionWindow <= 0 {
		c.LeakDetectionWindow = d.LeakDetectionWindow
	}
	if c.GCPressureThreshold <= 0 {
		c.GCPressureThreshold = d.GCPressureThreshold
	}
	return c
}

// MonitorStats aggregates the monitor's current state.
type MonitorStats struct {
	Monitoring       bool      `json:"monitoring"`
	SnapshotCount    int       `json:"snapshot_count"`
	Current          *Snapshot `json:"current,omitempty"`
	Trend            Trend     `json:"trend"`
	TotalAlerts      int       `json:"total_alerts"`
	CriticalAlerts   int       `json:"critical_alerts"`
	GCEventsLastHour int       `json:"gc_events_last_hour"`
}

// Monitor samples process memory and raises alerts on growth patterns.
// Construct one at process start and share it by reference.
type Monitor struct {
	mu          sync.Mutex
	cfg         Config
	snapshots   []Snapshot
	alerts      []Alert
	lastAlertAt map[AlertType]time.Time
	gcEvents    []time.Time

	running bool
	cancel  context.CancelFunc

	// sample and now are swappable for synthetic-sequence tests.
	sample sampler
	now    func() time.Time
}

// NewMonitor creates a memory monitor; zero-valued config fields take
// defaults.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		cfg:         cfg.withDefaults(),
		lastAlertAt: make(map[AlertType]time.Time),
		sample:      newRuntimeSampler(),
		now:         time.Now,
	}
}

// TakeSnapshot samples memory counters, appends the reading to the bounded
// ring, and evaluates alert conditions. Returns the snapshot taken.
func (m *Monitor) TakeSnapshot() Snapshot {
	snap := m.sample()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordLocked(snap)
	m.checkAlertsLocked(snap)
	return snap
}

func (m *Monitor) recordLocked(snap Snapshot) {
	if len(m.snapshots) >= m.cfg.MaxSnapshots {
		m.snapshots = m.snapshots[1:]
	}
	m.snapshots = append(m.snapshots, snap)
}

// AnalyzeTrend computes the growth trend over the current snapshot window.
func (m *Monitor) AnalyzeTrend() Trend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyzeTrendLocked()
}

func (m *Monitor) analyzeTrendLocked() Trend {
	return analyzeTrend(m.snapshots, m.cfg.RapidGrowthThreshold, m.cfg.LeakDetectionWindow.Minutes())
}

// checkAlertsLocked evaluates the alert conditions against the latest
// snapshot. Alerts of one type inside the dedup window are suppressed.
func (m *Monitor) checkAlertsLocked(snap Snapshot) {
	now := snap.Timestamp

	if snap.HeapTotal > 0 {
		usage := float64(snap.HeapUsed) / float64(snap.HeapTotal)
		if usage > m.cfg.HighUsageThreshold {
			severity := SeverityWarning
			if usage > m.cfg.CriticalUsageThreshold {
				severity = SeverityCritical
			}
			m.raiseAlertLocked(AlertHighUsage, severity,
				fmt.Sprintf("Heap utilization at %.1f%% of allocated heap", usage*100),
				snap.HeapUsed, m.cfg.HighUsageThreshold, now)
		}
	}

	trend := m.analyzeTrendLocked()

	if trend.GrowthRate > m.cfg.RapidGrowthThreshold {
		m.raiseAlertLocked(AlertRapidGrowth, SeverityWarning,
			fmt.Sprintf("Heap growing at %.1f MB/min", trend.GrowthRate/(1024*1024)),
			snap.HeapUsed, m.cfg.RapidGrowthThreshold, now)
	}

	if trend.IsLeaking {
		m.raiseAlertLocked(AlertPotentialLeak, SeverityCritical,
			"Potential memory leak: "+trend.Recommendation,
			snap.HeapUsed, m.cfg.RapidGrowthThreshold, now)
	}

	m.checkGCPressureLocked(snap, now)
}

// checkGCPressureLocked flags an abnormally high GC cycle rate between the
// two most recent snapshots.
func (m *Monitor) checkGCPressureLocked(snap Snapshot, now time.Time) {
	if len(m.snapshots) < 2 {
		return
	}
	prev := m.snapshots[len(m.snapshots)-2]
	minutes := snap.Timestamp.Sub(prev.Timestamp).Minutes()
	if minutes <= 0 || snap.NumGC <= prev.NumGC {
		return
	}
	rate := float64(snap.NumGC-prev.NumGC) / minutes
	if rate > m.cfg.GCPressureThreshold {
		m.raiseAlertLocked(AlertGCPressure, SeverityWarning,
			fmt.Sprintf("GC running %.0f cycles/min", rate),
			snap.HeapUsed, m.cfg.GCPressureThreshold, now)
	}
}

// ForceGC triggers a garbage collection and returns OS-held memory where
// possible. Returns false when forced collection is disabled by config.
// GC event history is pruned to the trailing hour.
func (m *Monitor) ForceGC() bool {
	if !m.cfg.AllowForcedGC {
		return false
	}

	runtime.GC()
	debug.FreeOSMemory()
	metrics.ForcedGCs.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.gcEvents = append(m.gcEvents, now)
	m.pruneGCEventsLocked(now)

	logging.Info().Msg("Forced garbage collection")
	return true
}

func (m *Monitor) pruneGCEventsLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := m.gcEvents[:0]
	for _, t := range m.gcEvents {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.gcEvents = kept
}

// Alerts returns a copy of the stored alerts, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Snapshots returns a copy of the snapshot ring, oldest first.
func (m *Monitor) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

// Stats aggregates the monitor's current state.
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneGCEventsLocked(now)

	stats := MonitorStats{
		Monitoring:       m.running,
		SnapshotCount:    len(m.snapshots),
		Trend:            m.analyzeTrendLocked(),
		TotalAlerts:      len(m.alerts),
		GCEventsLastHour: len(m.gcEvents),
	}
	if n := len(m.snapshots); n > 0 {
		current := m.snapshots[n-1]
		stats.Current = &current
	}
	for _, a := range m.alerts {
		if a.Severity == SeverityCritical {
			stats.CriticalAlerts++
		}
	}
	return stats
}

// Report renders the current monitoring state as human-readable text for
// operator consoles.
func (m *Monitor) Report() string {
	stats := m.Stats()

	var b strings.Builder
	b.WriteString("Memory Monitoring Report\n")
	b.WriteString("========================\n")
	fmt.Fprintf(&b, "Monitoring active: %t\n", stats.Monitoring)
	fmt.Fprintf(&b, "Snapshots: %d\n", stats.SnapshotCount)

	if stats.Current != nil {
		c := stats.Current
		fmt.Fprintf(&b, "Heap used: %.1f MB / %.1f MB\n",
			float64(c.HeapUsed)/(1024*1024), float64(c.HeapTotal)/(1024*1024))
		fmt.Fprintf(&b, "RSS: %.1f MB\n", float64(c.RSS)/(1024*1024))
	}

	t := stats.Trend
	fmt.Fprintf(&b, "Window: %.1f min, growth %.2f MB/min\n",
		t.WindowMinutes, t.GrowthRate/(1024*1024))
	fmt.Fprintf(&b, "Leaking: %t\n", t.IsLeaking)
	fmt.Fprintf(&b, "Recommendation: %s\n", t.Recommendation)
	fmt.Fprintf(&b, "Alerts: %d total, %d critical\n", stats.TotalAlerts, stats.CriticalAlerts)
	fmt.Fprintf(&b, "Forced GCs (last hour): %d\n", stats.GCEventsLastHour)

	return b.String()
}

// Serve runs the sampling loop until the context is canceled, taking an
// immediate snapshot on start. It implements suture.Service.
func (m *Monitor) Serve(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	logging.Info().
		Dur("interval", m.cfg.SnapshotInterval).
		Msg("Memory monitoring started")

	m.TakeSnapshot()

	ticker := time.NewTicker(m.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Memory monitoring stopped")
			return ctx.Err()
		case <-ticker.C:
			m.TakeSnapshot()
		}
	}
}

// Start launches the sampling loop on its own goroutine. Starting a running
// monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	//nolint:errcheck // loop exits with ctx.Err() on Stop
	go m.Serve(ctx)
}

// Stop halts a monitor started with Start. Stopping a stopped monitor is a
// no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// String implements fmt.Stringer for supervisor logging.
func (m *Monitor) String() string {
	return "memory-monitor"
}
