// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package memwatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/qualisight/qualisight/internal/logging"
	"github.com/qualisight/qualisight/internal/metrics"
)

// AlertType classifies a memory alert.
type AlertType string

const (
	AlertHighUsage     AlertType = "high_usage"
	AlertRapidGrowth   AlertType = "rapid_growth"
	AlertPotentialLeak AlertType = "potential_leak"
	AlertGCPressure    AlertType = "gc_pressure"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert records one threshold or trend breach.
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	CurrentUsage uint64    `json:"current_usage"`
	Threshold    float64   `json:"threshold"`
}

// maxAlerts bounds the stored alert list; the oldest is dropped past it.
const maxAlerts = 100

// alertDedupWindow suppresses repeat alerts of one type; a fixed polling
// interval would otherwise raise the same alert every snapshot.
const alertDedupWindow = 5 * time.Minute

// raiseAlert appends an alert unless one of the same type was recorded inside
// the dedup window. Must be called with the monitor lock held.
func (m *Monitor) raiseAlertLocked(t AlertType, severity Severity, message string, usage uint64, threshold float64, now time.Time) {
	if last, ok := m.lastAlertAt[t]; ok && now.Sub(last) < alertDedupWindow {
		return
	}
	m.lastAlertAt[t] = now

	if len(m.alerts) >= maxAlerts {
		m.alerts = m.alerts[1:]
	}
	m.alerts = append(m.alerts, Alert{
		ID:           uuid.NewString(),
		Type:         t,
		Severity:     severity,
		Message:      message,
		Timestamp:    now,
		CurrentUsage: usage,
		Threshold:    threshold,
	})

	metrics.MemoryAlerts.WithLabelValues(string(t), string(severity)).Inc()

	evt := logging.Warn()
	if severity == SeverityCritical {
		evt = logging.Error()
	}
	evt.
		Str("alert_type", string(t)).
		Str("severity", string(severity)).
		Uint64("current_usage", usage).
		Float64("threshold", threshold).
		Msg(message)
}
