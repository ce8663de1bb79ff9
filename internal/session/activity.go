// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxActivities bounds the audit trail; the oldest record is dropped
// once the bound is reached.
const DefaultMaxActivities = 5000

// Action identifies the kind of session event recorded in the audit trail.
type Action string

const (
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionActivity Action = "activity"
	ActionRefresh  Action = "refresh"
	ActionExpired  Action = "expired"
	ActionRevoked  Action = "revoked"
)

// Activity is one append-only audit record.
type Activity struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
}

// activityLog is a bounded append-only ring of audit records. Not safe for
// concurrent use on its own; the Manager serializes access.
type activityLog struct {
	records []Activity
	max     int
}

func newActivityLog(max int) *activityLog {
	if max <= 0 {
		max = DefaultMaxActivities
	}
	return &activityLog{max: max}
}

func (l *activityLog) append(s *Session, action Action, now time.Time) {
	if len(l.records) >= l.max {
		l.records = l.records[1:]
	}
	l.records = append(l.records, Activity{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		UserID:    s.UserID,
		Action:    action,
		Timestamp: now,
		IP:        s.DeviceInfo.IP,
		UserAgent: s.DeviceInfo.UserAgent,
	})
}

// countSince tallies records with the given action at or after cutoff.
func (l *activityLog) countSince(action Action, cutoff time.Time) int {
	count := 0
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Timestamp.Before(cutoff) {
			break
		}
		if l.records[i].Action == action {
			count++
		}
	}
	return count
}

// recent returns up to limit of the newest records, newest first.
func (l *activityLog) recent(limit int) []Activity {
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]Activity, 0, limit)
	for i := len(l.records) - 1; i >= len(l.records)-limit; i-- {
		out = append(out, l.records[i])
	}
	return out
}
