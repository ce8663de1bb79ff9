// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package session

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DeviceInfo describes the client environment a session was created from.
type DeviceInfo struct {
	UserAgent string `json:"user_agent"`
	Platform  string `json:"platform"`
	Browser   string `json:"browser"`
	IP        string `json:"ip"`
}

// Fingerprint derives the device grouping key from the client environment.
// It is a non-cryptographic hash used only to cluster sessions by originating
// device in listings; collisions are tolerated.
func (d DeviceInfo) Fingerprint() string {
	h := xxhash.New()
	_, _ = h.WriteString(d.UserAgent)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(d.Platform)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(d.Browser)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Session represents one authenticated login.
type Session struct {
	// ID is the opaque session identifier handed to the client.
	ID string `json:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id"`

	// DeviceID is the device fingerprint grouping key.
	DeviceID string `json:"device_id"`

	// DeviceInfo is the client environment captured at login.
	DeviceInfo DeviceInfo `json:"device_info"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`

	// IsRememberMe marks long-lived sessions exempt from the inactivity
	// timeout.
	IsRememberMe bool `json:"is_remember_me"`

	// IsActive is false only transiently during revocation; revoked and
	// expired sessions are removed from the live map.
	IsActive bool `json:"is_active"`
}

// RevokeReason explains why a session was terminated.
type RevokeReason string

const (
	ReasonLogout          RevokeReason = "logout"
	ReasonExpired         RevokeReason = "expired"
	ReasonInactive        RevokeReason = "inactive"
	ReasonConcurrentLimit RevokeReason = "concurrent_limit"
	ReasonForceLogout     RevokeReason = "force_logout"
	ReasonDeviceRevoke    RevokeReason = "device_revoke"
)

// Validation is the structured result of ValidateSession. Invalid sessions
// are communicated through Reason, never through an error.
type Validation struct {
	Valid   bool     `json:"valid"`
	Reason  string   `json:"reason,omitempty"`
	Session *Session `json:"session,omitempty"`

	// Rotated is true when validation transparently rotated the session;
	// the caller must replace its externally-held session id (cookie,
	// bearer token) with Session.ID.
	Rotated bool `json:"rotated,omitempty"`
}

// Validation failure reasons.
const (
	ReasonNotFound       = "Session not found"
	ReasonSessionExpired = "Session expired"
	ReasonSessionIdle    = "Session inactive"
)

// Device aggregates a user's active sessions sharing one device fingerprint.
type Device struct {
	DeviceID       string    `json:"device_id"`
	UserAgent      string    `json:"user_agent"`
	Platform       string    `json:"platform"`
	Browser        string    `json:"browser"`
	SessionCount   int       `json:"session_count"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Stats is a point-in-time summary of the session population.
type Stats struct {
	TotalSessions     int     `json:"total_sessions"`
	ActiveSessions    int     `json:"active_sessions"`
	UniqueUsers       int     `json:"unique_users"`
	AvgSessionsPerUser float64 `json:"avg_sessions_per_user"`
	LoginsLastHour    int     `json:"logins_last_hour"`
	LogoutsLastHour   int     `json:"logouts_last_hour"`
}
