// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qualisight/qualisight/internal/logging"
	"github.com/qualisight/qualisight/internal/metrics"
)

// Config holds session lifecycle tunables.
type Config struct {
	// MaxConcurrentSessions caps active sessions per user; the cap is
	// enforced by evicting the least-recently-active session, never by
	// rejecting a login. Default: 5.
	MaxConcurrentSessions int

	// SessionTimeout is the lifetime of a regular session. Default: 30m.
	SessionTimeout time.Duration

	// RememberMeTimeout is the lifetime of a remember-me session.
	// Default: 720h (30 days).
	RememberMeTimeout time.Duration

	// ActivityTimeout revokes regular sessions idle longer than this;
	// remember-me sessions are exempt. Default: 2h.
	ActivityTimeout time.Duration

	// RotationInterval is the session age past which validation issues a
	// fresh session id. Default: 1h.
	RotationInterval time.Duration

	// RotateOnActivity enables transparent rotation during validation.
	// Default: true.
	RotateOnActivity bool

	// MaxActivities bounds the audit trail. Default: 5000.
	MaxActivities int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentSessions: 5,
		SessionTimeout:        30 * time.Minute,
		RememberMeTimeout:     30 * 24 * time.Hour,
		ActivityTimeout:       2 * time.Hour,
		RotationInterval:      time.Hour,
		RotateOnActivity:      true,
		MaxActivities:         DefaultMaxActivities,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = d.MaxConcurrentSessions
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.RememberMeTimeout <= 0 {
		c.RememberMeTimeout = d.RememberMeTimeout
	}
	if c.ActivityTimeout <= 0 {
		c.ActivityTimeout = d.ActivityTimeout
	}
	if c.RotationInterval <= 0 {
		c.RotationInterval = d.RotationInterval
	}
	if c.MaxActivities <= 0 {
		c.MaxActivities = d.MaxActivities
	}
	return c
}

// CreateParams carries the inputs for a new session.
type CreateParams struct {
	UserID       string
	DeviceInfo   DeviceInfo
	IsRememberMe bool
}

// Manager owns the live session map and the activity audit trail. Construct
// one at process start and share it by reference.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	sessions map[string]*Session
	log      *activityLog

	// now is swappable for deterministic lifecycle tests.
	now func() time.Time
}

// NewManager creates a session manager; zero-valued config fields take
// defaults.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		log:      newActivityLog(cfg.MaxActivities),
		now:      time.Now,
	}
}

// CreateSession starts a new session for the user. If the user is at the
// concurrency cap, their least-recently-active session is revoked first
// (reason concurrent_limit); login always succeeds.
func (m *Manager) CreateSession(p CreateParams) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	for m.countUserSessionsLocked(p.UserID) >= m.cfg.MaxConcurrentSessions {
		lra := m.leastRecentlyActiveLocked(p.UserID)
		if lra == nil {
			break
		}
		m.revokeLocked(lra, ReasonConcurrentLimit, now)
	}

	timeout := m.cfg.SessionTimeout
	if p.IsRememberMe {
		timeout = m.cfg.RememberMeTimeout
	}

	s := &Session{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		DeviceID:       p.DeviceInfo.Fingerprint(),
		DeviceInfo:     p.DeviceInfo,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(timeout),
		IsRememberMe:   p.IsRememberMe,
		IsActive:       true,
	}
	m.sessions[s.ID] = s
	m.log.append(s, ActionLogin, now)

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	logging.Debug().
		Str("user_id", s.UserID).
		Str("device_id", s.DeviceID).
		Bool("remember_me", s.IsRememberMe).
		Msg("Session created")

	copied := *s
	return &copied
}

// ValidateSession checks a session id and refreshes its activity timestamp.
//
// The result is invalid when the id is unknown, the session has expired
// (auto-revoked, reason expired), or a non-remember-me session has been idle
// past the activity timeout (auto-revoked, reason inactive). On success, if
// rotation is enabled and the session is older than the rotation interval, a
// fresh id is issued transparently and Rotated is set; the caller must adopt
// the returned Session.ID.
func (m *Manager) ValidateSession(id string) Validation {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return Validation{Valid: false, Reason: ReasonNotFound}
	}

	if now.After(s.ExpiresAt) {
		m.revokeLocked(s, ReasonExpired, now)
		return Validation{Valid: false, Reason: ReasonSessionExpired}
	}

	if !s.IsRememberMe && now.Sub(s.LastActivityAt) > m.cfg.ActivityTimeout {
		m.revokeLocked(s, ReasonInactive, now)
		return Validation{Valid: false, Reason: ReasonSessionIdle}
	}

	s.LastActivityAt = now

	if m.cfg.RotateOnActivity && now.Sub(s.CreatedAt) > m.cfg.RotationInterval {
		rotated := m.rotateLocked(s, now)
		copied := *rotated
		return Validation{Valid: true, Session: &copied, Rotated: true}
	}

	m.log.append(s, ActionActivity, now)
	copied := *s
	return Validation{Valid: true, Session: &copied}
}

// RotateSession issues a new session id carrying forward all other fields,
// with creation and activity timestamps reset. The old id stops resolving
// immediately. Returns false if the id is unknown.
func (m *Manager) RotateSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return nil, false
	}

	rotated := m.rotateLocked(s, m.now())
	copied := *rotated
	return &copied, true
}

func (m *Manager) rotateLocked(s *Session, now time.Time) *Session {
	rotated := *s
	rotated.ID = uuid.NewString()
	rotated.CreatedAt = now
	rotated.LastActivityAt = now

	delete(m.sessions, s.ID)
	m.sessions[rotated.ID] = &rotated
	m.log.append(&rotated, ActionRefresh, now)

	metrics.SessionRotations.Inc()
	logging.Debug().
		Str("user_id", rotated.UserID).
		Msg("Session rotated")

	return &rotated
}

// RevokeSession terminates a session. Returns false if the id is unknown,
// making repeated revocation safe.
func (m *Manager) RevokeSession(id string, reason RevokeReason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.revokeLocked(s, reason, m.now())
	return true
}

func (m *Manager) revokeLocked(s *Session, reason RevokeReason, now time.Time) {
	s.IsActive = false

	action := ActionRevoked
	switch reason {
	case ReasonExpired:
		action = ActionExpired
	case ReasonLogout:
		action = ActionLogout
	}
	m.log.append(s, action, now)

	delete(m.sessions, s.ID)
	metrics.SessionsRevoked.WithLabelValues(string(reason)).Inc()
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	logging.Debug().
		Str("user_id", s.UserID).
		Str("reason", string(reason)).
		Msg("Session revoked")
}

// RevokeAllUserSessions revokes every active session of the user except
// exceptID (pass "" to revoke all) and returns the count revoked. Used for
// "sign out everywhere".
func (m *Manager) RevokeAllUserSessions(userID, exceptID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for _, s := range m.userSessionsLocked(userID) {
		if s.ID == exceptID {
			continue
		}
		m.revokeLocked(s, ReasonForceLogout, now)
		count++
	}
	return count
}

// RevokeDeviceSessions revokes every active session of the user sharing the
// device fingerprint and returns the count revoked.
func (m *Manager) RevokeDeviceSessions(userID, deviceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for _, s := range m.userSessionsLocked(userID) {
		if s.DeviceID != deviceID {
			continue
		}
		m.revokeLocked(s, ReasonDeviceRevoke, now)
		count++
	}
	return count
}

// GetSession returns a copy of the live session, or false if unknown.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

// GetUserSessions returns copies of the user's active sessions, most recent
// activity first.
func (m *Manager) GetUserSessions(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := m.userSessionsLocked(userID)
	out := make([]*Session, 0, len(live))
	for _, s := range live {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}

// GetUserDevices aggregates the user's active sessions by device
// fingerprint, most recent activity first. Multiple logins from the same
// browser signature collapse to one device entry.
func (m *Manager) GetUserDevices(userID string) []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byDevice := make(map[string]*Device)
	for _, s := range m.userSessionsLocked(userID) {
		d, ok := byDevice[s.DeviceID]
		if !ok {
			d = &Device{
				DeviceID:  s.DeviceID,
				UserAgent: s.DeviceInfo.UserAgent,
				Platform:  s.DeviceInfo.Platform,
				Browser:   s.DeviceInfo.Browser,
			}
			byDevice[s.DeviceID] = d
		}
		d.SessionCount++
		if s.LastActivityAt.After(d.LastActivityAt) {
			d.LastActivityAt = s.LastActivityAt
		}
	}

	devices := make([]Device, 0, len(byDevice))
	for _, d := range byDevice {
		devices = append(devices, *d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastActivityAt.After(devices[j].LastActivityAt)
	})
	return devices
}

// Cleanup sweeps sessions past expiry (or already marked inactive) and
// returns the count removed. Not self-scheduling; run it from a janitor.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for _, s := range m.sessions {
		if !s.IsActive || now.After(s.ExpiresAt) {
			m.revokeLocked(s, ReasonExpired, now)
			count++
		}
	}
	return count
}

// Stats summarizes the live session population and trailing-hour audit
// activity.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	users := make(map[string]struct{})
	active := 0
	for _, s := range m.sessions {
		if s.IsActive {
			active++
			users[s.UserID] = struct{}{}
		}
	}

	stats := Stats{
		TotalSessions:   len(m.sessions),
		ActiveSessions:  active,
		UniqueUsers:     len(users),
		LoginsLastHour:  m.log.countSince(ActionLogin, now.Add(-time.Hour)),
		LogoutsLastHour: m.log.countSince(ActionLogout, now.Add(-time.Hour)),
	}
	if len(users) > 0 {
		stats.AvgSessionsPerUser = float64(active) / float64(len(users))
	}
	return stats
}

// RecentActivity returns up to limit of the newest audit records, newest
// first.
func (m *Manager) RecentActivity(limit int) []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.recent(limit)
}

func (m *Manager) userSessionsLocked(userID string) []*Session {
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) countUserSessionsLocked(userID string) int {
	count := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			count++
		}
	}
	return count
}

func (m *Manager) leastRecentlyActiveLocked(userID string) *Session {
	var lra *Session
	for _, s := range m.sessions {
		if s.UserID != userID || !s.IsActive {
			continue
		}
		if lra == nil || s.LastActivityAt.Before(lra.LastActivityAt) {
			lra = s
		}
	}
	return lra
}
