// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package session

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(cfg Config) (*Manager, *fakeClock) {
	clock := newFakeClock()
	m := NewManager(cfg)
	m.now = clock.now
	return m, clock
}

var testDevice = DeviceInfo{
	UserAgent: "Mozilla/5.0",
	Platform:  "Win32",
	Browser:   "Chrome",
	IP:        "10.0.0.1",
}

func TestCreateSession_Basics(t *testing.T) {
	m, clock := newTestManager(Config{})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})

	if s.ID == "" {
		t.Fatal("Expected non-empty session id")
	}
	if s.UserID != "u1" {
		t.Errorf("Expected user u1, got %q", s.UserID)
	}
	if !s.IsActive {
		t.Error("Expected active session")
	}
	if s.DeviceID != testDevice.Fingerprint() {
		t.Error("Expected device fingerprint to be set")
	}
	wantExpiry := clock.now().Add(30 * time.Minute)
	if !s.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("Expected expiry %v, got %v", wantExpiry, s.ExpiresAt)
	}
}

func TestCreateSession_RememberMeExpiry(t *testing.T) {
	m, clock := newTestManager(Config{})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice, IsRememberMe: true})

	want := clock.now().Add(30 * 24 * time.Hour)
	if !s.ExpiresAt.Equal(want) {
		t.Errorf("Expected remember-me expiry %v, got %v", want, s.ExpiresAt)
	}
}

func TestCreateSession_ConcurrencyCapEvictsLeastRecentlyActive(t *testing.T) {
	m, clock := newTestManager(Config{MaxConcurrentSessions: 5, SessionTimeout: 24 * time.Hour})

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice}).ID
		clock.advance(time.Minute)
	}

	// Touch the oldest session so it is no longer the least recently active.
	if v := m.ValidateSession(ids[0]); !v.Valid {
		t.Fatalf("Expected valid session, got %q", v.Reason)
	}
	clock.advance(time.Minute)

	sixth := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})

	sessions := m.GetUserSessions("u1")
	if len(sessions) != 5 {
		t.Fatalf("Expected exactly 5 active sessions, got %d", len(sessions))
	}

	// ids[1] became least recently active after ids[0] was touched.
	if _, ok := m.GetSession(ids[1]); ok {
		t.Error("Expected least-recently-active session to be evicted")
	}
	for _, id := range []string{ids[0], ids[2], ids[3], ids[4], sixth.ID} {
		if _, ok := m.GetSession(id); !ok {
			t.Errorf("Expected session %s to survive", id)
		}
	}
}

func TestCreateSession_CapDoesNotAffectOtherUsers(t *testing.T) {
	m, _ := newTestManager(Config{MaxConcurrentSessions: 1})

	first := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	m.CreateSession(CreateParams{UserID: "u2", DeviceInfo: testDevice})
	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})

	if _, ok := m.GetSession(first.ID); ok {
		t.Error("Expected u1's first session evicted")
	}
	if len(m.GetUserSessions("u2")) != 1 {
		t.Error("Expected u2's session untouched")
	}
}

func TestValidateSession_UnknownID(t *testing.T) {
	m, _ := newTestManager(Config{})

	v := m.ValidateSession("missing")
	if v.Valid {
		t.Fatal("Expected invalid result")
	}
	if v.Reason != ReasonNotFound {
		t.Errorf("Expected %q, got %q", ReasonNotFound, v.Reason)
	}
}

func TestValidateSession_ExpiryIdempotence(t *testing.T) {
	m, clock := newTestManager(Config{SessionTimeout: 30 * time.Minute})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(31 * time.Minute)

	v := m.ValidateSession(s.ID)
	if v.Valid || v.Reason != ReasonSessionExpired {
		t.Fatalf("Expected expired result, got valid=%t reason=%q", v.Valid, v.Reason)
	}

	// The expired session was removed; a second validation reports not-found.
	v = m.ValidateSession(s.ID)
	if v.Valid || v.Reason != ReasonNotFound {
		t.Errorf("Expected not-found on second validation, got valid=%t reason=%q", v.Valid, v.Reason)
	}
}

func TestValidateSession_InactivityTimeout(t *testing.T) {
	m, clock := newTestManager(Config{
		SessionTimeout:  24 * time.Hour,
		ActivityTimeout: time.Hour,
	})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(2 * time.Hour)

	v := m.ValidateSession(s.ID)
	if v.Valid || v.Reason != ReasonSessionIdle {
		t.Fatalf("Expected inactive result, got valid=%t reason=%q", v.Valid, v.Reason)
	}
	if _, ok := m.GetSession(s.ID); ok {
		t.Error("Expected inactive session removed from the live map")
	}
}

func TestValidateSession_RememberMeExemptFromInactivity(t *testing.T) {
	m, clock := newTestManager(Config{
		RememberMeTimeout: 30 * 24 * time.Hour,
		ActivityTimeout:   time.Hour,
		RotateOnActivity:  false,
	})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice, IsRememberMe: true})
	clock.advance(48 * time.Hour)

	if v := m.ValidateSession(s.ID); !v.Valid {
		t.Errorf("Expected remember-me session to survive inactivity, got %q", v.Reason)
	}
}

func TestValidateSession_RefreshesActivity(t *testing.T) {
	m, clock := newTestManager(Config{SessionTimeout: 24 * time.Hour, RotateOnActivity: false})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(10 * time.Minute)

	v := m.ValidateSession(s.ID)
	if !v.Valid {
		t.Fatalf("Expected valid session, got %q", v.Reason)
	}
	if !v.Session.LastActivityAt.Equal(clock.now()) {
		t.Errorf("Expected activity refreshed to %v, got %v", clock.now(), v.Session.LastActivityAt)
	}
}

func TestValidateSession_TransparentRotation(t *testing.T) {
	m, clock := newTestManager(Config{
		SessionTimeout:   24 * time.Hour,
		RotationInterval: time.Hour,
		RotateOnActivity: true,
	})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(2 * time.Hour)

	v := m.ValidateSession(s.ID)
	if !v.Valid {
		t.Fatalf("Expected valid session, got %q", v.Reason)
	}
	if !v.Rotated {
		t.Fatal("Expected transparent rotation past the rotation interval")
	}
	if v.Session.ID == s.ID {
		t.Error("Expected a fresh session id after rotation")
	}
	if _, ok := m.GetSession(s.ID); ok {
		t.Error("Expected old id to stop resolving after rotation")
	}
}

func TestRotateSession_PreservesIdentity(t *testing.T) {
	m, clock := newTestManager(Config{})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice, IsRememberMe: true})
	clock.advance(time.Minute)

	rotated, ok := m.RotateSession(s.ID)
	if !ok {
		t.Fatal("Expected rotation to succeed")
	}
	if rotated.ID == s.ID {
		t.Error("Expected a new session id")
	}
	if rotated.UserID != s.UserID || rotated.DeviceID != s.DeviceID || rotated.DeviceInfo != s.DeviceInfo {
		t.Error("Expected identity fields carried forward")
	}
	if rotated.IsRememberMe != s.IsRememberMe {
		t.Error("Expected remember-me flag carried forward")
	}
	if !rotated.CreatedAt.Equal(clock.now()) {
		t.Error("Expected creation timestamp reset on rotation")
	}
	if _, ok := m.GetSession(s.ID); ok {
		t.Error("Expected old id unresolvable after rotation")
	}
}

func TestRotateSession_UnknownID(t *testing.T) {
	m, _ := newTestManager(Config{})
	if _, ok := m.RotateSession("missing"); ok {
		t.Error("Expected rotation of unknown id to fail")
	}
}

func TestRevokeSession_Idempotent(t *testing.T) {
	m, _ := newTestManager(Config{})

	s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})

	if !m.RevokeSession(s.ID, ReasonLogout) {
		t.Fatal("Expected revocation to succeed")
	}
	if m.RevokeSession(s.ID, ReasonLogout) {
		t.Error("Expected second revocation to report unknown id")
	}
	if _, ok := m.GetSession(s.ID); ok {
		t.Error("Expected revoked session removed")
	}
}

func TestRevokeAllUserSessions_ExceptCurrent(t *testing.T) {
	m, _ := newTestManager(Config{MaxConcurrentSessions: 10})

	var keep string
	for i := 0; i < 4; i++ {
		s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
		if i == 0 {
			keep = s.ID
		}
	}
	m.CreateSession(CreateParams{UserID: "u2", DeviceInfo: testDevice})

	if revoked := m.RevokeAllUserSessions("u1", keep); revoked != 3 {
		t.Errorf("Expected 3 revocations, got %d", revoked)
	}
	if _, ok := m.GetSession(keep); !ok {
		t.Error("Expected excepted session to survive")
	}
	if len(m.GetUserSessions("u2")) != 1 {
		t.Error("Expected other user's sessions untouched")
	}
}

func TestGetUserDevices_GroupsByFingerprint(t *testing.T) {
	m, clock := newTestManager(Config{MaxConcurrentSessions: 10, SessionTimeout: 24 * time.Hour})

	other := DeviceInfo{UserAgent: "Mozilla/5.0", Platform: "MacIntel", Browser: "Safari", IP: "10.0.0.2"}

	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(time.Minute)
	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	clock.advance(time.Minute)
	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: other})

	devices := m.GetUserDevices("u1")
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}

	// Most recent activity first: the second device was used last.
	if devices[0].DeviceID != other.Fingerprint() {
		t.Error("Expected most recently active device first")
	}
	if devices[1].SessionCount != 2 {
		t.Errorf("Expected 2 sessions collapsed onto one device, got %d", devices[1].SessionCount)
	}
	if !devices[1].LastActivityAt.Equal(clock.now().Add(-time.Minute)) {
		t.Error("Expected device activity to reflect its newest session")
	}
}

func TestRevokeDeviceSessions(t *testing.T) {
	m, _ := newTestManager(Config{MaxConcurrentSessions: 10})

	other := DeviceInfo{UserAgent: "curl/8", Platform: "Linux", Browser: "", IP: "10.0.0.3"}

	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	kept := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: other})

	if revoked := m.RevokeDeviceSessions("u1", testDevice.Fingerprint()); revoked != 2 {
		t.Errorf("Expected 2 revocations, got %d", revoked)
	}
	if _, ok := m.GetSession(kept.ID); !ok {
		t.Error("Expected other-device session to survive")
	}
}

func TestCleanup_SweepsExpired(t *testing.T) {
	m, clock := newTestManager(Config{SessionTimeout: 30 * time.Minute})

	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	m.CreateSession(CreateParams{UserID: "u2", DeviceInfo: testDevice, IsRememberMe: true})

	clock.advance(time.Hour)

	if removed := m.Cleanup(); removed != 1 {
		t.Errorf("Expected 1 expired session swept, got %d", removed)
	}
	if len(m.GetUserSessions("u2")) != 1 {
		t.Error("Expected remember-me session to survive cleanup")
	}
}

func TestStats(t *testing.T) {
	m, clock := newTestManager(Config{MaxConcurrentSessions: 10, SessionTimeout: 24 * time.Hour})

	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
	s := m.CreateSession(CreateParams{UserID: "u2", DeviceInfo: testDevice})
	m.RevokeSession(s.ID, ReasonLogout)

	stats := m.Stats()
	if stats.ActiveSessions != 2 {
		t.Errorf("Expected 2 active sessions, got %d", stats.ActiveSessions)
	}
	if stats.UniqueUsers != 1 {
		t.Errorf("Expected 1 unique user, got %d", stats.UniqueUsers)
	}
	if stats.AvgSessionsPerUser != 2 {
		t.Errorf("Expected 2 sessions per user, got %v", stats.AvgSessionsPerUser)
	}
	if stats.LoginsLastHour != 3 {
		t.Errorf("Expected 3 logins in the last hour, got %d", stats.LoginsLastHour)
	}
	if stats.LogoutsLastHour != 1 {
		t.Errorf("Expected 1 logout in the last hour, got %d", stats.LogoutsLastHour)
	}

	// Aged-out audit records fall outside the trailing-hour window.
	clock.advance(2 * time.Hour)
	stats = m.Stats()
	if stats.LoginsLastHour != 0 {
		t.Errorf("Expected 0 logins after the window elapsed, got %d", stats.LoginsLastHour)
	}
}

func TestFingerprint_StableAndGrouping(t *testing.T) {
	a := DeviceInfo{UserAgent: "UA", Platform: "P", Browser: "B", IP: "1.1.1.1"}
	b := DeviceInfo{UserAgent: "UA", Platform: "P", Browser: "B", IP: "2.2.2.2"}
	c := DeviceInfo{UserAgent: "UA2", Platform: "P", Browser: "B"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint must ignore IP: same UA/platform/browser must group together")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Different user agents must produce different fingerprints")
	}
}

func TestActivityLog_Bounded(t *testing.T) {
	m, _ := newTestManager(Config{MaxConcurrentSessions: 10, MaxActivities: 10})

	for i := 0; i < 30; i++ {
		s := m.CreateSession(CreateParams{UserID: "u1", DeviceInfo: testDevice})
		m.RevokeSession(s.ID, ReasonLogout)
	}

	if got := len(m.RecentActivity(0)); got != 10 {
		t.Errorf("Expected activity log capped at 10, got %d", got)
	}
}
