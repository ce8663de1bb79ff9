// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package session manages the lifecycle of authenticated user sessions:
// creation with a per-user concurrency cap, validation with expiry and
// inactivity handling, transparent id rotation, revocation (single, per-user,
// per-device), and a bounded activity audit trail.
//
// A session is active until it expires, times out from inactivity, or is
// revoked; all three outcomes remove it from the live map permanently. When
// a user is at the concurrency cap, a new login evicts their least-recently
// active session rather than failing - login always succeeds.
//
// Lookups on unknown ids return structured invalid results, never errors; the
// authentication middleware translates the reason into user-facing messaging.
package session
