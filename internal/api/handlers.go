// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/qualisight/qualisight/internal/cache"
	"github.com/qualisight/qualisight/internal/logging"
	"github.com/qualisight/qualisight/internal/memwatch"
	"github.com/qualisight/qualisight/internal/session"
)

// Handlers serves the admin endpoints over the injected subsystem instances.
type Handlers struct {
	cache    *cache.Service
	sessions *session.Manager
	monitor  *memwatch.Monitor
}

// NewHandlers wires the admin surface to the running subsystems.
func NewHandlers(c *cache.Service, s *session.Manager, m *memwatch.Monitor) *Handlers {
	return &Handlers{cache: c, sessions: s, monitor: m}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheStats returns the cache statistics snapshot.
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.Stats())
}

// CacheEntries lists live cache entries.
func (h *Handlers) CacheEntries(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.Entries())
}

type invalidateRequest struct {
	// Exactly one of the fields selects the invalidation mode.
	Key     string `json:"key,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Query   string `json:"query,omitempty"`
}

// CacheInvalidate removes entries by exact key, regex pattern, or query-id
// prefix.
func (h *Handlers) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Key != "":
		removed := 0
		if h.cache.Invalidate(req.Key) {
			removed = 1
		}
		respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
	case req.Pattern != "":
		removed, err := h.cache.InvalidatePattern(req.Pattern)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid pattern: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
	case req.Query != "":
		respondJSON(w, http.StatusOK, map[string]int{"removed": h.cache.InvalidateQuery(req.Query)})
	default:
		respondError(w, http.StatusBadRequest, "one of key, pattern, or query is required")
	}
}

type evictRequest struct {
	Count int `json:"count"`
}

// CacheEvict removes the least-hit entries for operator pressure relief.
func (h *Handlers) CacheEvict(w http.ResponseWriter, r *http.Request) {
	var req evictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Count <= 0 {
		respondError(w, http.StatusBadRequest, "count must be positive")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"evicted": h.cache.EvictLRU(req.Count)})
}

// CacheClear drops every entry.
func (h *Handlers) CacheClear(w http.ResponseWriter, _ *http.Request) {
	h.cache.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// MemoryStats returns the monitor's aggregated state.
func (h *Handlers) MemoryStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Stats())
}

// MemoryReport renders the monitoring report as plain text.
func (h *Handlers) MemoryReport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(h.monitor.Report())); err != nil {
		logging.Error().Err(err).Msg("Failed to write memory report")
	}
}

// MemoryAlerts lists stored memory alerts.
func (h *Handlers) MemoryAlerts(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Alerts())
}

// MemoryForceGC triggers a forced garbage collection.
func (h *Handlers) MemoryForceGC(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"forced": h.monitor.ForceGC()})
}

// SessionStats summarizes the live session population.
func (h *Handlers) SessionStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.sessions.Stats())
}

// SessionActivity returns the newest audit records (default 100).
func (h *Handlers) SessionActivity(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	respondJSON(w, http.StatusOK, h.sessions.RecentActivity(limit))
}

// UserDevices lists a user's active sessions grouped by device fingerprint.
func (h *Handlers) UserDevices(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	respondJSON(w, http.StatusOK, h.sessions.GetUserDevices(userID))
}

// RevokeUserSessions signs a user out everywhere. The optional "except"
// query parameter preserves the caller's own session.
func (h *Handlers) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	except := r.URL.Query().Get("except")
	respondJSON(w, http.StatusOK, map[string]int{
		"revoked": h.sessions.RevokeAllUserSessions(userID, except),
	})
}

// RevokeDeviceSessions revokes every session of a user on one device.
func (h *Handlers) RevokeDeviceSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	deviceID := chi.URLParam(r, "deviceID")
	respondJSON(w, http.StatusOK, map[string]int{
		"revoked": h.sessions.RevokeDeviceSessions(userID, deviceID),
	})
}
