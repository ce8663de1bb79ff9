// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package api provides the administrative and monitoring HTTP surface for
// the cache, session, and memory subsystems. It carries no business data;
// the dashboard's query traffic reaches the cache in-process, not over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qualisight/qualisight/internal/logging"
)

// Router assembles the admin HTTP handler.
func Router(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/api/v1/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/cache", func(r chi.Router) {
		r.Get("/stats", h.CacheStats)
		r.Get("/entries", h.CacheEntries)
		r.Post("/invalidate", h.CacheInvalidate)
		r.Post("/evict", h.CacheEvict)
		r.Post("/clear", h.CacheClear)
	})

	r.Route("/api/v1/memory", func(r chi.Router) {
		r.Get("/stats", h.MemoryStats)
		r.Get("/report", h.MemoryReport)
		r.Get("/alerts", h.MemoryAlerts)
		r.Post("/gc", h.MemoryForceGC)
	})

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/stats", h.SessionStats)
		r.Get("/activity", h.SessionActivity)
		r.Get("/users/{userID}/devices", h.UserDevices)
		r.Delete("/users/{userID}/sessions", h.RevokeUserSessions)
		r.Delete("/users/{userID}/devices/{deviceID}", h.RevokeDeviceSessions)
	})

	return r
}

// requestLogger emits one structured log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}
