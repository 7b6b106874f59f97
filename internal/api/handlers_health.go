// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"net/http"
	"time"
)

// Healthz is the liveness probe. It reports 200 while the process serves
// requests, regardless of dependencies.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// Readyz is the readiness probe. It reports 503 until the database answers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db.Ping(r.Context()) == nil

	status, code := "ready", http.StatusOK
	if !dbConnected {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	})
}
