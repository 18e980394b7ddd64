package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthDependency struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type healthResponse struct {
	Dependencies map[string]healthDependency `json:"dependencies"`
	Status       string                      `json:"status"`
}

// Health handles GET /health. Degraded means the database answered but took
// more than a second; unhealthy means it did not answer at all.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.healthChecker.PingContext(pingCtx)
	latency := time.Since(start)

	if err != nil {
		h.logger.Error("health check failed: database unreachable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
			Dependencies: map[string]healthDependency{
				"database": {Status: "unreachable", LatencyMS: latency.Milliseconds()},
			},
		})
		return
	}

	status := "healthy"
	dbStatus := "ok"
	if latency > time.Second {
		status = "degraded"
		dbStatus = "slow"
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status: status,
		Dependencies: map[string]healthDependency{
			"database": {Status: dbStatus, LatencyMS: latency.Milliseconds()},
		},
	})
}
