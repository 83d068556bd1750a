package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/peertrack/pkg/directory"
)

// healthcheckTimeout bounds a single directory healthcheck.
const healthcheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the process running?
//   - Readiness probe: Can the directory answer queries?
type HealthHandler struct {
	dir       directory.Directory
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
//
// dir may be nil, in which case readiness reports unhealthy.
func NewHealthHandler(dir directory.Directory) *HealthHandler {
	return &HealthHandler{dir: dir, startedAt: time.Now()}
}

// Liveness handles GET /health. It succeeds whenever the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "peertrack",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// ReadinessResponse is the payload of a readiness probe.
type ReadinessResponse struct {
	Backend string `json:"backend"`
	Files   int    `json:"files"`
	Peers   int    `json:"peers"`
	Latency string `json:"latency"`
}

// Readiness handles GET /health/ready.
//
// Returns 200 when the directory passes its healthcheck, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.dir == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("directory not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.dir.Healthcheck(ctx)
	latency := time.Since(start)

	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(
			ReadinessResponse{Latency: latency.String()}, err.Error()))
		return
	}

	stats, err := h.dir.Stats(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(ReadinessResponse{
		Backend: stats.Backend,
		Files:   stats.Files,
		Peers:   stats.Peers,
		Latency: latency.String(),
	}))
}
