package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/pkg/api/handlers"
	"github.com/marmos91/peertrack/pkg/directory"
)

// Dependencies are the collaborators the admin API reads from. Any of them
// may be nil; the matching routes then report 503 or are not mounted.
type Dependencies struct {
	Directory directory.Directory
	Sessions  handlers.SessionLister

	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /metrics - Prometheus exposition
//   - GET /api/v1/sessions - Live tracker sessions
//   - GET /api/v1/files - File catalog
//   - GET /api/v1/peers?file_id=N - Seeders of a file
//   - GET /api/v1/stats - Directory counters
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Directory)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		sessionHandler := handlers.NewSessionHandler(deps.Sessions)
		r.Get("/sessions", sessionHandler.List)

		if deps.Directory != nil {
			dirHandler := handlers.NewDirectoryHandler(deps.Directory)
			r.Get("/files", dirHandler.Files)
			r.Get("/peers", dirHandler.Peers)
			r.Get("/stats", dirHandler.Stats)
		}
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (DEBUG level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDuration, time.Since(start).String(),
		)
	})
}
