// Package httpapi implements the offline HTTP surface (§6.3): a small set
// of endpoints for tooling that cannot speak the WebSocket control plane —
// health checks, one-off syncs, batch crash recovery, and read-only
// status/export lookups.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/metrics"
	"goldbox-rpg/pkg/registry"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncengine"
)

// Server wires the offline HTTP surface to the SyncEngine, Registry, and
// Store. It holds no player state of its own.
type Server struct {
	engine   *syncengine.Engine
	registry *registry.Registry
	store    store.Store
	metrics  *metrics.Metrics
	apiKey   string
	limiter  *RateLimiter
}

// Config bundles the httpapi.Server constructor's dependencies.
type Config struct {
	Engine            *syncengine.Engine
	Registry          *registry.Registry
	Store             store.Store
	Metrics           *metrics.Metrics
	APIKey            string
	RequestsPerSecond float64
	Burst             int
}

// New constructs the offline HTTP surface.
func New(cfg Config) *Server {
	return &Server{
		engine:   cfg.Engine,
		registry: cfg.Registry,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		apiKey:   cfg.APIKey,
		limiter:  NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Handler returns the complete mux, wrapped in auth, rate-limit, and
// metrics middleware (§6.3).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/health", s.handleHealth)
	mux.HandleFunc("/api/sync/player", s.handlePlayerSync)
	mux.HandleFunc("/api/sync/batch", s.handleBatch)
	mux.HandleFunc("/api/sync/status/", s.handleStatus)
	mux.HandleFunc("/api/sync/player/", s.handlePlayerExport)

	var handler http.Handler = mux
	handler = s.metricsMiddleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = s.authMiddleware(handler)
	return handler
}

// handleHealth never requires authentication: it is the liveness probe
// load balancers and orchestrators poll before a game server ever speaks
// to this service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeJSON",
			"error":    err,
		}).Error("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// requestTimeout bounds every offline-surface handler's Store/Engine call.
const requestTimeout = 10 * time.Second
