package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
)

// HealthHandler provides liveness and readiness probes
type HealthHandler struct {
	engine    domain.Dispatcher
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine domain.Dispatcher, version string) *HealthHandler {
	return &HealthHandler{
		engine:    engine,
		startTime: time.Now(),
		version:   version,
	}
}

// RegisterRoutes mounts /health, /health/live and /health/ready on r
func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/live", h.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.ReadinessHandler).Methods(http.MethodGet)
}

// ReadinessHandler reports ready once the engine holds a topology
func (h *HealthHandler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.Snapshot()

	status := "ready"
	code := http.StatusOK
	if !snapshot.Initialized {
		status = "not_initialized"
		code = http.StatusServiceUnavailable
	}

	healthy := 0
	for _, server := range snapshot.Servers {
		if server.Healthy {
			healthy++
		}
	}

	h.write(w, code, map[string]interface{}{
		"status":          status,
		"timestamp":       time.Now().UTC(),
		"version":         h.version,
		"uptime":          time.Since(h.startTime).String(),
		"algorithm":       snapshot.Algorithm,
		"servers":         len(snapshot.Servers),
		"healthy_servers": healthy,
	})
}

// LivenessHandler checks if the application is alive
func (h *HealthHandler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	})
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
