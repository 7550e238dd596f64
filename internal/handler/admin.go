package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// Engine is the decision engine surface exposed over HTTP
type Engine interface {
	domain.Dispatcher
	Request(id string) (domain.Request, error)
	Servers() []domain.Server
	Requests() []domain.Request
	Logs() []domain.LogRecord
	GetStats() map[string]interface{}
}

// Reloader re-reads the simulation settings from their source
type Reloader interface {
	Reload() error
}

// AdminHandler exposes engine snapshots and commands as a JSON API
type AdminHandler struct {
	engine    Engine
	logger    *logger.Logger
	startTime time.Time

	mu       sync.RWMutex
	reloader Reloader
	stats    map[string]func() map[string]interface{}
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(engine Engine, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		engine:    engine,
		logger:    log.AdminLogger(),
		startTime: time.Now(),
		stats:     make(map[string]func() map[string]interface{}),
	}
}

// SetReloader enables POST /api/config/reload
func (h *AdminHandler) SetReloader(reloader Reloader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloader = reloader
}

// AddStatsProvider adds a named section to GET /api/stats
func (h *AdminHandler) AddStatsProvider(name string, provider func() map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats[name] = provider
}

// InitializeRequest is the body of POST /api/initialize
type InitializeRequest struct {
	Clients   int    `json:"clients"`
	Servers   int    `json:"servers"`
	Algorithm string `json:"algorithm"`
}

// AddRequestRequest is the body of POST /api/requests.
// Count defaults to 1; larger values create a batch.
type AddRequestRequest struct {
	OriginID int  `json:"origin_id"`
	Count    *int `json:"count,omitempty"`
}

// AddRequestResponse is returned when a request is created
type AddRequestResponse struct {
	ID      string         `json:"id"`
	Request domain.Request `json:"request"`
}

// ToggleServerResponse reports a server's health after a toggle
type ToggleServerResponse struct {
	ID      int  `json:"id"`
	Healthy bool `json:"healthy"`
}

// ModeResponse reports the dispatch mode
type ModeResponse struct {
	AutoMode bool `json:"auto_mode"`
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the structured error fields
type ErrorDetail struct {
	Code      lberrors.ErrorCode     `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RegisterRoutes mounts every admin route on r
func (h *AdminHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/state", h.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/servers", h.ListServersHandler).Methods(http.MethodGet)
	api.HandleFunc("/requests", h.ListRequestsHandler).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", h.GetRequestHandler).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.LogsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)

	api.HandleFunc("/initialize", h.InitializeHandler).Methods(http.MethodPost)
	api.HandleFunc("/reset", h.ResetHandler).Methods(http.MethodPost)
	api.HandleFunc("/requests", h.AddRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/advance", h.AdvanceRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/resolve", h.ResolveRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/servers/{id}/toggle", h.ToggleServerHandler).Methods(http.MethodPost)
	api.HandleFunc("/mode/toggle", h.ToggleModeHandler).Methods(http.MethodPost)
	api.HandleFunc("/step", h.StepHandler).Methods(http.MethodPost)
	api.HandleFunc("/config/reload", h.ReloadHandler).Methods(http.MethodPost)
}

// StateHandler handles GET /api/state
func (h *AdminHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// ListServersHandler handles GET /api/servers
func (h *AdminHandler) ListServersHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Servers())
}

// ListRequestsHandler handles GET /api/requests
func (h *AdminHandler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Requests())
}

// GetRequestHandler handles GET /api/requests/{id}
func (h *AdminHandler) GetRequestHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.engine.Request(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// LogsHandler handles GET /api/logs
func (h *AdminHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Logs())
}

// StatsHandler handles GET /api/stats
func (h *AdminHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"engine": h.engine.GetStats(),
		"uptime": time.Since(h.startTime).String(),
	}

	h.mu.RLock()
	for name, provider := range h.stats {
		response[name] = provider()
	}
	h.mu.RUnlock()

	h.writeJSON(w, http.StatusOK, response)
}

// InitializeHandler handles POST /api/initialize
func (h *AdminHandler) InitializeHandler(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.engine.Initialize(req.Clients, req.Servers, domain.Algorithm(req.Algorithm)); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logAction(r, "initialize", map[string]interface{}{
		"clients":   req.Clients,
		"servers":   req.Servers,
		"algorithm": req.Algorithm,
	})
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// ResetHandler handles POST /api/reset
func (h *AdminHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	h.logAction(r, "reset", nil)
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// AddRequestHandler handles POST /api/requests
func (h *AdminHandler) AddRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body AddRequestRequest
	if !h.decode(w, r, &body) {
		return
	}

	count := 1
	if body.Count != nil {
		count = *body.Count
	}

	id, err := h.engine.AddRequest(body.OriginID, count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.engine.Request(id)
	if err != nil {
		// a concurrent reset may already have removed it
		h.writeError(w, r, err)
		return
	}

	h.logAction(r, "add_request", map[string]interface{}{
		"request_id": id,
		"origin_id":  body.OriginID,
		"count":      count,
	})
	h.writeJSON(w, http.StatusCreated, AddRequestResponse{ID: id, Request: req})
}

// AdvanceRequestHandler handles POST /api/requests/{id}/advance
func (h *AdminHandler) AdvanceRequestHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.engine.AdvanceRequest(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeRequestOrGone(w, id)
}

// ResolveRequestHandler handles POST /api/requests/{id}/resolve
func (h *AdminHandler) ResolveRequestHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.engine.ResolveAtServer(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeRequestOrGone(w, id)
}

// writeRequestOrGone answers with the request, or 204 once it reached DONE
func (h *AdminHandler) writeRequestOrGone(w http.ResponseWriter, id string) {
	req, err := h.engine.Request(id)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// ToggleServerHandler handles POST /api/servers/{id}/toggle
func (h *AdminHandler) ToggleServerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, lberrors.NewError(lberrors.ErrCodeInvalidRequest, "admin_api", "server id must be an integer"))
		return
	}

	healthy, err := h.engine.ToggleServerHealth(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logAction(r, "toggle_server", map[string]interface{}{
		"server_id": id,
		"healthy":   healthy,
	})
	h.writeJSON(w, http.StatusOK, ToggleServerResponse{ID: id, Healthy: healthy})
}

// ToggleModeHandler handles POST /api/mode/toggle
func (h *AdminHandler) ToggleModeHandler(w http.ResponseWriter, r *http.Request) {
	auto := h.engine.ToggleMode()
	h.logAction(r, "toggle_mode", map[string]interface{}{"auto_mode": auto})
	h.writeJSON(w, http.StatusOK, ModeResponse{AutoMode: auto})
}

// StepHandler handles POST /api/step
func (h *AdminHandler) StepHandler(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Step()
	h.writeJSON(w, http.StatusOK, result)
}

// ReloadHandler handles POST /api/config/reload
func (h *AdminHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	reloader := h.reloader
	h.mu.RUnlock()

	if reloader == nil {
		h.writeError(w, r, lberrors.NewError(lberrors.ErrCodeInvalidRequest, "admin_api", "config reload is not enabled"))
		return
	}
	if err := reloader.Reload(); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logAction(r, "reload_config", nil)
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, lberrors.WrapError(err, lberrors.ErrCodeInvalidRequest, "admin_api", "Invalid JSON body"))
		return false
	}
	return true
}

func (h *AdminHandler) logAction(r *http.Request, action string, fields map[string]interface{}) {
	entry := h.logger.WithField("action", action)
	if rc, ok := domain.RequestContextFrom(r.Context()); ok {
		entry = entry.WithField("request_id", rc.RequestID)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("Admin command applied")
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError writes a standardized error response
func (h *AdminHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var requestID string
	if rc, ok := domain.RequestContextFrom(r.Context()); ok {
		requestID = rc.RequestID
	}

	code := lberrors.GetErrorCode(err)
	detail := ErrorDetail{
		Code:      code,
		Message:   err.Error(),
		RequestID: requestID,
	}

	var lbErr *lberrors.LoadBalancerError
	if errors.As(err, &lbErr) {
		detail.Message = lbErr.Message
		detail.Metadata = lbErr.Metadata
	}

	status := lberrors.GetHTTPStatusCode(err)
	entry := h.logger.WithError(err).WithFields(map[string]interface{}{
		"code":       code,
		"status":     status,
		"request_id": requestID,
	})
	if status >= 500 {
		entry.Error("API error response")
	} else {
		entry.Debug("API error response")
	}

	h.writeJSON(w, status, ErrorResponse{Error: detail})
}
