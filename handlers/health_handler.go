package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DatabaseChecker reports database availability
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionPinger reports session store availability
type SessionPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db       DatabaseChecker
	sessions SessionPinger
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Nil dependencies are skipped.
func NewHealthHandler(db DatabaseChecker, sessions SessionPinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that the database and session store are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			h.logger.Warn(name+" health check failed", zap.Error(err))
			checks[name] = "unhealthy"
			allHealthy = false
			return
		}
		checks[name] = "healthy"
	}

	if h.db != nil {
		check("database", h.db.HealthCheck)
	}
	if h.sessions != nil {
		check("sessions", h.sessions.Ping)
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
