package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HealthChecker is a dependency that can be pinged and reports pool stats
type HealthChecker interface {
	Health(ctx context.Context) error
	Stats() map[string]interface{}
}

// StatsInvalidator drops cached per-user statistics
type StatsInvalidator interface {
	InvalidateUser(ctx context.Context, userID int) error
}

// HealthHandler serves the internal operational endpoints
type HealthHandler struct {
	db          HealthChecker
	redis       HealthChecker
	invalidator StatsInvalidator
	timeout     time.Duration
	logger      *zap.Logger
}

// NewHealthHandler creates the internal handler; invalidator may be nil when caching is off
func NewHealthHandler(db, redis HealthChecker, invalidator StatsInvalidator, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		db:          db,
		redis:       redis,
		invalidator: invalidator,
		timeout:     timeout,
		logger:      logger,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string                 `json:"status"`
	Timestamp    time.Time              `json:"timestamp"`
	Services     map[string]string      `json:"services"`
	DatabasePool map[string]interface{} `json:"database_pool"`
	RedisPool    map[string]interface{} `json:"redis_pool"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "unhealthy"
		response.Services["database"] = "down: " + err.Error()
		h.logger.Warn("Database health check failed", zap.Error(err))
	} else {
		response.Services["database"] = "ok"
	}

	if err := h.redis.Health(ctx); err != nil {
		response.Status = "unhealthy"
		response.Services["redis"] = "down: " + err.Error()
		h.logger.Warn("Redis health check failed", zap.Error(err))
	} else {
		response.Services["redis"] = "ok"
	}

	response.DatabasePool = h.db.Stats()
	response.RedisPool = h.redis.Stats()

	statusCode := http.StatusOK
	if response.Status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		http.Error(w, "Database not ready", http.StatusServiceUnavailable)
		return
	}
	if err := h.redis.Health(ctx); err != nil {
		http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// InvalidateUserStats handles POST /internal/stats/{userID}/invalidate, called
// by the statistics engine after it rewrites a user's stats
func (h *HealthHandler) InvalidateUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_error", "message": "Invalid userId"})
		return
	}

	if h.invalidator == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Cache disabled"})
		return
	}

	if err := h.invalidator.InvalidateUser(r.Context(), userID); err != nil {
		h.logger.Error("Failed to invalidate user stats", zap.Int("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": "Internal server error"})
		return
	}

	h.logger.Info("User stats cache invalidated", zap.Int("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
