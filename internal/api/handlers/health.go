package handlers

import (
	"net/http"

	"github.com/investorcenter/ic-engine/pkg/database"
	"github.com/investorcenter/ic-engine/pkg/logger"
	"github.com/investorcenter/ic-engine/pkg/redis"
)

// HealthHandler serves the liveness/readiness endpoint.
type HealthHandler struct {
	db         *database.DB
	redis      *redis.Client
	configHash string
	logger     *logger.Logger
}

// NewHealthHandler creates a new health handler. configHash identifies
// the loaded weights file so operators can confirm which parameter set
// is live.
func NewHealthHandler(db *database.DB, rc *redis.Client, configHash string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		redis:      rc,
		configHash: configHash,
		logger:     log,
	}
}

// Check reports service health.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	dbStatus, err := h.db.HealthCheck(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": dbStatus,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"service":       "ic-engine-api",
		"config_hash":   h.configHash,
		"database":      dbStatus,
		"redis_enabled": h.redis != nil && h.redis.Enabled(),
	})
}
