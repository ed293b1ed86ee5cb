package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/threatgate/internal/api/http/response"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
)

const readyTimeout = 2 * time.Second

type Health struct {
	store   model.Pinger
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewHealth(store model.Pinger, metrics *metrics.Metrics, logger *logger.Logger) *Health {
	return &Health{store: store, metrics: metrics, logger: logger}
}

type healthResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Live handles GET /health.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, healthResponse{OK: true})
}

// Ready handles GET /ready. It fails while the user store is unhealthy.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.metrics.SetStoreUp(false)
		h.logger.Warn("Health handler: user store not ready",
			"error", err.Error())
		response.JSON(w, http.StatusServiceUnavailable, healthResponse{OK: false, Error: "user store unavailable"})
		return
	}

	h.metrics.SetStoreUp(true)
	response.JSON(w, http.StatusOK, healthResponse{OK: true})
}
