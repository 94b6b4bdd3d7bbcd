package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthHandler reports whether the store is reachable
type HealthHandler struct {
	store   repositories.Pinger
	timeout time.Duration
	log     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store repositories.Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second, log: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "up"})
}
