package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether the backing store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves GET /api/health
type HealthHandler struct {
	db        Pinger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
	}
}

// Check reports liveness plus database reachability. A database that does not
// answer turns the response into a 503 so load balancers drain the instance.
func (h *HealthHandler) Check(c *gin.Context) {
	status, database, code := "ok", "up", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("health check: database ping failed", zap.Error(err))
			status, database, code = "degraded", "down", http.StatusServiceUnavailable
		}
	}

	body := dto.NewSuccessBody(dto.Fields{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"database":  database,
	})
	if code != http.StatusOK {
		body["success"] = false
	}
	c.JSON(code, body)
}
