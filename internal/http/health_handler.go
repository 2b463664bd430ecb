package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger es cualquier dependencia que se puede chequear.
type Pinger func(ctx context.Context) error

// HealthHandler reporta el estado de las dependencias del relay.
type HealthHandler struct {
	logger  *zap.Logger
	checks  map[string]Pinger
	clients func() int
}

func NewHealthHandler(logger *zap.Logger, checks map[string]Pinger, clients func() int) *HealthHandler {
	return &HealthHandler{logger: logger, checks: checks, clients: clients}
}

// Health maneja GET /healthz.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{"status": "ok", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.clients != nil {
		body["connections"] = h.clients()
	}
	c.JSON(status, body)
}
