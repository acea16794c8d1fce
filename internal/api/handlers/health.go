package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	database Pinger
}

// NewHealthHandler creates a new health handler. database may be nil.
func NewHealthHandler(database Pinger) *HealthHandler {
	return &HealthHandler{database: database}
}

// GetHealth returns the health status of the service
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	status, code := "UP", http.StatusOK
	database := "UP"

	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			status, code, database = "DOWN", http.StatusServiceUnavailable, "DOWN"
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "fitsync",
		"database": database,
	})
}
