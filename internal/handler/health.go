package handler

import (
	"context"
	"net/http"
	"time"

	"kairos/internal/database"
	"kairos/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version is reported by the service info endpoint. main copies its version
// here at startup; set it at build time with -ldflags "-X main.version=...".
var Version = "dev"

type HealthHandler struct {
	DB *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health reports whether the database answers a ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.DB); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":     util.CodeUnavailable,
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

// Info describes the service and lists its endpoints.
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "kairos",
		"version":     Version,
		"description": "personal expense tracking API",
		"endpoints": gin.H{
			"health":     "/health",
			"categories": "/categories",
			"entries":    "/entries",
			"export":     []string{"/entries/export/csv", "/entries/export/xlsx"},
			"backups":    "/backups",
		},
	})
}
