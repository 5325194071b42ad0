package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vgascout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "busy" while a run holds the browser, "healthy" otherwise.
func Health(runs Runs, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := runs.Active()

		status := "healthy"
		if active {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			RunActive: active,
			Version:   Version,
		})
	}
}
