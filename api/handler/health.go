package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagelint/pagelint/models"
)

// degradedInFlight is the in-flight fetch count above which the service
// reports itself degraded.
const degradedInFlight = 32

// Health returns a handler for GET /api/v1/health.
func Health(pf PageFetcher, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pf.Stats()

		status := "healthy"
		if stats.InFlight > degradedInFlight {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Fetcher: stats,
			Version: "0.1.0",
		})
	}
}
