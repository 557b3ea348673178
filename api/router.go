package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagelint/pagelint/api/handler"
	"github.com/pagelint/pagelint/api/middleware"
	"github.com/pagelint/pagelint/audit"
	"github.com/pagelint/pagelint/cache"
	"github.com/pagelint/pagelint/config"
	"github.com/pagelint/pagelint/report"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// The health endpoint and the browser UI are intentionally outside auth:
// probes must always work, and the UI is the tool's public face.
func NewRouter(pf handler.PageFetcher, au *audit.Auditor, rn *report.Renderer, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Browser UI, no auth required.
	r.GET("/", handler.Home())
	r.GET("/audit", handler.AuditUI(pf, au, rn))

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(pf, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Audit
	protected.POST("/audit", handler.Audit(pf, au, rn, cc))

	// Batch
	protected.POST("/batch/audit", handler.PostBatch(pf, au, rn))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
