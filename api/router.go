package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vgascout/api/handler"
	"github.com/use-agent/vgascout/api/middleware"
	"github.com/use-agent/vgascout/config"
	"github.com/use-agent/vgascout/metrics"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(runs handler.Runs, rec *metrics.Recorder, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if rec != nil {
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(runs, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(runs, cfg.Scraper.MaxPages))
	protected.GET("/runs", handler.ListRuns(runs))
	protected.GET("/runs/:id", handler.GetRun(runs))

	return r
}
