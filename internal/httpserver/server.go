package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/godlykids/engagement-analytics/internal/auth"
	"github.com/godlykids/engagement-analytics/internal/cache"
	"github.com/godlykids/engagement-analytics/internal/config"
	"github.com/godlykids/engagement-analytics/internal/handlers"
	"github.com/godlykids/engagement-analytics/internal/logger"
	"github.com/godlykids/engagement-analytics/internal/metrics"
	"github.com/godlykids/engagement-analytics/internal/store"
)

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /internal/metrics
// Authenticated: /events/* (append), /analytics/* (read)
func NewRouter(cfg config.Config, log *logger.Logger, st *store.PostgresStore, ca *cache.Cache) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/internal/metrics", metrics.Handler())

	// Auth group enforces producer identity via X-API-Key.
	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	handlers.RegisterEventRoutes(authGroup, log, st)

	analyticsHandler := handlers.NewAnalyticsHandler(log, st, ca, handlers.AnalyticsOptions{
		OnboardingSteps:       cfg.OnboardingSteps,
		TutorialSteps:         cfg.TutorialSteps,
		TrendingHalfLifeHours: cfg.TrendingHalfLifeHours,
		DropOffLimit:          cfg.DropOffLimit,
		OverviewCacheTTL:      cfg.OverviewCacheTTL,
	})
	analyticsHandler.RegisterAnalyticsRoutes(authGroup)

	return r
}
