package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/api/handlers"
	"github.com/yourusername/mediagrab/api/middleware"
)

// SetupRouter sets up the HTTP health and stats router
func SetupRouter(bot handlers.BotStatus, stats handlers.StatsSource, log *zap.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(bot, stats)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", healthHandler.Stats)
	}

	return router
}
