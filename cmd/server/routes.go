package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/handlers"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.SecurityHeaders(cfg.Server.Mode == gin.ReleaseMode))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	api := r.Group("/api")
	if svc.rateLimiter != nil {
		api.Use(svc.rateLimiter.Middleware())
	}
	{
		api.GET("/health", svc.healthHandler.CheckHealth)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.GET("/login", svc.authHandler.Login)
			auth.GET("/callback", svc.authHandler.Callback)
		}

		api.GET("/github/public-repos/:username", svc.githubHandler.PublicRepos)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.SessionRequired(svc.sessionService, cfg.Session))
		{
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.GET("/auth/authorize-repos", svc.authHandler.AuthorizeRepos)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			protected.GET("/preferences", svc.preferenceHandler.Get)
			protected.PUT("/preferences", svc.preferenceHandler.Update)

			protected.GET("/github/private-repos", svc.githubHandler.PrivateRepos)
			protected.POST("/github/activity", svc.githubHandler.Activity)

			protected.POST("/reports/generate", svc.reportHandler.Generate)
			protected.POST("/reports/summarize", svc.reportHandler.Summarize)
			protected.GET("/reports", svc.reportHandler.List)
			protected.GET("/reports/:id", svc.reportHandler.Get)
			protected.POST("/reports/:id/share", svc.reportHandler.Share)
		}

		// Admin routes
		admin := protected.Group("/system")
		admin.Use(middleware.AdminRequired(cfg.Server.AdminLogins))
		{
			admin.GET("/settings", svc.systemHandler.GetSettings)
			admin.PUT("/settings", svc.systemHandler.UpdateSettings)
		}
	}
}
