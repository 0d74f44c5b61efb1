package main

import (
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/handlers"
	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/internal/utils"
	"github.com/huangang/gitdigest/pkg/logger"
)

// appServices holds the initialized services and handlers of the server.
type appServices struct {
	sessionService *services.SessionService
	rateLimiter    *middleware.RateLimiter

	healthHandler     *handlers.HealthHandler
	authHandler       *handlers.AuthHandler
	preferenceHandler *handlers.PreferenceHandler
	githubHandler     *handlers.GitHubHandler
	reportHandler     *handlers.ReportHandler
	systemHandler     *handlers.SystemConfigHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.Security.StateSecret)

	if err := models.InitDB(&cfg.Database, cfg.Server.Mode == "debug"); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := metrics.RegisterDBStats(sqlDB); err != nil {
			logger.Warn().Err(err).Msg("Failed to register DB metrics")
		}
	}

	cipher, err := utils.NewTokenCipher(cfg.Security.TokenSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize token cipher: %v", err)
	}

	if len(cfg.LLM.Providers) == 0 {
		logger.Warn().Msg("No LLM providers configured, report generation will fail")
	}

	newFetcher := github.NewFactory(github.Options{
		APIBaseURL: cfg.GitHub.APIBaseURL,
		MaxPages:   cfg.GitHub.MaxPages,
	})
	configService := services.NewSystemConfigService(db)
	summarizer := services.NewLLMSummarizer(cfg.LLM.Providers, configService, cfg.Summary)

	authService := services.NewAuthService(db, cfg.GitHub, cipher, newFetcher)
	sessionService := services.NewSessionService(db, cfg.Session)
	preferenceService := services.NewPreferenceService(db)
	repositoryService := services.NewRepositoryService(db, newFetcher)
	reportService := services.NewReportService(db, cfg.Activity, newFetcher, summarizer)
	notificationService := services.NewNotificationService(db, reportService, preferenceService)

	sessionService.StartJanitor()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window())
	}

	return &appServices{
		sessionService:    sessionService,
		rateLimiter:       limiter,
		healthHandler:     handlers.NewHealthHandler(db),
		authHandler:       handlers.NewAuthHandler(authService, sessionService, preferenceService, cfg),
		preferenceHandler: handlers.NewPreferenceHandler(preferenceService),
		githubHandler:     handlers.NewGitHubHandler(authService, repositoryService, reportService, preferenceService),
		reportHandler:     handlers.NewReportHandler(authService, reportService, preferenceService, notificationService),
		systemHandler:     handlers.NewSystemConfigHandler(configService, cfg),
	}
}

// shutdown stops background jobs.
func (s *appServices) shutdown() {
	s.sessionService.StopJanitor()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	logger.Info().Msg("All schedulers stopped")
}
