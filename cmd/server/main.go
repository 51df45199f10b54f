// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/ai"
	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/database"
	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/router"
	"github.com/javajoker/curation-backend/internal/scraper"
	"github.com/javajoker/curation-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to prepare storage bucket")
	}

	locker, invalidator, closeRedis := coordination(ctx, cfg.Redis)
	defer closeRedis()

	fetcher := scraper.NewHTTPFetcher(scraper.FetcherConfig{
		UserAgent:         cfg.Scraper.UserAgent,
		Timeout:           cfg.Scraper.FetchTimeout,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
	})
	var browser scraper.Fetcher
	if cfg.Scraper.BrowserEnabled {
		bf := scraper.NewBrowserFetcher(scraper.BrowserConfig{
			RemoteURL: cfg.Scraper.ChromeRemoteURL,
			UserAgent: cfg.Scraper.UserAgent,
		})
		defer bf.Close()
		browser = bf
	}

	translator := ai.NewClient(ai.Config{
		APIKey:            cfg.Translation.APIKey,
		BaseURL:           cfg.Translation.BaseURL,
		Model:             cfg.Translation.Model,
		PromptVersion:     cfg.Translation.PromptVersion,
		MaxTokens:         cfg.Translation.MaxTokens,
		Temperature:       cfg.Translation.Temperature,
		RequestsPerMinute: cfg.Translation.RequestsPerMinute,
		Referer:           cfg.Frontend.BaseURL,
	})

	store := repository.NewGormStore(db)
	images := services.NewImageProcessor(storage, cfg.Images, cfg.Scraper.UserAgent, nil)
	scrapeService := services.NewScrapeService(store, scraper.DefaultRegistry(), fetcher, browser, locker, cfg.Scraper.DelayBetweenURLs)
	translationService := services.NewTranslationService(store, translator, locker, cfg.Translation.DelayBetweenItems)
	translationService.SetReviewBatchSize(cfg.Translation.ReviewBatchSize)
	curationService := services.NewCurationService(store, images, translationService, locker)
	publisher := services.NewPublisher(store, locker, invalidator, cfg.Catalog)

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(cfg.Scheduler, scrapeService, curationService, translationService)
		if err := scheduler.Start(); err != nil {
			logrus.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Initialize(ctx, cfg, router.Services{
		Store:       store,
		Scrape:      scrapeService,
		Curation:    curationService,
		Translation: translationService,
		Publisher:   publisher,
		Pipeline:    services.NewPipelineService(store),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Running jobs finish before the server goes away.
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

// coordination picks the lock and invalidation backends. Redis is used
// when enabled and reachable; otherwise locks are process-local.
func coordination(ctx context.Context, cfg config.RedisConfig) (services.Locker, services.Invalidator, func()) {
	local := func() {}
	if !cfg.Enabled {
		return services.NewLocalLocker(), services.LogInvalidator{}, local
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr()).Warn("Redis unavailable, using process-local locks")
		_ = client.Close()
		return services.NewLocalLocker(), services.LogInvalidator{}, local
	}

	logrus.WithField("addr", cfg.Addr()).Info("Redis connection established")
	return services.NewRedisLocker(client), services.NewRedisInvalidator(client), func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Error("Error closing Redis connection")
		}
	}
}
