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
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/api"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/api/handlers"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/cache"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/database"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/ingest"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/logging"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/marketdata"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/services"
)

func main() {
	// Load .env before viper reads the environment. Missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(cfg.LogLevel, cfg.Environment)

	// Persistence and caching are optional: the tracker still evaluates and
	// reports when the stores are unreachable.
	var repo *database.ResultsRepository
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Warn("Database unavailable, running without result persistence")
	} else {
		defer db.Close()
		repo = database.NewResultsRepository(db.Pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logrus.WithError(err).Warn("Failed to ensure results schema")
		}
	}

	var seriesCache *cache.RedisSeriesCache
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, running without the series cache")
	} else {
		defer redis.Close()
		seriesCache = cache.NewRedisSeriesCache(redis.Client, time.Duration(cfg.MarketData.CacheTTLHours)*time.Hour)
	}

	provider := marketdata.NewClient(cfg.MarketData)
	tracker := services.NewTrackerService(repo, provider, seriesCache, cfg)
	emailSender := services.NewEmailSender(cfg.Notifications.Email)
	notifier := services.NewNotificationService(cfg.Notifications, emailSender, repo)
	parser := ingest.NewParser(cfg.Tracker)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	trackerHandler := handlers.NewTrackerHandler(parser, tracker, notifier, repo)
	api.SetupRoutes(router, trackerHandler, db, redis)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
