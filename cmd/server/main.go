package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/config"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/handlers"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/realtime"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/repository"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"
	"github.com/pharaohanjay-gif/dado-stream-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Setup Logger
	var handler slog.Handler
	if cfg.AppEnv == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 3. Initialize Database
	db, err := repository.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 4. Initialize Redis (optional; snapshot caching degrades without it)
	rdb, err := repository.InitRedis(cfg.RedisURL, cfg.RedisPassword, 0)
	if err != nil {
		logger.Warn("Failed to connect to Redis", "error", err)
		rdb = nil
	}

	// 5. Schema: versioned migrations on postgres, AutoMigrate elsewhere
	if strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		logger.Info("Running database migrations...")
		if err := repository.RunMigrations(cfg.DatabaseURL, ""); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else {
		if err := repository.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	if err := seedAdmin(db, cfg, logger); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	// 6. Initialize Services
	auditService := services.NewAuditService(db, logger)
	clientInfoService := services.NewClientInfoService(logger)
	geoIPService := services.NewGeoIPService(cfg, logger)
	sessionService := services.NewSessionService(db, logger)
	trackerService := services.NewTrackerService(db, logger, clientInfoService, geoIPService, sessionService)
	analyticsService := services.NewAnalyticsService(db, rdb, logger, sessionService)
	hub := realtime.NewHub(sessionService, logger)
	rateLimiter := services.NewIPRateLimiter(5, 10, logger)

	// 7. Initialize Handler
	h := handlers.NewHandler(cfg, logger, db, rdb, clientInfoService, trackerService, analyticsService, sessionService, auditService, hub)

	// 8. Setup Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := h.SetupRouter(rateLimiter)

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Background Context for workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Start Background Workers
	go auditService.Start(workerCtx)
	go trackerService.Start(workerCtx)
	go sessionService.Start(workerCtx)
	go hub.Run(workerCtx)
	go geoIPService.Init()
	go geoIPService.StartUpdater(workerCtx)
	rateLimiter.StartCleanup(10 * time.Minute)

	// Initializing server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	// Graceful shutdown timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	workerCancel()
	// Wait a tiny bit for workers
	time.Sleep(100 * time.Millisecond)

	logger.Info("Server exiting")
	return nil
}

// seedAdmin ensures the configured dashboard administrator exists.
func seedAdmin(db *gorm.DB, cfg config.Config, logger *slog.Logger) error {
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set; dashboard login disabled until an admin is created")
		return nil
	}

	var existing models.User
	if err := db.Where("username = ?", cfg.AdminUsername).First(&existing).Error; err == nil {
		return nil
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := models.User{Username: cfg.AdminUsername, PasswordHash: hash}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Info("Seeded admin user", "username", cfg.AdminUsername)
	return nil
}
