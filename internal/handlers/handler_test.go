package handlers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/config"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/realtime"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"
	"github.com/pharaohanjay-gif/dado-stream-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	handler *Handler
	db      *gorm.DB
	tracker *services.TrackerService
	hub     *realtime.Hub
	cancel  context.CancelFunc
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()
	db, _ := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	db.AutoMigrate(&models.Event{}, &models.Session{}, &models.ViewLog{}, &models.User{}, &models.AuditLog{})

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.Config{
		SessionSecret: "test-secret-12345678901234567890123456789012",
		AdminUsername: "admin",
	}

	hash, _ := utils.HashPassword("hunter22")
	db.Create(&models.User{Username: "admin", PasswordHash: hash})

	audit := services.NewAuditService(db, logger)
	clientInfo := services.NewClientInfoService(logger)
	geoIP := services.NewGeoIPService(cfg, logger)
	sessions := services.NewSessionService(db, logger)
	tracker := services.NewTrackerService(db, logger, clientInfo, geoIP, sessions)
	analytics := services.NewAnalyticsService(db, nil, logger, sessions)
	hub := realtime.NewHub(sessions, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go tracker.Start(ctx)
	go audit.Start(ctx)
	t.Cleanup(cancel)

	h := NewHandler(cfg, logger, db, nil, clientInfo, tracker, analytics, sessions, audit, hub)
	return &testEnv{handler: h, db: db, tracker: tracker, hub: hub, cancel: cancel}
}

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.SetupRouter(nil)
}
