package handlers

import (
	"log/slog"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/config"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/realtime"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handler struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *gorm.DB
	rdb        *redis.Client
	clientInfo *services.ClientInfoService
	tracker    *services.TrackerService
	analytics  *services.AnalyticsService
	sessions   *services.SessionService
	audit      *services.AuditService
	hub        *realtime.Hub
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	rdb *redis.Client,
	clientInfo *services.ClientInfoService,
	tracker *services.TrackerService,
	analytics *services.AnalyticsService,
	sessions *services.SessionService,
	audit *services.AuditService,
	hub *realtime.Hub,
) *Handler {
	return &Handler{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		rdb:        rdb,
		clientInfo: clientInfo,
		tracker:    tracker,
		analytics:  analytics,
		sessions:   sessions,
		audit:      audit,
		hub:        hub,
	}
}
