package main_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/config"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/handlers"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/realtime"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/repository"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"
	"github.com/pharaohanjay-gif/dado-stream-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// setupStack wires the full application against an in-memory store, the same
// way Run does, minus the listener.
func setupStack(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		AppEnv:        "local",
		DatabaseURL:   "sqlite://:memory:",
		SessionSecret: "integration-secret-0123456789abcdef",
		AdminUsername: "admin",
	}

	db, err := repository.InitDB(cfg)
	assert.NoError(t, err)
	assert.NoError(t, repository.AutoMigrate(db))

	hash, _ := utils.HashPassword("integration-pass")
	assert.NoError(t, db.Create(&models.User{Username: "admin", PasswordHash: hash}).Error)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	audit := services.NewAuditService(db, logger)
	clientInfo := services.NewClientInfoService(logger)
	geoIP := services.NewGeoIPService(cfg, logger)
	sessions := services.NewSessionService(db, logger)
	tracker := services.NewTrackerService(db, logger, clientInfo, geoIP, sessions)
	analytics := services.NewAnalyticsService(db, nil, logger, sessions)
	hub := realtime.NewHub(sessions, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go audit.Start(ctx)
	go tracker.Start(ctx)
	go hub.Run(ctx)
	t.Cleanup(cancel)

	h := handlers.NewHandler(cfg, logger, db, nil, clientInfo, tracker, analytics, sessions, audit, hub)
	return h.SetupRouter(services.NewIPRateLimiter(50, 100, logger)), db
}

func TestVisitorJourney(t *testing.T) {
	r, db := setupStack(t)

	// 1. A visitor lands on a content page; a session cookie is minted and a
	// pageview queued.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/anime/frieren", nil)
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sp_session" {
			sessionCookie = c
		}
	}
	assert.NotNil(t, sessionCookie)

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.Event{}).Where("event_type = ?", models.EventPageview).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)

	// 2. The player reports engagement.
	w = httptest.NewRecorder()
	body := `{"content_type":"anime","content_id":"frieren","content_title":"Frieren","episode":"12","watch_duration":1320,"completion_rate":95}`
	req, _ = http.NewRequest("POST", "/api/view", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	req.AddCookie(sessionCookie)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var view models.ViewLog
	assert.NoError(t, db.First(&view).Error)
	assert.Equal(t, "frieren", view.ContentID)

	// 3. A custom event rides the same session.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/track", strings.NewReader(`{"event_type":"search","page":"/search","metadata":{"q":"frieren"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	req.AddCookie(sessionCookie)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// 4. The admin signs in and reads the dashboard.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/admin/login", strings.NewReader(`{"username":"admin","password":"integration-pass"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	adminCookies := w.Result().Cookies()

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/admin/stats/realtime", nil)
	for _, c := range adminCookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"today":1`)
	assert.Contains(t, w.Body.String(), `"active_viewers":1`)
}
