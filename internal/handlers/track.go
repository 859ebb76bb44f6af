package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"
	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"
	"github.com/pharaohanjay-gif/dado-stream-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookieName   = "sp_session"
	sessionCookieMaxAge = 24 * 60 * 60 // 24 hours
)

// TrackingMiddleware is the per-request ingestion hook. It never changes the
// response the host was going to send: panics are swallowed, storage is
// queued, and bot or non-content requests fall through untouched.
func (h *Handler) TrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.captureHit(c)
		c.Next()
	}
}

func (h *Handler) captureHit(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Tracking hook panic", "panic", r)
		}
	}()

	if c.Request.Method != http.MethodGet {
		return
	}
	if !h.tracker.ShouldTrackPath(c.Request.URL.Path) {
		return
	}
	ua := c.Request.UserAgent()
	if h.clientInfo.IsBot(ua) {
		return
	}

	sessionID := h.readOrMintSessionID(c)

	h.tracker.TrackPageviewAsync(services.PageHit{
		SessionID: sessionID,
		Path:      c.Request.URL.Path,
		Referrer:  c.Request.Referer(),
		UserAgent: ua,
		IPAddress: h.clientInfo.ResolveIP(c.Request.Header, c.Request.RemoteAddr),
		Timestamp: time.Now(),
	})
}

// readOrMintSessionID returns the caller's session identifier, issuing a new
// one on the response when none is presented. HTTP-only, lax same-site, 24 h.
func (h *Handler) readOrMintSessionID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookieName); err == nil && id != "" {
		return id
	}
	id := utils.GenerateSessionID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, id, sessionCookieMaxAge, "/", "", false, true)
	return id
}

func marshalMetadata(metadata map[string]interface{}) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}

type TrackEventRequest struct {
	EventType string                 `json:"event_type" binding:"required"`
	Page      string                 `json:"page"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// TrackEvent accepts client-side instrumentation calls (click/search/error).
// Fire-and-forget: the response never waits on storage and is always a
// success once the payload parses.
func (h *Handler) TrackEvent(c *gin.Context) {
	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	sessionID, _ := c.Cookie(sessionCookieName)

	metadata := ""
	if len(req.Metadata) > 0 {
		metadata = marshalMetadata(req.Metadata)
	}

	h.tracker.TrackEventAsync(services.PageHit{
		SessionID: sessionID,
		Path:      req.Page,
		UserAgent: c.Request.UserAgent(),
		IPAddress: h.clientInfo.ResolveIP(c.Request.Header, c.Request.RemoteAddr),
		EventType: req.EventType,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type ViewLogRequest struct {
	ContentType    string `json:"content_type" binding:"required"`
	ContentID      string `json:"content_id" binding:"required"`
	ContentTitle   string `json:"content_title"`
	Episode        string `json:"episode"`
	Chapter        string `json:"chapter"`
	WatchDuration  int    `json:"watch_duration"`
	CompletionRate int    `json:"completion_rate"`
}

// RecordView accepts the player-side engagement beacon.
func (h *Handler) RecordView(c *gin.Context) {
	var req ViewLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if req.CompletionRate < 0 {
		req.CompletionRate = 0
	} else if req.CompletionRate > 100 {
		req.CompletionRate = 100
	}

	sessionID, _ := c.Cookie(sessionCookieName)
	ip := h.clientInfo.ResolveIP(c.Request.Header, c.Request.RemoteAddr)
	device := h.clientInfo.ClassifyDevice(c.Request.UserAgent())
	now := time.Now()

	view := &models.ViewLog{
		ContentType:    req.ContentType,
		ContentID:      req.ContentID,
		ContentTitle:   req.ContentTitle,
		Episode:        req.Episode,
		Chapter:        req.Chapter,
		SessionID:      sessionID,
		IPAddress:      ip,
		Device:         device.Type + " / " + device.OS,
		WatchDuration:  req.WatchDuration,
		CompletionRate: req.CompletionRate,
		Timestamp:      now,
	}
	if loc, ok := h.tracker.ResolveLocation(ip); ok {
		view.Country = loc.Country
		view.City = loc.City
	} else {
		view.Country = "Unknown"
		view.City = "Unknown"
	}

	h.tracker.RecordView(view)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
