package handlers

import (
	"net/http"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func (h *Handler) SetupRouter(rateLimiter *services.IPRateLimiter) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(h.cfg.SessionSecret))
	r.Use(sessions.Sessions("sp_admin", store))

	// Ingestion hook: runs on every request, side-effect only.
	r.Use(h.TrackingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	// Public instrumentation endpoints (fire-and-forget).
	api := r.Group("/api")
	if rateLimiter != nil {
		api.Use(h.RateLimitMiddleware(rateLimiter))
	}
	{
		api.POST("/track", h.TrackEvent)
		api.POST("/view", h.RecordView)
	}

	// Admin authentication.
	r.POST("/api/admin/login", h.LoginAdmin)
	r.POST("/api/admin/logout", h.LogoutAdmin)

	// Dashboard queries and the realtime channel, admin-gated.
	authorized := r.Group("/")
	authorized.Use(h.AuthRequired())
	{
		stats := authorized.Group("/api/admin/stats")
		{
			stats.GET("/trend", h.GetTrafficTrend)
			stats.GET("/hourly", h.GetHourlyStats)
			stats.GET("/geo", h.GetGeoStats)
			stats.GET("/devices", h.GetDeviceStats)
			stats.GET("/popular", h.GetPopularContent)
			stats.GET("/peak-hours", h.GetPeakHours)
			stats.GET("/weekday", h.GetWeekdayStats)
			stats.GET("/active", h.GetActiveViewers)
			stats.GET("/realtime", h.GetRealtimeSnapshot)
		}
		authorized.GET("/ws/dashboard", h.DashboardWS)
	}

	// Content pages are rendered by the host application; this stand-in keeps
	// content-facing navigation routable so the ingestion hook sees it.
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.JSON(http.StatusOK, gin.H{"page": c.Request.URL.Path})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}
