package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// intQuery parses a numeric query parameter, falling back to a documented
// default on absence or malformed input rather than rejecting the request.
func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func (h *Handler) GetTrafficTrend(c *gin.Context) {
	days := intQuery(c, "days", 7)
	trend, err := h.analytics.GetTrafficTrend(days)
	if err != nil {
		h.logger.Error("Failed to compute traffic trend", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load traffic trend"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

func (h *Handler) GetHourlyStats(c *gin.Context) {
	hours, err := h.analytics.GetHourlyStats()
	if err != nil {
		h.logger.Error("Failed to compute hourly stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load hourly stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

func (h *Handler) GetGeoStats(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	countries, err := h.analytics.GetGeoStats(limit)
	if err != nil {
		h.logger.Error("Failed to compute geo stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load geo stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

func (h *Handler) GetDeviceStats(c *gin.Context) {
	devices, err := h.analytics.GetDeviceStats()
	if err != nil {
		h.logger.Error("Failed to compute device stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load device stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *Handler) GetPopularContent(c *gin.Context) {
	days := intQuery(c, "days", 7)
	popular, err := h.analytics.GetPopularContent(days)
	if err != nil {
		h.logger.Error("Failed to compute popular content", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load popular content"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"popular": popular})
}

func (h *Handler) GetPeakHours(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	countries, err := h.analytics.GetPeakHoursByCountry(limit)
	if err != nil {
		h.logger.Error("Failed to compute peak hours", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load peak hours"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

func (h *Handler) GetWeekdayStats(c *gin.Context) {
	// Missing country filter is valid and means "all countries".
	country := c.Query("country")
	stats, err := h.analytics.GetWeekdayStats(country)
	if err != nil {
		h.logger.Error("Failed to compute weekday stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load weekday stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetActiveViewers(c *gin.Context) {
	count, err := h.analytics.GetActiveViewers()
	if err != nil {
		h.logger.Error("Failed to count active viewers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load active viewers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) GetRealtimeSnapshot(c *gin.Context) {
	snapshot, err := h.analytics.GetRealtimeSnapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build realtime snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load realtime stats"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
