package services

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"

	"gorm.io/gorm"
)

// PageHit is the raw material captured at the request boundary. Enrichment
// (device, geo, anonymization) happens on the worker, off the request path.
type PageHit struct {
	SessionID string
	Path      string
	Referrer  string
	UserAgent string
	IPAddress string // raw; anonymized during enrichment
	EventType string // defaults to pageview
	Metadata  string
	Timestamp time.Time
}

var skipPathPrefixes = []string{
	"/api/", "/ws", "/static/", "/assets/", "/admin", "/favicon", "/health",
	"/robots.txt", "/sitemap",
}

var skipExtensions = map[string]bool{
	".js": true, ".css": true, ".map": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".svg": true, ".ico": true, ".webp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".xml": true, ".json": true,
}

// TrackerService is the ingestion pipeline: per-request hits are queued on a
// buffered channel and a single worker enriches and persists them. The
// request path never waits on storage, and persistence errors are logged and
// swallowed.
type TrackerService struct {
	db         *gorm.DB
	logger     *slog.Logger
	hitChannel chan PageHit
	clientInfo *ClientInfoService
	geoIP      *GeoIPService
	sessions   *SessionService
}

func NewTrackerService(db *gorm.DB, logger *slog.Logger, clientInfo *ClientInfoService, geoIP *GeoIPService, sessions *SessionService) *TrackerService {
	return &TrackerService{
		db:         db,
		logger:     logger,
		hitChannel: make(chan PageHit, 1000),
		clientInfo: clientInfo,
		geoIP:      geoIP,
		sessions:   sessions,
	}
}

// ShouldTrackPath reports whether a path is content-facing navigation.
// Static assets and API namespaces are excluded from analytics.
func (s *TrackerService) ShouldTrackPath(p string) bool {
	for _, prefix := range skipPathPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	if ext := strings.ToLower(path.Ext(p)); skipExtensions[ext] {
		return false
	}
	return true
}

// TrackPageviewAsync queues a pageview hit. Drops the hit with a warning when
// the buffer is full; analytics loss is preferred over backpressure.
func (s *TrackerService) TrackPageviewAsync(hit PageHit) {
	hit.EventType = models.EventPageview
	select {
	case s.hitChannel <- hit:
	default:
		s.logger.Warn("Tracker channel full, dropping pageview")
	}
}

// TrackEventAsync queues a client-reported event (click/search/error). It is
// a no-op without a session identifier: this path never mints one. Kinds
// outside the known set are stored under "other".
func (s *TrackerService) TrackEventAsync(hit PageHit) {
	if hit.SessionID == "" {
		return
	}
	switch hit.EventType {
	case models.EventClick, models.EventSearch, models.EventError:
	default:
		hit.EventType = models.EventOther
	}
	select {
	case s.hitChannel <- hit:
	default:
		s.logger.Warn("Tracker channel full, dropping event", "event_type", hit.EventType)
	}
}

// Start runs the ingestion worker until the context is canceled.
func (s *TrackerService) Start(ctx context.Context) {
	s.logger.Info("Tracker worker starting")
	for {
		select {
		case hit := <-s.hitChannel:
			s.process(hit)
		case <-ctx.Done():
			s.logger.Info("Tracker worker stopping")
			return
		}
	}
}

// process enriches one hit and issues the session upsert and the event
// append. The two writes are independent; no component may rely on their
// relative order.
func (s *TrackerService) process(hit PageHit) {
	if hit.Timestamp.IsZero() {
		hit.Timestamp = time.Now()
	}

	device := s.clientInfo.ClassifyDevice(hit.UserAgent)
	location, ok := s.geoIP.Resolve(hit.IPAddress)
	if !ok {
		location = unknownLocation
	}
	anonIP := s.clientInfo.AnonymizeIP(hit.IPAddress)

	if hit.EventType == models.EventPageview {
		session := &models.Session{
			SessionID:    hit.SessionID,
			IPAddress:    anonIP,
			UserAgent:    hit.UserAgent,
			DeviceType:   device.Type,
			OS:           device.OS,
			Browser:      device.Browser,
			Country:      location.Country,
			CountryCode:  location.CountryCode,
			City:         location.City,
			CurrentPage:  hit.Path,
			StartedAt:    hit.Timestamp,
			LastActivity: hit.Timestamp,
			IsActive:     true,
		}
		if err := s.sessions.Upsert(session); err != nil {
			s.logger.Error("Failed to upsert session", "session_id", hit.SessionID, "error", err)
		}
	}

	event := models.Event{
		EventType:   hit.EventType,
		Page:        hit.Path,
		Referrer:    hit.Referrer,
		SessionID:   hit.SessionID,
		IPAddress:   anonIP,
		Country:     location.Country,
		CountryCode: location.CountryCode,
		City:        location.City,
		DeviceType:  device.Type,
		OS:          device.OS,
		Browser:     device.Browser,
		Metadata:    hit.Metadata,
		Timestamp:   hit.Timestamp,
		Date:        hit.Timestamp.Format("2006-01-02"),
		Hour:        hit.Timestamp.Hour(),
	}
	if err := s.db.Create(&event).Error; err != nil {
		s.logger.Error("Failed to record event", "event_type", hit.EventType, "error", err)
	}
}

// ResolveLocation exposes geo enrichment to the view-log beacon path.
func (s *TrackerService) ResolveLocation(ip string) (models.Location, bool) {
	return s.geoIP.Resolve(ip)
}

// RecordView persists a content-engagement beacon from the player.
func (s *TrackerService) RecordView(view *models.ViewLog) {
	if view.Timestamp.IsZero() {
		view.Timestamp = time.Now()
	}
	view.Date = view.Timestamp.Format("2006-01-02")
	view.IPAddress = s.clientInfo.AnonymizeIP(view.IPAddress)
	if err := s.db.Create(view).Error; err != nil {
		s.logger.Error("Failed to record view log", "content_id", view.ContentID, "error", err)
	}
}
