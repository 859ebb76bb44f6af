package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// LivenessWindow defines "currently active" for dashboard queries.
	LivenessWindow = 5 * time.Minute
	// IdleExpiry is the hard deletion threshold enforced by the reaper.
	IdleExpiry = 30 * time.Minute

	reaperInterval = time.Minute
	maxWatchers    = 20
)

// SessionService owns the live session registry: the atomic per-session
// upsert used by ingestion, the writers behind realtime client signals, the
// liveness queries, and the background reaper that hard-deletes idle rows.
type SessionService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSessionService(db *gorm.DB, logger *slog.Logger) *SessionService {
	return &SessionService{db: db, logger: logger}
}

// Upsert creates the session on first sight, otherwise merges the
// network/device/location/page fields and bumps LastActivity. A single
// conditional write keyed on session_id keeps concurrent first-time requests
// from producing duplicate rows. LastActivity never decreases.
func (s *SessionService) Upsert(session *models.Session) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ip_address":   session.IPAddress,
			"user_agent":   session.UserAgent,
			"device_type":  session.DeviceType,
			"os":           session.OS,
			"browser":      session.Browser,
			"country":      session.Country,
			"country_code": session.CountryCode,
			"city":         session.City,
			"current_page": session.CurrentPage,
			"is_active":    true,
			"last_activity": gorm.Expr(
				"CASE WHEN excluded.last_activity > last_activity THEN excluded.last_activity ELSE last_activity END"),
		}),
	}).Create(session).Error
}

// SetWatching records a client-reported "now watching" signal.
func (s *SessionService) SetWatching(sessionID, contentType, contentID, title, episode, chapter string) error {
	return s.db.Model(&models.Session{}).Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"content_type":  contentType,
			"content_id":    contentID,
			"content_title": title,
			"episode":       episode,
			"chapter":       chapter,
			"is_active":     true,
			"last_activity": time.Now(),
		}).Error
}

// ClearContent handles a plain navigation signal: the session keeps existing
// but is no longer watching anything.
func (s *SessionService) ClearContent(sessionID, page string) error {
	return s.db.Model(&models.Session{}).Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"content_type":  "",
			"content_id":    "",
			"content_title": "",
			"episode":       "",
			"chapter":       "",
			"current_page":  page,
			"last_activity": time.Now(),
		}).Error
}

// End marks the session inactive and freezes its total duration. The row is
// left for the reaper.
func (s *SessionService) End(sessionID string) error {
	var session models.Session
	if err := s.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return err
	}
	return s.db.Model(&models.Session{}).Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_active": false,
			"duration":  int64(time.Since(session.StartedAt).Seconds()),
		}).Error
}

// ActiveCount counts sessions seen within the liveness window, regardless of
// the IsActive flag (a stale flag must not inflate the count).
func (s *SessionService) ActiveCount() (int64, error) {
	var count int64
	err := s.db.Model(&models.Session{}).
		Where("last_activity > ?", time.Now().Add(-LivenessWindow)).
		Count(&count).Error
	return count, err
}

// ActiveWatchers returns up to maxWatchers live sessions that carry a
// client-reported content signal, most recently active first. Duration is
// refreshed on read since the upsert path does not maintain it.
func (s *SessionService) ActiveWatchers() ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.
		Where("last_activity > ? AND content_type <> '' AND content_id <> ''",
			time.Now().Add(-LivenessWindow)).
		Order("last_activity desc").
		Limit(maxWatchers).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Duration = int64(sessions[i].LastActivity.Sub(sessions[i].StartedAt).Seconds())
	}
	return sessions, nil
}

// Start runs the idle-expiry reaper until the context is canceled. Expiry is
// a property of the store: no other component issues session deletes.
func (s *SessionService) Start(ctx context.Context) {
	s.logger.Info("Session reaper starting", "idle_expiry", IdleExpiry.String())
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reap()
		case <-ctx.Done():
			s.logger.Info("Session reaper stopping")
			return
		}
	}
}

func (s *SessionService) reap() {
	cutoff := time.Now().Add(-IdleExpiry)
	result := s.db.Where("last_activity < ?", cutoff).Delete(&models.Session{})
	if result.Error != nil {
		s.logger.Error("Failed to reap idle sessions", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info("Reaped idle sessions", "count", result.RowsAffected)
	}
}
