package models

import (
	"time"
)

// Content kinds a session can be watching.
const (
	ContentDrama = "drama"
	ContentAnime = "anime"
	ContentKomik = "komik"
)

// Session is a visitor's current visit, keyed by the rotating session cookie.
// Exactly one row exists per SessionID (enforced by the unique index and the
// atomic upsert in SessionService). The store's reaper hard-deletes sessions
// idle for longer than the expiry window.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"unique;not null;size:64;index" json:"session_id"`
	IPAddress    string    `gorm:"size:45" json:"ip_address,omitempty"` // anonymized
	UserAgent    string    `gorm:"size:255" json:"user_agent,omitempty"`
	DeviceType   string    `gorm:"size:20" json:"device_type"`
	OS           string    `gorm:"size:100" json:"os"`
	Browser      string    `gorm:"size:100" json:"browser"`
	Country      string    `gorm:"size:100;default:'Unknown'" json:"country"`
	CountryCode  string    `gorm:"size:2" json:"country_code"`
	City         string    `gorm:"size:100" json:"city"`
	CurrentPage  string    `gorm:"size:255" json:"current_page"`
	ContentType  string    `gorm:"size:20" json:"content_type,omitempty"`
	ContentID    string    `gorm:"size:64" json:"content_id,omitempty"`
	ContentTitle string    `gorm:"size:255" json:"content_title,omitempty"`
	Episode      string    `gorm:"size:20" json:"episode,omitempty"`
	Chapter      string    `gorm:"size:20" json:"chapter,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`
	Duration     int64     `json:"duration"` // seconds since StartedAt
	IsActive     bool      `gorm:"default:true" json:"is_active"`
}

// Watching reports whether the session has a client-reported content signal.
func (s *Session) Watching() bool {
	return s.ContentType != "" && s.ContentID != ""
}
