package models

import (
	"time"
)

// ViewLog is one content-engagement record reported by the player beacon.
// Append-only; used for popularity ranking.
type ViewLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContentType    string    `gorm:"size:20;not null;index" json:"content_type"`
	ContentID      string    `gorm:"size:64;not null;index" json:"content_id"`
	ContentTitle   string    `gorm:"size:255" json:"content_title"`
	Episode        string    `gorm:"size:20" json:"episode,omitempty"`
	Chapter        string    `gorm:"size:20" json:"chapter,omitempty"`
	SessionID      string    `gorm:"size:64;index" json:"session_id"`
	IPAddress      string    `gorm:"size:45" json:"ip_address,omitempty"` // anonymized
	Country        string    `gorm:"size:100" json:"country"`
	City           string    `gorm:"size:100" json:"city"`
	Device         string    `gorm:"size:100" json:"device"` // summary string, e.g. "mobile / Android"
	WatchDuration  int       `json:"watch_duration"`         // seconds
	CompletionRate int       `json:"completion_rate"`        // 0-100
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	Date           string    `gorm:"size:10;index" json:"date"`
}
