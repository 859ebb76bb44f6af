package models

import (
	"time"
)

// Event types recorded by the analytics pipeline.
const (
	EventPageview = "pageview"
	EventClick    = "click"
	EventSearch   = "search"
	EventError    = "error"
	EventOther    = "other" // bucket for unrecognized client-supplied types
)

// Event is one immutable observation of visitor activity. Rows are append-only;
// Date and Hour are derived from Timestamp at write time and never recomputed.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventType   string    `gorm:"size:20;not null;index" json:"event_type"`
	Page        string    `gorm:"size:255" json:"page"`
	Referrer    string    `gorm:"size:255" json:"referrer,omitempty"`
	SessionID   string    `gorm:"size:64;index" json:"session_id"`
	IPAddress   string    `gorm:"size:45" json:"ip_address,omitempty"` // anonymized
	Country     string    `gorm:"size:100;default:'Unknown'" json:"country"`
	CountryCode string    `gorm:"size:2;index" json:"country_code"`
	City        string    `gorm:"size:100" json:"city"`
	DeviceType  string    `gorm:"size:20" json:"device_type"`
	OS          string    `gorm:"size:100" json:"os"`
	Browser     string    `gorm:"size:100" json:"browser"`
	Metadata    string    `gorm:"type:text" json:"metadata,omitempty"` // free-form JSON
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	Date        string    `gorm:"size:10;index" json:"date"` // day bucket, "2006-01-02"
	Hour        int       `json:"hour"`                      // 0-23
}
