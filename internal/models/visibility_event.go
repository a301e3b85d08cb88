package models

import (
	"time"

	"gorm.io/gorm"
)

// Visibility actions recorded in the journal
const (
	ActionHide    = "hide"
	ActionShow    = "show"
	ActionRestore = "restore" // forced show on shutdown
)

type VisibilityEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	Action        string         `gorm:"not null;index" json:"action"`
	Mode          string         `gorm:"not null" json:"mode"` // "toggle" or "glyph"
	X             int            `gorm:"not null;default:0" json:"x"`
	Y             int            `gorm:"not null;default:0" json:"y"`
	IdleMillis    int64          `gorm:"not null;default:0" json:"idle_ms"` // Stillness before the transition
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period            ReportPeriod `json:"period"`
	Hides             int64        `json:"hides"`
	Shows             int64        `json:"shows"`
	Restores          int64        `json:"restores"`
	Errors            int64        `json:"errors"`
	HiddenSeconds     float64      `json:"hidden_seconds"`
	LongestHiddenSecs float64      `json:"longest_hidden_seconds"`
	CurrentlyHidden   bool         `json:"currently_hidden"`
	GeneratedAt       time.Time    `json:"generated_at"`
}
