package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog is a non-fatal failure of a pointer operation
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Operation string         `gorm:"not null;index" json:"operation"` // "position", "hide", "show", "restore"
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
