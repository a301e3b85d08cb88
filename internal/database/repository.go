package database

import (
	"time"

	"github.com/cursorhide/cursorhide/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Repository handles all journal database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordTransition inserts a visibility event
func (r *Repository) RecordTransition(event *models.VisibilityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert visibility event")
	}
	return nil
}

// RecordError inserts an error log entry
func (r *Repository) RecordError(errorLog *models.ErrorLog) error {
	if errorLog.Timestamp.IsZero() {
		errorLog.Timestamp = time.Now()
	}
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetEventsSince retrieves all visibility events since a given time, oldest first
func (r *Repository) GetEventsSince(since time.Time) ([]*models.VisibilityEvent, error) {
	var events []*models.VisibilityEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC, id ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query visibility events")
	}

	return events, nil
}

// GetLastBefore retrieves the latest event strictly before t, or nil
func (r *Repository) GetLastBefore(t time.Time) (*models.VisibilityEvent, error) {
	var event models.VisibilityEvent
	result := r.db.Where("timestamp < ?", t).Order("timestamp DESC, id DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get previous event")
	}
	return &event, nil
}

// CountByActionSince returns how many events of each action happened since a given time
func (r *Repository) CountByActionSince(since time.Time) ([]models.ActionCount, error) {
	var counts []models.ActionCount

	result := r.db.Model(&models.VisibilityEvent{}).
		Select("action, COUNT(*) as count").
		Where("timestamp >= ?", since).
		Group("action").
		Order("action ASC").
		Scan(&counts)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to count visibility events")
	}

	return counts, nil
}

// CountErrorsSince returns the number of error log entries since a given time
func (r *Repository) CountErrorsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.ErrorLog{}).Where("timestamp >= ?", since).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count error logs")
	}
	return count, nil
}

// RecentErrors returns up to limit error log entries, newest first
func (r *Repository) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// GetLatest retrieves the most recent visibility event, or nil when the journal is empty
func (r *Repository) GetLatest() (*models.VisibilityEvent, error) {
	var event models.VisibilityEvent
	result := r.db.Order("timestamp DESC, id DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// DeleteOldEvents deletes events and error logs older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.VisibilityEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	deleted := result.RowsAffected

	result = r.db.Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return deleted, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	return deleted + result.RowsAffected, nil
}

// Clear removes all journal rows from the database
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM visibility_events"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear visibility events")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
