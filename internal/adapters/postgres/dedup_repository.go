package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type EventDedupRepository struct {
	db *gorm.DB
}

func (r *EventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var rec eventDedupModel
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.ExpiresAt.After(now), nil
}

func (r *EventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	rec := eventDedupModel{
		EventID:   eventID,
		EventType: eventType,
		ExpiresAt: expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return r.db.WithContext(ctx).Model(&eventDedupModel{}).
				Where("event_id = ?", eventID).
				Update("expires_at", expiresAt).Error
		}
		return err
	}
	return nil
}

// Sweep removes expired rows; the worker calls it periodically so the table
// does not grow without bound.
func (r *EventDedupRepository) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&eventDedupModel{})
	return res.RowsAffected, res.Error
}
