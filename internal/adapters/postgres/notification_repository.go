package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/seido-app/courier/internal/domain"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func (r *NotificationRepository) Create(ctx context.Context, row domain.Notification) error {
	rec, err := toNotificationModel(row)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	var rec notificationModel
	if err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Notification{}, domain.ErrNotFound
		}
		return domain.Notification{}, err
	}
	return toDomainNotification(rec), nil
}

func (r *NotificationRepository) Update(ctx context.Context, row domain.Notification) error {
	rec, err := toNotificationModel(row)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("notification_id = ?", row.NotificationID).
		Updates(map[string]any{"read_at": rec.ReadAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, filter domain.NotificationFilter) ([]domain.Notification, int, error) {
	q := r.db.WithContext(ctx).Model(&notificationModel{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	switch filter.Status {
	case "unread":
		q = q.Where("read_at IS NULL")
	case "read":
		q = q.Where("read_at IS NOT NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var recs []notificationModel
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&recs).Error; err != nil {
		return nil, 0, err
	}

	out := make([]domain.Notification, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainNotification(rec))
	}
	return out, int(total), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id = ?", userID).
		Where("read_at IS NULL").
		Count(&count).Error
	return int(count), err
}

func toNotificationModel(row domain.Notification) (notificationModel, error) {
	metadata := "{}"
	if len(row.Metadata) > 0 {
		raw, err := json.Marshal(row.Metadata)
		if err != nil {
			return notificationModel{}, err
		}
		metadata = string(raw)
	}
	return notificationModel{
		NotificationID:  row.NotificationID,
		UserID:          row.UserID,
		TeamID:          row.TeamID,
		Type:            row.Type,
		Title:           row.Title,
		Body:            row.Body,
		Metadata:        metadata,
		SourceEventID:   row.SourceEventID,
		SourceEventType: row.SourceEventType,
		CreatedAt:       row.CreatedAt,
		ReadAt:          row.ReadAt,
	}, nil
}

func toDomainNotification(rec notificationModel) domain.Notification {
	var metadata map[string]string
	if rec.Metadata != "" {
		_ = json.Unmarshal([]byte(rec.Metadata), &metadata)
	}
	return domain.Notification{
		NotificationID:  rec.NotificationID,
		UserID:          rec.UserID,
		TeamID:          rec.TeamID,
		Type:            rec.Type,
		Title:           rec.Title,
		Body:            rec.Body,
		Metadata:        metadata,
		SourceEventID:   rec.SourceEventID,
		SourceEventType: rec.SourceEventType,
		CreatedAt:       rec.CreatedAt,
		ReadAt:          rec.ReadAt,
	}
}
