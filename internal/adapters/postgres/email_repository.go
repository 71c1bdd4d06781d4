package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/seido-app/courier/internal/domain"
	"gorm.io/gorm"
)

type InboundEmailRepository struct {
	db *gorm.DB
}

// CreateMessage relies on the (connection_id, message_id) unique constraint
// to make re-fetched messages safely re-skippable.
func (r *InboundEmailRepository) CreateMessage(ctx context.Context, row domain.InboundMessage) error {
	rec, err := toEmailModel(row)
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

func (r *InboundEmailRepository) CreateAttachment(ctx context.Context, row domain.Attachment) error {
	rec := attachmentModel{
		AttachmentID: row.AttachmentID,
		EmailID:      row.EmailID,
		Filename:     row.Filename,
		ContentType:  row.ContentType,
		SizeBytes:    row.SizeBytes,
		StoragePath:  row.StoragePath,
		CreatedAt:    row.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *InboundEmailRepository) GetMessage(ctx context.Context, emailID string) (domain.InboundMessage, error) {
	var rec inboundEmailModel
	if err := r.db.WithContext(ctx).Where("email_id = ?", emailID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InboundMessage{}, domain.ErrNotFound
		}
		return domain.InboundMessage{}, err
	}
	return toDomainEmail(rec), nil
}

func (r *InboundEmailRepository) ListByConnection(ctx context.Context, connectionID string, limit int) ([]domain.InboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []inboundEmailModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("received_at DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.InboundMessage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainEmail(rec))
	}
	return out, nil
}

func (r *InboundEmailRepository) ListAttachments(ctx context.Context, emailID string) ([]domain.Attachment, error) {
	var recs []attachmentModel
	if err := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Attachment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domain.Attachment{
			AttachmentID: rec.AttachmentID,
			EmailID:      rec.EmailID,
			Filename:     rec.Filename,
			ContentType:  rec.ContentType,
			SizeBytes:    rec.SizeBytes,
			StoragePath:  rec.StoragePath,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out, nil
}

func toEmailModel(row domain.InboundMessage) (inboundEmailModel, error) {
	toAddresses := "[]"
	if len(row.ToAddresses) > 0 {
		raw, err := json.Marshal(row.ToAddresses)
		if err != nil {
			return inboundEmailModel{}, err
		}
		toAddresses = string(raw)
	}
	return inboundEmailModel{
		EmailID:      row.EmailID,
		ConnectionID: row.ConnectionID,
		TeamID:       row.TeamID,
		MessageID:    row.MessageID,
		UID:          int64(row.UID),
		FromAddress:  row.FromAddress,
		ToAddresses:  toAddresses,
		Subject:      row.Subject,
		BodyText:     row.BodyText,
		BodyHTML:     row.BodyHTML,
		ReceivedAt:   row.ReceivedAt,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func toDomainEmail(rec inboundEmailModel) domain.InboundMessage {
	var toAddresses []string
	if rec.ToAddresses != "" {
		_ = json.Unmarshal([]byte(rec.ToAddresses), &toAddresses)
	}
	return domain.InboundMessage{
		EmailID:      rec.EmailID,
		ConnectionID: rec.ConnectionID,
		TeamID:       rec.TeamID,
		MessageID:    rec.MessageID,
		UID:          uint32(rec.UID),
		FromAddress:  rec.FromAddress,
		ToAddresses:  toAddresses,
		Subject:      rec.Subject,
		BodyText:     rec.BodyText,
		BodyHTML:     rec.BodyHTML,
		ReceivedAt:   rec.ReceivedAt,
		CreatedAt:    rec.CreatedAt,
	}
}
