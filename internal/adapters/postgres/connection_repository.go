package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"gorm.io/gorm"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func (r *ConnectionRepository) ListActive(ctx context.Context, teamID string) ([]domain.MailConnection, error) {
	q := r.db.WithContext(ctx).Model(&mailConnectionModel{}).Where("is_active = ?", true)
	if teamID != "" {
		q = q.Where("team_id = ?", teamID)
	}
	var recs []mailConnectionModel
	if err := q.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MailConnection, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainConnection(rec))
	}
	return out, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, connectionID string) (domain.MailConnection, error) {
	var rec mailConnectionModel
	if err := r.db.WithContext(ctx).Where("connection_id = ?", connectionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MailConnection{}, domain.ErrNotFound
		}
		return domain.MailConnection{}, err
	}
	return toDomainConnection(rec), nil
}

// AdvanceCursor moves last_uid forward only; the guard in the WHERE clause
// makes a rewind attempt visible instead of silently shrinking the cursor.
func (r *ConnectionRepository) AdvanceCursor(ctx context.Context, connectionID string, newUID uint32, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&mailConnectionModel{}).
		Where("connection_id = ?", connectionID).
		Where("last_uid <= ?", int64(newUID)).
		Updates(map[string]any{
			"last_uid":     int64(newUID),
			"last_sync_at": at,
			"last_error":   "",
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, connectionID); err != nil {
			return err
		}
		return domain.ErrCursorRewind
	}
	return nil
}

func (r *ConnectionRepository) TouchSyncedAt(ctx context.Context, connectionID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&mailConnectionModel{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]any{
			"last_sync_at": at,
			"last_error":   "",
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) RecordError(ctx context.Context, connectionID, message string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&mailConnectionModel{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]any{
			"last_error": message,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) ResetCursor(ctx context.Context, connectionID string, uid uint32, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&mailConnectionModel{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]any{
			"last_uid":   int64(uid),
			"last_error": "",
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate revokes the connection and wipes its ciphertext so revoked
// credentials cannot linger at rest.
func (r *ConnectionRepository) Deactivate(ctx context.Context, connectionID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&mailConnectionModel{}).
		Where("connection_id = ?", connectionID).
		Updates(map[string]any{
			"is_active":             false,
			"credential_ciphertext": []byte(nil),
			"updated_at":            at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDomainConnection(rec mailConnectionModel) domain.MailConnection {
	return domain.MailConnection{
		ConnectionID:         rec.ConnectionID,
		TeamID:               rec.TeamID,
		Label:                rec.Label,
		Host:                 rec.Host,
		Port:                 rec.Port,
		UseTLS:               rec.UseTLS,
		Folder:               rec.Folder,
		CredentialCiphertext: rec.CredentialCiphertext,
		LastUID:              uint32(rec.LastUID),
		SyncFromDate:         rec.SyncFromDate,
		LastSyncAt:           rec.LastSyncAt,
		LastError:            rec.LastError,
		IsActive:             rec.IsActive,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}
