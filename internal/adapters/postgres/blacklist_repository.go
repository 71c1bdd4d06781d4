package postgres

import (
	"context"

	"github.com/seido-app/courier/internal/domain"
	"gorm.io/gorm"
)

type BlacklistRepository struct {
	db *gorm.DB
}

func (r *BlacklistRepository) Add(ctx context.Context, entry domain.BlacklistEntry) error {
	rec := blacklistModel{
		TeamID:        entry.TeamID,
		SenderAddress: entry.SenderAddress,
		Reason:        entry.Reason,
		CreatedAt:     entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *BlacklistRepository) Exists(ctx context.Context, teamID, normalizedAddress string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&blacklistModel{}).
		Where("team_id = ?", teamID).
		Where("sender_address = ?", normalizedAddress).
		Count(&count).Error
	return count > 0, err
}

func (r *BlacklistRepository) ListByTeam(ctx context.Context, teamID string) ([]domain.BlacklistEntry, error) {
	var recs []blacklistModel
	if err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.BlacklistEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domain.BlacklistEntry{
			TeamID:        rec.TeamID,
			SenderAddress: rec.SenderAddress,
			Reason:        rec.Reason,
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out, nil
}
