package postgres

import (
	"context"
	"encoding/json"

	"github.com/seido-app/courier/internal/domain"
	"gorm.io/gorm"
)

type DispatchLogRepository struct {
	db *gorm.DB
}

func (r *DispatchLogRepository) Create(ctx context.Context, result domain.DispatchResult) error {
	outcomes := "[]"
	if len(result.Outcomes) > 0 {
		raw, err := json.Marshal(result.Outcomes)
		if err != nil {
			return err
		}
		outcomes = string(raw)
	}
	rec := dispatchLogModel{
		EventID:        result.EventID,
		EventType:      result.EventType,
		OverallSuccess: result.OverallSuccess,
		Outcomes:       outcomes,
		AttemptedAt:    result.AttemptedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DispatchLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.DispatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []dispatchLogModel
	if err := r.db.WithContext(ctx).
		Order("attempted_at DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DispatchResult, 0, len(recs))
	for _, rec := range recs {
		var outcomes []domain.ChannelOutcome
		if rec.Outcomes != "" {
			_ = json.Unmarshal([]byte(rec.Outcomes), &outcomes)
		}
		out = append(out, domain.DispatchResult{
			EventID:        rec.EventID,
			EventType:      rec.EventType,
			OverallSuccess: rec.OverallSuccess,
			Outcomes:       outcomes,
			AttemptedAt:    rec.AttemptedAt,
		})
	}
	return out, nil
}
