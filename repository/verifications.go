package repository

import (
	"context"

	"gorm.io/gorm"

	"lmscert/models"
)

type VerificationRepository struct {
	db *gorm.DB
}

func (r *VerificationRepository) Append(ctx context.Context, entry *models.VerificationLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "append verification log")
}

// Recent returns the newest entries first.
func (r *VerificationRepository) Recent(ctx context.Context, limit int) ([]models.VerificationLog, error) {
	var logs []models.VerificationLog
	q := r.db.WithContext(ctx).Order("verified_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, translate(err, "list verification logs")
	}
	return logs, nil
}
