package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lmscert/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var s models.Setting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translate(err, "get setting %s", key)
	}
	return s.Value, true, nil
}

// Set inserts or overwrites a setting.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
	return translate(err, "set setting %s", key)
}

func (r *SettingsRepository) SetMany(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := &SettingsRepository{db: tx}
		for k, v := range values {
			if err := inner.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err, "list settings")
	}
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Key] = s.Value
	}
	return out, nil
}

// Increment reads the row with SELECT ... FOR UPDATE so concurrent transactions
// queue on it. SQLite has no row locks; there the write lock of the enclosing
// transaction serializes callers instead.
func (r *SettingsRepository) Increment(ctx context.Context, key string, initial int64) (int64, error) {
	db := r.db.WithContext(ctx)

	var s models.Setting
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("setting_key = ?", key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := models.Setting{Key: key, Value: strconv.FormatInt(initial+1, 10)}
		if err := db.Create(&row).Error; err != nil {
			return 0, translate(err, "create counter %s", key)
		}
		return initial, nil
	}
	if err != nil {
		return 0, translate(err, "lock counter %s", key)
	}

	current, err := strconv.ParseInt(strings.TrimSpace(s.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds %q: %w", key, s.Value, err)
	}

	err = db.Model(&models.Setting{}).
		Where("setting_key = ?", key).
		Update("setting_value", strconv.FormatInt(current+1, 10)).Error
	if err != nil {
		return 0, translate(err, "advance counter %s", key)
	}
	return current, nil
}
