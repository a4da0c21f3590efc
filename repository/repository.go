// Package repository implements the services storage interfaces with GORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lmscert/services"
)

// Repository is the GORM-backed services.Repository. The zero value is not usable;
// build it with New.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Requests() services.RequestRepository {
	return &RequestRepository{db: r.db}
}

func (r *Repository) Settings() services.SettingsRepository {
	return &SettingsRepository{db: r.db}
}

func (r *Repository) Verifications() services.VerificationRepository {
	return &VerificationRepository{db: r.db}
}

// Transaction runs fn against a repository bound to one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) Transaction(ctx context.Context, fn func(tx services.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// translate maps GORM's translated driver errors onto the services sentinels.
// It relies on the connection being opened with TranslateError enabled.
func translate(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	op := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, services.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, services.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
