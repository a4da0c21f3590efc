package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lmscert/models"
)

type RequestRepository struct {
	db *gorm.DB
}

func (r *RequestRepository) Create(ctx context.Context, req *models.CertificateRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error, "create certificate request")
}

// Save writes every column of an existing request.
func (r *RequestRepository) Save(ctx context.Context, req *models.CertificateRequest) error {
	return translate(r.db.WithContext(ctx).Save(req).Error, "save certificate request %d", req.ID)
}

func (r *RequestRepository) FindByID(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	var req models.CertificateRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, translate(err, "find certificate request %d", id)
	}
	return &req, nil
}

func (r *RequestRepository) FindActive(ctx context.Context, userID, productID uint) (*models.CertificateRequest, error) {
	var req models.CertificateRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND status IN ?", userID, productID, models.ActiveStatuses).
		Order("id DESC").
		Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "find active certificate request")
	}
	return &req, nil
}

func (r *RequestRepository) ListByStatus(ctx context.Context, statuses []models.CertificateStatus, limit int) ([]models.CertificateRequest, error) {
	var reqs []models.CertificateRequest
	q := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("requested_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, translate(err, "list certificate requests")
	}
	return reqs, nil
}

func (r *RequestRepository) ListByUser(ctx context.Context, userID uint) ([]models.CertificateRequest, error) {
	var reqs []models.CertificateRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC, id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, translate(err, "list certificate requests for user %d", userID)
	}
	return reqs, nil
}

// IssuedCandidates returns issued requests matching query exactly: the certificate
// id, the email, or a case-sensitive substring of "first last". The substring test
// uses the dialect's position function so LIKE wildcards and case folding never apply.
func (r *RequestRepository) IssuedCandidates(ctx context.Context, query string, limit int) ([]models.CertificateRequest, error) {
	db := r.db.WithContext(ctx)

	var reqs []models.CertificateRequest
	q := db.
		Where("status = ?", models.StatusIssued).
		Where(
			db.Where("certificate_id = ?", query).
				Or("email = ?", query).
				Or(fullNameContains(db.Dialector.Name()), query),
		).
		Order("processed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, translate(err, "search issued certificates")
	}
	return reqs, nil
}

// fullNameContains is a case-sensitive "first last contains ?" condition.
func fullNameContains(dialect string) string {
	switch dialect {
	case "mysql":
		return "INSTR(BINARY CONCAT(first_name, ' ', last_name), BINARY ?) > 0"
	case "postgres":
		return "STRPOS(first_name || ' ' || last_name, ?) > 0"
	}
	return "INSTR(first_name || ' ' || last_name, ?) > 0"
}
