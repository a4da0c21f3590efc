package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"lmscert/lifecycle"
	"lmscert/models"
)

// StudentSubmission is a student's own certificate request.
type StudentSubmission struct {
	UserID       uint   `json:"-" validate:"gt=0"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=100"`
	Phone        string `json:"phone" validate:"required,max=20"`
	ProductID    uint   `json:"product_id" validate:"gt=0"`
	ProjectLink  string `json:"project_link" validate:"omitempty,url,max=500"`
	CaptchaToken string `json:"-"`
	RemoteIP     string `json:"-"`
}

// VendorSubmission is a vendor requesting a certificate on behalf of a registered student.
type VendorSubmission struct {
	VendorID       uint      `json:"-" validate:"gt=0"`
	FirstName      string    `json:"student_first_name" validate:"required,max=100"`
	LastName       string    `json:"student_last_name" validate:"required,max=100"`
	Email          string    `json:"student_email" validate:"required,email,max=100"`
	Phone          string    `json:"student_phone" validate:"required,max=20"`
	ProductID      uint      `json:"product_id" validate:"gt=0"`
	InstructorName string    `json:"instructor_name" validate:"required,max=200"`
	CompletionDate time.Time `json:"completion_date" validate:"required"`
	VendorNotes    string    `json:"vendor_notes"`
	CaptchaToken   string    `json:"-"`
	RemoteIP       string    `json:"-"`
}

// SubmissionService accepts new certificate requests.
type SubmissionService struct {
	repo        Repository
	eligibility *EligibilityChecker
	ids         *IDGenerator
	directory   Directory
	notifier    *Notifier
	captcha     CaptchaVerifier
	metrics     *Metrics
	log         logrus.FieldLogger
	clock       func() time.Time
}

type SubmissionDeps struct {
	Repo        Repository
	Eligibility *EligibilityChecker
	IDs         *IDGenerator
	Directory   Directory
	Notifier    *Notifier
	Captcha     CaptchaVerifier
	Metrics     *Metrics
	Log         logrus.FieldLogger
	Clock       func() time.Time
}

func NewSubmissionService(d SubmissionDeps) *SubmissionService {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &SubmissionService{
		repo:        d.Repo,
		eligibility: d.Eligibility,
		ids:         d.IDs,
		directory:   d.Directory,
		notifier:    d.Notifier,
		captcha:     d.Captcha,
		metrics:     d.Metrics,
		log:         d.Log,
		clock:       d.Clock,
	}
}

// SubmitStudent validates, checks eligibility and stores a pending request, then
// notifies the student, the admin and the course vendor.
func (s *SubmissionService) SubmitStudent(ctx context.Context, in StudentSubmission) (*models.CertificateRequest, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = SanitizePhone(in.Phone)
	in.ProjectLink = strings.TrimSpace(in.ProjectLink)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkCaptcha(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	eligibility, err := s.eligibility.Check(ctx, s.repo, in.UserID, in.ProductID, CheckOptions{})
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		s.metrics.submission(string(models.RequestTypeStudent), "ineligible")
		return nil, eligibility.Reason
	}

	productName := "Unknown Product"
	var vendor *models.User
	product, err := s.directory.FindProduct(ctx, in.ProductID)
	switch {
	case err == nil:
		productName = product.Name
		if product.AuthorID != 0 {
			vendor, err = s.directory.FindUser(ctx, product.AuthorID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("load course vendor: %w", err)
			}
		}
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load product: %w", err)
	}

	req := &models.CertificateRequest{
		UserID:      in.UserID,
		RequestType: models.RequestTypeStudent,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		ProductID:   in.ProductID,
		ProductName: productName,
		ProjectLink: optionalString(in.ProjectLink),
	}
	if vendor != nil && vendor.IsVendor() {
		req.VendorID = &vendor.ID
		req.InstructorName = optionalString(profileName(vendor))
	}

	if err := s.insert(ctx, req); err != nil {
		s.metrics.submission(string(req.RequestType), "failed")
		return nil, err
	}
	s.metrics.submission(string(req.RequestType), "accepted")

	s.notify(ctx, KindStudentConfirmation, req, NotificationExtra{})
	s.notify(ctx, KindAdminNewRequest, req, NotificationExtra{})
	if req.VendorID != nil {
		s.notify(ctx, KindVendorNewRequest, req, NotificationExtra{
			VendorName:  profileName(vendor),
			VendorEmail: vendor.Email,
		})
	}

	return req, nil
}

// SubmitVendor stores a pending request raised by a vendor for one of their own
// courses. The purchase must exist but the wait window does not apply.
func (s *SubmissionService) SubmitVendor(ctx context.Context, in VendorSubmission) (*models.CertificateRequest, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = SanitizePhone(in.Phone)
	in.InstructorName = strings.TrimSpace(in.InstructorName)
	in.VendorNotes = strings.TrimSpace(in.VendorNotes)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkCaptcha(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	vendor, err := s.directory.FindUser(ctx, in.VendorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotVendor
		}
		return nil, fmt.Errorf("load vendor: %w", err)
	}
	if !vendor.IsVendor() {
		return nil, ErrNotVendor
	}

	student, err := s.directory.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newValidationError("student_email", "Student not found. Please ensure the student is registered on the website.")
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	product, err := s.directory.FindProduct(ctx, in.ProductID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product == nil || product.AuthorID != vendor.ID {
		return nil, newValidationError("product_id", "Invalid product selection!")
	}

	eligibility, err := s.eligibility.Check(ctx, s.repo, student.ID, product.ID, CheckOptions{SkipWaitWindow: true})
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		s.metrics.submission(string(models.RequestTypeVendor), "ineligible")
		if errors.Is(eligibility.Reason, ErrNotPurchased) {
			eligibility.Reason.Message = "This student has not purchased the selected course"
		}
		return nil, eligibility.Reason
	}

	completion := datatypes.Date(now.With(in.CompletionDate).BeginningOfDay())
	req := &models.CertificateRequest{
		UserID:         student.ID,
		RequestType:    models.RequestTypeVendor,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		ProductID:      product.ID,
		ProductName:    product.Name,
		InstructorName: optionalString(in.InstructorName),
		VendorID:       &vendor.ID,
		VendorNotes:    optionalString(in.VendorNotes),
		CompletionDate: &completion,
	}

	if err := s.insert(ctx, req); err != nil {
		s.metrics.submission(string(req.RequestType), "failed")
		return nil, err
	}
	s.metrics.submission(string(req.RequestType), "accepted")

	s.notify(ctx, KindAdminNewRequest, req, NotificationExtra{VendorName: profileName(vendor)})
	return req, nil
}

// insert re-checks for an active duplicate, allocates the certificate id and stores
// the request in a single transaction. The unique active key catches any race the
// re-check misses.
func (s *SubmissionService) insert(ctx context.Context, req *models.CertificateRequest) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.Requests().FindActive(ctx, req.UserID, req.ProductID)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateError(string(existing.Status), existing.CertificateID)
		}

		id, err := s.ids.Next(ctx, tx.Settings())
		if err != nil {
			return err
		}

		req.CertificateID = id
		req.Status = lifecycle.InitialStatus()
		req.RequestedAt = s.clock()
		return tx.Requests().Create(ctx, req)
	})

	if errors.Is(err, ErrConflict) {
		return &EligibilityError{Err: ErrDuplicateRequest, Message: ErrDuplicateRequest.Error()}
	}
	if err != nil {
		var eerr *EligibilityError
		if errors.As(err, &eerr) {
			return eerr
		}
		return fmt.Errorf("store certificate request: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"certificate_id": req.CertificateID,
		"user_id":        req.UserID,
		"product_id":     req.ProductID,
		"type":           req.RequestType,
	}).Info("certificate request submitted")
	return nil
}

// EligibleProducts lists the user's purchased products that are past the wait
// window and have no active request.
func (s *SubmissionService) EligibleProducts(ctx context.Context, userID uint) ([]PurchasedProduct, error) {
	purchased, err := s.eligibility.purchases.PurchasedProducts(ctx, userID)
	if err != nil {
		return nil, err
	}

	minDays := NewSettings(s.repo.Settings(), s.log).Int(ctx, SettingMinDaysAfterBuying, 3)
	today := s.clock()

	out := make([]PurchasedProduct, 0, len(purchased))
	for _, p := range purchased {
		if TooSoon(p.PurchasedAt, today, minDays) {
			continue
		}
		existing, err := s.repo.Requests().FindActive(ctx, userID, p.ProductID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// MyRequests returns every request owned by the user, newest first.
func (s *SubmissionService) MyRequests(ctx context.Context, userID uint) ([]models.CertificateRequest, error) {
	return s.repo.Requests().ListByUser(ctx, userID)
}

func (s *SubmissionService) checkCaptcha(ctx context.Context, token, remoteIP string) error {
	return verifyCaptcha(ctx, s.repo, s.captcha, s.log, token, remoteIP)
}

func (s *SubmissionService) notify(ctx context.Context, kind NotificationKind, req *models.CertificateRequest, extra NotificationExtra) {
	if err := s.notifier.Send(ctx, kind, req, extra); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"kind":           kind,
			"certificate_id": req.CertificateID,
		}).Warn("submission notification failed")
	}
}

// verifyCaptcha is a no-op until a Turnstile secret is configured. Once it is, a
// missing token fails the check.
func verifyCaptcha(ctx context.Context, repo Repository, captcha CaptchaVerifier, log logrus.FieldLogger, token, remoteIP string) error {
	secret := NewSettings(repo.Settings(), log).Lookup(ctx, SettingTurnstileSecretKey)
	if secret == "" || captcha == nil {
		return nil
	}
	if token == "" {
		return ErrSecurityCheck
	}

	ok, err := captcha.Verify(ctx, secret, token, remoteIP)
	if err != nil {
		log.WithError(err).WithField("ip", remoteIP).Warn("captcha verification request failed")
		return ErrSecurityCheck
	}
	if !ok {
		log.WithField("ip", remoteIP).Warn("captcha token rejected")
		return ErrSecurityCheck
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
