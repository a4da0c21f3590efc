package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jinzhu/now"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"lmscert/lifecycle"
	"lmscert/models"
)

// MaxUploadSize caps a manually uploaded certificate PDF.
const MaxUploadSize = 10 << 20

const (
	generationFailedPrefix = "Certificate Generation Failed: "
	emailFailedPrefix      = "Email Failed: "

	BulkRejectionReason = "Bulk rejection"
)

// Upload is a certificate PDF supplied by an administrator instead of a rendered document.
type Upload struct {
	FileName string
	Data     []byte
}

// ApproveInput approves a pending request. A nil CompletionDate falls back to the
// date stored on the request, then to today.
type ApproveInput struct {
	RequestID      uint
	AdminID        uint
	CompletionDate *time.Time
	Upload         *Upload
}

// IssueOutcome reports an approve, regenerate, resend or reject call that changed
// the request. Warning is set when the record was updated but the email was not sent.
type IssueOutcome struct {
	Request   *models.CertificateRequest `json:"request"`
	Delivered bool                       `json:"email_sent"`
	Warning   string                     `json:"warning,omitempty"`
}

type BulkItem struct {
	ID            uint                     `json:"id"`
	CertificateID string                   `json:"certificate_id,omitempty"`
	Status        models.CertificateStatus `json:"status,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// BulkResult holds one entry per requested id in input order. Failed items never
// roll back the others.
type BulkResult struct {
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Items     []BulkItem `json:"items"`
}

func (r *BulkResult) add(id uint, req *models.CertificateRequest, err error) {
	item := BulkItem{ID: id}
	if req != nil {
		item.CertificateID = req.CertificateID
		item.Status = req.Status
	}
	if err != nil {
		item.Error = err.Error()
		r.Failed++
	} else {
		r.Processed++
	}
	r.Items = append(r.Items, item)
}

// IssuanceService drives a request through approval, generation and delivery.
type IssuanceService struct {
	repo              Repository
	renderer          Renderer
	blobs             BlobStore
	notifier          *Notifier
	metrics           *Metrics
	log               logrus.FieldLogger
	clock             func() time.Time
	generationTimeout time.Duration
	emailTimeout      time.Duration
}

type IssuanceDeps struct {
	Repo              Repository
	Renderer          Renderer
	Blobs             BlobStore
	Notifier          *Notifier
	Metrics           *Metrics
	Log               logrus.FieldLogger
	Clock             func() time.Time
	GenerationTimeout time.Duration
	EmailTimeout      time.Duration
}

func NewIssuanceService(d IssuanceDeps) *IssuanceService {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.GenerationTimeout <= 0 {
		d.GenerationTimeout = 30 * time.Second
	}
	if d.EmailTimeout <= 0 {
		d.EmailTimeout = 30 * time.Second
	}
	return &IssuanceService{
		repo:              d.Repo,
		renderer:          d.Renderer,
		blobs:             d.Blobs,
		notifier:          d.Notifier,
		metrics:           d.Metrics,
		log:               d.Log,
		clock:             d.Clock,
		generationTimeout: d.GenerationTimeout,
		emailTimeout:      d.EmailTimeout,
	}
}

// Get loads one request by its numeric id.
func (s *IssuanceService) Get(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	return s.repo.Requests().FindByID(ctx, id)
}

// List returns requests in the given status, or every request when status is empty.
func (s *IssuanceService) List(ctx context.Context, status string, limit int) ([]models.CertificateRequest, error) {
	statuses := []models.CertificateStatus{
		models.StatusPending, models.StatusApproved, models.StatusIssued,
		models.StatusRejected, models.StatusGenerationFailed, models.StatusEmailFailed,
	}
	if status != "" {
		st := models.CertificateStatus(status)
		if !st.Valid() {
			return nil, newValidationError("status", "Unknown certificate status")
		}
		statuses = []models.CertificateStatus{st}
	}
	return s.repo.Requests().ListByStatus(ctx, statuses, limit)
}

// ListFailed returns requests waiting for regenerate or resend.
func (s *IssuanceService) ListFailed(ctx context.Context, limit int) ([]models.CertificateRequest, error) {
	return s.repo.Requests().ListByStatus(ctx, []models.CertificateStatus{models.StatusGenerationFailed, models.StatusEmailFailed}, limit)
}

func (s *IssuanceService) ListIssued(ctx context.Context, limit int) ([]models.CertificateRequest, error) {
	return s.repo.Requests().ListByStatus(ctx, []models.CertificateStatus{models.StatusIssued}, limit)
}

// Approve moves a pending request to approved, then generates and emails the
// certificate. A generation failure returns a *GenerationError together with the
// updated request. An email failure is reported through IssueOutcome.Warning.
func (s *IssuanceService) Approve(ctx context.Context, in ApproveInput) (*IssueOutcome, error) {
	if in.Upload != nil {
		if err := checkUpload(in.Upload); err != nil {
			return nil, err
		}
	}

	req, err := s.repo.Requests().FindByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(req.Status, lifecycle.ActionApprove); err != nil {
		return nil, err
	}
	return s.issue(ctx, lifecycle.ActionApprove, req, in.AdminID, in.CompletionDate, in.Upload)
}

// Regenerate re-runs generation for a request left in generation_failed, or one
// stuck in approved.
func (s *IssuanceService) Regenerate(ctx context.Context, id, adminID uint, completion *time.Time) (*IssueOutcome, error) {
	req, err := s.repo.Requests().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(req.Status, lifecycle.ActionRegenerate); err != nil {
		return nil, err
	}
	if err := s.ensureSlotFree(ctx, req); err != nil {
		return nil, err
	}
	return s.issue(ctx, lifecycle.ActionRegenerate, req, adminID, completion, nil)
}

func (s *IssuanceService) issue(ctx context.Context, action lifecycle.Action, req *models.CertificateRequest, adminID uint, completion *time.Time, upload *Upload) (*IssueOutcome, error) {
	next, err := lifecycle.Next(req.Status, action)
	if err != nil {
		return nil, err
	}

	date := s.completionDate(req, completion)
	processedAt := s.clock()
	req.Status = next
	req.CompletionDate = &date
	req.ProcessedAt = &processedAt
	req.ProcessedBy = &adminID
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"certificate_id": req.CertificateID,
		"action":         action,
		"admin_id":       adminID,
	})

	artifact, err := s.generate(ctx, req, time.Time(date), upload)
	if err != nil {
		entry.WithError(err).Error("certificate generation failed")
		s.metrics.issue(string(action), "generation_failed")
		if ferr := s.fail(ctx, req, lifecycle.ActionGenerationFailed, generationFailedPrefix+err.Error()); ferr != nil {
			return nil, ferr
		}
		return &IssueOutcome{Request: req}, &GenerationError{Err: err}
	}

	url, err := withTimeout(ctx, s.generationTimeout, func(ctx context.Context) (string, error) {
		return s.blobs.Store(ctx, artifact.Bytes, path.Join("certificates", artifact.FileName))
	})
	if err != nil {
		err = fmt.Errorf("store certificate: %w", err)
		entry.WithError(err).Error("certificate generation failed")
		s.metrics.issue(string(action), "generation_failed")
		if ferr := s.fail(ctx, req, lifecycle.ActionGenerationFailed, generationFailedPrefix+err.Error()); ferr != nil {
			return nil, ferr
		}
		return &IssueOutcome{Request: req}, &GenerationError{Err: err}
	}

	issued, err := lifecycle.Next(req.Status, lifecycle.ActionGenerated)
	if err != nil {
		return nil, err
	}
	req.Status = issued
	req.CertificateFile = &url
	req.RejectionReason = nil
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}
	entry.WithField("file", url).Info("certificate generated")

	outcome := s.deliver(ctx, req, &Attachment{
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		Data:        artifact.Bytes,
	})
	if outcome.Delivered {
		s.metrics.issue(string(action), "issued")
	} else {
		s.metrics.issue(string(action), "email_failed")
	}
	return outcome, nil
}

// Resend emails the stored document again for a request in email_failed. The
// document is never regenerated.
func (s *IssuanceService) Resend(ctx context.Context, id, adminID uint) (*IssueOutcome, error) {
	req, err := s.repo.Requests().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(req.Status, lifecycle.ActionResend); err != nil {
		return nil, err
	}
	if req.CertificateFile == nil || *req.CertificateFile == "" {
		return nil, ErrNoArtifact
	}
	if err := s.ensureSlotFree(ctx, req); err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"certificate_id": req.CertificateID,
		"action":         lifecycle.ActionResend,
		"admin_id":       adminID,
	})

	data, err := withTimeout(ctx, s.emailTimeout, func(ctx context.Context) ([]byte, error) {
		return s.blobs.Load(ctx, *req.CertificateFile)
	})
	if err != nil {
		err = fmt.Errorf("load certificate file: %w", err)
		entry.WithError(err).Error("certificate resend failed")
		s.metrics.issue(string(lifecycle.ActionResend), "email_failed")
		if ferr := s.fail(ctx, req, lifecycle.ActionDeliveryFailed, emailFailedPrefix+err.Error()); ferr != nil {
			return nil, ferr
		}
		return &IssueOutcome{Request: req, Warning: err.Error()}, nil
	}

	attachment := &Attachment{
		FileName:    path.Base(*req.CertificateFile),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
	if err := s.send(ctx, req, attachment); err != nil {
		entry.WithError(err).Warn("certificate resend failed")
		s.metrics.issue(string(lifecycle.ActionResend), "email_failed")
		if ferr := s.fail(ctx, req, lifecycle.ActionDeliveryFailed, emailFailedPrefix+err.Error()); ferr != nil {
			return nil, ferr
		}
		return &IssueOutcome{Request: req, Warning: (&DeliveryError{Err: err}).Error()}, nil
	}

	next, err := lifecycle.Next(req.Status, lifecycle.ActionResend)
	if err != nil {
		return nil, err
	}
	processedAt := s.clock()
	req.Status = next
	req.RejectionReason = nil
	req.ProcessedAt = &processedAt
	req.ProcessedBy = &adminID
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	entry.Info("certificate resent")
	s.metrics.issue(string(lifecycle.ActionResend), "issued")
	return &IssueOutcome{Request: req, Delivered: true}, nil
}

// Reject closes a pending request. The rejection email is best effort.
func (s *IssuanceService) Reject(ctx context.Context, id, adminID uint, reason string) (*IssueOutcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, newValidationError("reason", "Rejection reason is required")
	}

	req, err := s.repo.Requests().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.Next(req.Status, lifecycle.ActionReject)
	if err != nil {
		return nil, err
	}

	processedAt := s.clock()
	req.Status = next
	req.RejectionReason = &reason
	req.ProcessedAt = &processedAt
	req.ProcessedBy = &adminID
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"certificate_id": req.CertificateID,
		"action":         lifecycle.ActionReject,
		"admin_id":       adminID,
	})
	entry.Info("certificate request rejected")

	outcome := &IssueOutcome{Request: req, Delivered: true}
	sendErr := s.withEmailTimeout(ctx, func(ctx context.Context) error {
		return s.notifier.Send(ctx, KindRejection, req, NotificationExtra{Reason: reason})
	})
	if sendErr != nil {
		entry.WithError(sendErr).Warn("rejection email not sent")
		outcome.Delivered = false
		outcome.Warning = "Request rejected but the notification email could not be sent"
	}
	s.metrics.rejection(outcome.Delivered)
	return outcome, nil
}

// BulkApprove approves each id in turn with today's completion date.
func (s *IssuanceService) BulkApprove(ctx context.Context, ids []uint, adminID uint) BulkResult {
	result := BulkResult{Items: make([]BulkItem, 0, len(ids))}
	for _, id := range ids {
		outcome, err := s.Approve(ctx, ApproveInput{RequestID: id, AdminID: adminID})
		result.add(id, outcomeRequest(outcome), err)
	}
	return result
}

func (s *IssuanceService) BulkReject(ctx context.Context, ids []uint, adminID uint) BulkResult {
	result := BulkResult{Items: make([]BulkItem, 0, len(ids))}
	for _, id := range ids {
		outcome, err := s.Reject(ctx, id, adminID, BulkRejectionReason)
		result.add(id, outcomeRequest(outcome), err)
	}
	return result
}

// ResendFailed retries delivery for up to limit requests in email_failed. An item
// counts as failed when the email still did not go out.
func (s *IssuanceService) ResendFailed(ctx context.Context, adminID uint, limit int) (BulkResult, error) {
	failed, err := s.repo.Requests().ListByStatus(ctx, []models.CertificateStatus{models.StatusEmailFailed}, limit)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{Items: make([]BulkItem, 0, len(failed))}
	for i := range failed {
		id := failed[i].ID
		outcome, err := s.Resend(ctx, id, adminID)
		if err == nil && !outcome.Delivered {
			err = errors.New(outcome.Warning)
		}
		req := outcomeRequest(outcome)
		if req == nil {
			req = &failed[i]
		}
		result.add(id, req, err)
	}
	return result, nil
}

func (s *IssuanceService) generate(ctx context.Context, req *models.CertificateRequest, completion time.Time, upload *Upload) (*Artifact, error) {
	if upload != nil {
		return &Artifact{
			Bytes:       upload.Data,
			FileName:    "cert-" + req.CertificateID + ".pdf",
			ContentType: "application/pdf",
		}, nil
	}
	return withTimeout(ctx, s.generationTimeout, func(ctx context.Context) (*Artifact, error) {
		return s.renderer.Render(ctx, req, completion)
	})
}

// deliver sends the issuance email for a freshly issued request and records an
// email failure on it.
func (s *IssuanceService) deliver(ctx context.Context, req *models.CertificateRequest, attachment *Attachment) *IssueOutcome {
	err := s.send(ctx, req, attachment)
	if err == nil {
		return &IssueOutcome{Request: req, Delivered: true}
	}

	s.log.WithError(err).WithField("certificate_id", req.CertificateID).Warn("certificate issued but email failed")
	outcome := &IssueOutcome{
		Request: req,
		Warning: "Certificate generated but email failed. Use resend to retry.",
	}
	if ferr := s.fail(ctx, req, lifecycle.ActionDeliveryFailed, emailFailedPrefix+err.Error()); ferr != nil {
		s.log.WithError(ferr).WithField("certificate_id", req.CertificateID).Error("could not record email failure")
	}
	return outcome
}

func (s *IssuanceService) send(ctx context.Context, req *models.CertificateRequest, attachment *Attachment) error {
	return s.withEmailTimeout(ctx, func(ctx context.Context) error {
		return s.notifier.Send(ctx, KindIssuance, req, NotificationExtra{Attachment: attachment})
	})
}

func (s *IssuanceService) withEmailTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := withTimeout(ctx, s.emailTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// fail applies a failure action and records the reason.
func (s *IssuanceService) fail(ctx context.Context, req *models.CertificateRequest, action lifecycle.Action, reason string) error {
	next, err := lifecycle.Next(req.Status, action)
	if err != nil {
		return err
	}
	req.Status = next
	req.RejectionReason = &reason
	return s.save(ctx, req)
}

// ensureSlotFree refuses to re-activate a request when another request for the
// same user and product has become active in the meantime.
func (s *IssuanceService) ensureSlotFree(ctx context.Context, req *models.CertificateRequest) error {
	if req.Status.Active() {
		return nil
	}
	existing, err := s.repo.Requests().FindActive(ctx, req.UserID, req.ProductID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != req.ID {
		return duplicateError(string(existing.Status), existing.CertificateID)
	}
	return nil
}

func (s *IssuanceService) save(ctx context.Context, req *models.CertificateRequest) error {
	err := s.repo.Requests().Save(ctx, req)
	if errors.Is(err, ErrConflict) {
		return &EligibilityError{Err: ErrDuplicateRequest, Message: ErrDuplicateRequest.Error()}
	}
	if err != nil {
		return fmt.Errorf("save certificate request %s: %w", req.CertificateID, err)
	}
	return nil
}

func (s *IssuanceService) completionDate(req *models.CertificateRequest, supplied *time.Time) datatypes.Date {
	switch {
	case supplied != nil && !supplied.IsZero():
		return datatypes.Date(now.With(*supplied).BeginningOfDay())
	case req.CompletionDate != nil && !time.Time(*req.CompletionDate).IsZero():
		return *req.CompletionDate
	default:
		return datatypes.Date(now.With(s.clock()).BeginningOfDay())
	}
}

func checkUpload(u *Upload) error {
	if len(u.Data) == 0 {
		return newValidationError("certificate_pdf", "Uploaded file is empty")
	}
	if len(u.Data) > MaxUploadSize {
		return newValidationError("certificate_pdf", "File size exceeds 10MB limit")
	}
	if !mimetype.Detect(u.Data).Is("application/pdf") {
		return newValidationError("certificate_pdf", "Only PDF files are allowed")
	}
	return nil
}

func outcomeRequest(o *IssueOutcome) *models.CertificateRequest {
	if o == nil {
		return nil
	}
	return o.Request
}

// withTimeout runs fn with a deadline and returns as soon as either finishes.
// fn keeps running in the background if it ignores its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("timed out after %s: %w", d, ctx.Err())
	}
}
