package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lmscert/models"
)

const (
	SearchByCertificateID = "certificate_id"
	SearchByEmail         = "email"
	SearchByName          = "name"
	// SearchUnmatched is logged when nothing matched the query.
	SearchUnmatched = "search"

	maxVerifyQuery   = 200
	verifyCandidates = 50
)

type VerifyInput struct {
	Query        string
	IP           string
	UserID       *uint
	CaptchaToken string
}

// VerifiedCertificate is the public view of an issued certificate.
type VerifiedCertificate struct {
	CertificateID  string     `json:"certificate_id"`
	StudentName    string     `json:"student_name"`
	CourseName     string     `json:"course_name"`
	CompletionDate string     `json:"completion_date,omitempty"`
	IssuedAt       *time.Time `json:"issued_at"`
}

// VerifyResult carries DownloadURL only when the caller owns the certificate.
type VerifyResult struct {
	Found       bool                 `json:"found"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
	DownloadURL string               `json:"download_url,omitempty"`
}

// VerificationService answers public certificate lookups. Only issued requests
// are ever returned.
type VerificationService struct {
	repo    Repository
	captcha CaptchaVerifier
	metrics *Metrics
	log     logrus.FieldLogger
	clock   func() time.Time
}

func NewVerificationService(repo Repository, captcha CaptchaVerifier, metrics *Metrics, log logrus.FieldLogger, clock func() time.Time) *VerificationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if clock == nil {
		clock = time.Now
	}
	return &VerificationService{repo: repo, captcha: captcha, metrics: metrics, log: log, clock: clock}
}

// Verify looks up an issued certificate by exact id, exact email, or a
// case-sensitive substring of "first last". The most recently issued match wins.
// Every accepted lookup appends exactly one verification log entry.
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, newValidationError("cert_search", "Please enter a certificate ID, name or email")
	}
	if len(query) > maxVerifyQuery {
		return nil, newValidationError("cert_search", "Search is too long")
	}
	if err := verifyCaptcha(ctx, s.repo, s.captcha, s.log, in.CaptchaToken, in.IP); err != nil {
		return nil, err
	}

	candidates, err := s.repo.Requests().IssuedCandidates(ctx, query, verifyCandidates)
	if err != nil {
		return nil, err
	}

	var (
		match  *models.CertificateRequest
		method = SearchUnmatched
	)
	for i := range candidates {
		if m := matchMethod(&candidates[i], query); m != "" {
			match, method = &candidates[i], m
			break
		}
	}

	entry := &models.VerificationLog{
		CertificateID:  models.VerificationNoCertificate,
		SearchMethod:   method,
		SearchQuery:    query,
		VerifiedByIP:   in.IP,
		VerifiedByUser: in.UserID,
		Result:         models.VerificationNotFound,
		VerifiedAt:     s.clock(),
	}
	result := &VerifyResult{}
	if match != nil {
		entry.CertificateID = match.CertificateID
		entry.Result = models.VerificationFound
		result = publicView(match, in.UserID)
	}

	if err := s.repo.Verifications().Append(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.verification(entry.Result)
	s.log.WithFields(logrus.Fields{
		"certificate_id": entry.CertificateID,
		"method":         method,
		"ip":             in.IP,
		"result":         entry.Result,
	}).Info("certificate verification")

	return result, nil
}

// RecentLogs returns the newest verification log entries.
func (s *VerificationService) RecentLogs(ctx context.Context, limit int) ([]models.VerificationLog, error) {
	return s.repo.Verifications().Recent(ctx, limit)
}

func matchMethod(req *models.CertificateRequest, query string) string {
	if req.Status != models.StatusIssued {
		return ""
	}
	switch {
	case req.CertificateID == query:
		return SearchByCertificateID
	case req.Email == query:
		return SearchByEmail
	case strings.Contains(req.FullName(), query):
		return SearchByName
	}
	return ""
}

func publicView(req *models.CertificateRequest, viewer *uint) *VerifyResult {
	cert := &VerifiedCertificate{
		CertificateID: req.CertificateID,
		StudentName:   req.FullName(),
		CourseName:    req.ProductName,
		IssuedAt:      req.ProcessedAt,
	}
	if req.CompletionDate != nil {
		cert.CompletionDate = time.Time(*req.CompletionDate).Format(CompletionDateLayout)
	}

	result := &VerifyResult{Found: true, Certificate: cert}
	if viewer != nil && *viewer == req.UserID && req.CertificateFile != nil {
		result.DownloadURL = *req.CertificateFile
	}
	return result
}
