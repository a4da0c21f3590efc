package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmscert/models"
)

func TestCheckUpload(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	assert.NoError(t, checkUpload(&Upload{Data: pdf}))

	var verr *ValidationError
	assert.ErrorAs(t, checkUpload(&Upload{}), &verr)
	assert.ErrorAs(t, checkUpload(&Upload{Data: []byte("<html>not a pdf</html>")}), &verr)
	assert.ErrorAs(t, checkUpload(&Upload{Data: append(pdf, make([]byte, MaxUploadSize)...)}), &verr)
}

func TestWithTimeout(t *testing.T) {
	v, err := withTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = withTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	boom := errors.New("boom")
	_, err = withTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCompletionDatePrecedence(t *testing.T) {
	now := time.Date(2024, 5, 11, 15, 4, 0, 0, time.Local)
	s := &IssuanceService{clock: func() time.Time { return now }}

	req := &models.CertificateRequest{}
	got := time.Time(s.completionDate(req, nil))
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.Local), got)

	stored := s.completionDate(req, ptrTime(time.Date(2024, 4, 2, 13, 0, 0, 0, time.Local)))
	req.CompletionDate = &stored
	got = time.Time(s.completionDate(req, nil))
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.Local), got)

	got = time.Time(s.completionDate(req, ptrTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local), got)
}

func TestMatchMethod(t *testing.T) {
	req := &models.CertificateRequest{
		CertificateID: "OFSHDG2024007",
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Status:        models.StatusIssued,
	}

	assert.Equal(t, SearchByCertificateID, matchMethod(req, "OFSHDG2024007"))
	assert.Equal(t, SearchByEmail, matchMethod(req, "jane@example.com"))
	assert.Equal(t, SearchByName, matchMethod(req, "ne Do"))
	assert.Empty(t, matchMethod(req, "jane doe"), "name match is case-sensitive")
	assert.Empty(t, matchMethod(req, "OFSHDG"), "id match is exact")

	req.Status = models.StatusPending
	assert.Empty(t, matchMethod(req, "OFSHDG2024007"))
}

func TestValidationErrorMessage(t *testing.T) {
	err := validateStruct(StudentSubmission{UserID: 1, ProductID: 2, FirstName: "J", LastName: "D", Email: "bad", Phone: "1", ProjectLink: "not a url"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid email address!", verr.Fields["email"])
	assert.Equal(t, "Must be a valid URL!", verr.Fields["project_link"])
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed: email"))

	assert.Equal(t, "+91 (555) 010-0", SanitizePhone(" +91 (555) 010-0<script> "))
}

func ptrTime(t time.Time) *time.Time { return &t }
