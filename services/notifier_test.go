package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmscert/models"
)

func testNotifier(mailer Mailer) *Notifier {
	settings := NewSettings(newMemSettings(map[string]string{
		SettingAdminEmail: "admin@example.com",
		SettingFromEmail:  "noreply@example.com",
	}), nil)
	clock := func() time.Time { return time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC) }
	return NewNotifier(mailer, settings, nil, clock)
}

func TestNotifierRecipients(t *testing.T) {
	mailer := &recordingMailer{}
	n := testNotifier(mailer)
	ctx := context.Background()
	req := sampleRequest()
	req.Email = "jane@example.com"

	require.NoError(t, n.Send(ctx, KindStudentConfirmation, req, NotificationExtra{}))
	require.NoError(t, n.Send(ctx, KindAdminNewRequest, req, NotificationExtra{}))
	require.NoError(t, n.Send(ctx, KindVendorNewRequest, req, NotificationExtra{VendorName: "Ravi", VendorEmail: "ravi@example.com"}))
	require.NoError(t, n.Send(ctx, KindRejection, req, NotificationExtra{Reason: "Incomplete <project>"}))

	require.Len(t, mailer.sent, 4)
	assert.Equal(t, []string{"jane@example.com"}, mailer.sent[0].To)
	assert.Equal(t, []string{"admin@example.com"}, mailer.sent[1].To)
	assert.Equal(t, []string{"ravi@example.com"}, mailer.sent[2].To)
	assert.Contains(t, mailer.sent[3].HTML, "Incomplete &lt;project&gt;")
	assert.Equal(t, "noreply@example.com", mailer.sent[0].FromEmail)
}

func TestNotifierIssuanceAttachesDocument(t *testing.T) {
	mailer := &recordingMailer{}
	n := testNotifier(mailer)
	req := sampleRequest()
	req.Email = "jane@example.com"

	att := &Attachment{FileName: "cert-OFSHDG2024007.html", ContentType: "text/html", Data: []byte("<html>")}
	require.NoError(t, n.Send(context.Background(), KindIssuance, req, NotificationExtra{Attachment: att}))

	require.Len(t, mailer.sent, 1)
	require.Len(t, mailer.sent[0].Attachments, 1)
	assert.Equal(t, "cert-OFSHDG2024007.html", mailer.sent[0].Attachments[0].FileName)
	assert.Contains(t, mailer.sent[0].HTML, "May 02, 2024")
}

func TestNotifierErrors(t *testing.T) {
	boom := errors.New("smtp down")
	n := testNotifier(&recordingMailer{err: boom})
	req := sampleRequest()
	req.Email = "jane@example.com"

	assert.ErrorIs(t, n.Send(context.Background(), KindStudentConfirmation, req, NotificationExtra{}), boom)
	assert.Error(t, n.Send(context.Background(), KindVendorNewRequest, req, NotificationExtra{}))
	assert.Error(t, n.Send(context.Background(), NotificationKind("bogus"), req, NotificationExtra{}))

	req.Email = ""
	assert.Error(t, testNotifier(&recordingMailer{}).Send(context.Background(), KindRejection, req, NotificationExtra{}))
}

func TestNotifierAdminMessageNamesVendor(t *testing.T) {
	mailer := &recordingMailer{}
	req := sampleRequest()
	req.RequestType = models.RequestTypeVendor

	require.NoError(t, testNotifier(mailer).Send(context.Background(), KindAdminNewRequest, req, NotificationExtra{VendorName: "Ravi"}))
	assert.Contains(t, mailer.sent[0].HTML, "Submitted by vendor: Ravi")
	assert.Contains(t, mailer.sent[0].HTML, "Vendor Request")
}
