package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lmscert/models"
)

// NotificationKind selects the email template.
type NotificationKind string

const (
	KindStudentConfirmation NotificationKind = "student_confirmation"
	KindAdminNewRequest     NotificationKind = "admin_new_request"
	KindVendorNewRequest    NotificationKind = "vendor_new_request"
	KindIssuance            NotificationKind = "issuance"
	KindRejection           NotificationKind = "rejection"
)

// NotificationExtra carries the per-kind values that are not on the request.
type NotificationExtra struct {
	// VendorName is shown to admins for vendor submissions and greets the vendor.
	VendorName string
	// VendorEmail is the recipient of KindVendorNewRequest.
	VendorEmail string
	// Reason is the rejection reason for KindRejection.
	Reason string
	// Attachment is the certificate document for KindIssuance.
	Attachment *Attachment
}

// Notifier composes and sends the certificate emails. It never retries; a failed
// issuance email is retried through the resend action.
type Notifier struct {
	mailer   Mailer
	settings *Settings
	log      logrus.FieldLogger
	clock    func() time.Time
}

func NewNotifier(mailer Mailer, settings *Settings, log logrus.FieldLogger, clock func() time.Time) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Notifier{mailer: mailer, settings: settings, log: log, clock: clock}
}

// Send builds the message for kind and hands it to the transport.
func (n *Notifier) Send(ctx context.Context, kind NotificationKind, req *models.CertificateRequest, extra NotificationExtra) error {
	msg, err := n.compose(ctx, kind, req, extra)
	if err != nil {
		return err
	}

	entry := n.log.WithFields(logrus.Fields{
		"kind":           kind,
		"certificate_id": req.CertificateID,
		"to":             strings.Join(msg.To, ","),
	})
	if err := n.mailer.Send(ctx, msg); err != nil {
		entry.WithError(err).Warn("certificate email not sent")
		return err
	}
	entry.Info("certificate email sent")
	return nil
}

func (n *Notifier) compose(ctx context.Context, kind NotificationKind, req *models.CertificateRequest, extra NotificationExtra) (Message, error) {
	company := n.settings.Lookup(ctx, SettingCompanyName)
	support := n.settings.Lookup(ctx, SettingSupportEmail)
	siteURL := strings.TrimRight(n.settings.Lookup(ctx, SettingSiteURL), "/")

	msg := Message{
		FromName:  n.settings.Lookup(ctx, SettingFromName),
		FromEmail: n.settings.Lookup(ctx, SettingFromEmail),
	}

	student := html.EscapeString(req.FullName())
	course := html.EscapeString(req.ProductName)
	certID := html.EscapeString(req.CertificateID)

	switch kind {
	case KindStudentConfirmation:
		msg.To = []string{req.Email}
		msg.Subject = "Certificate Request Received - " + company
		msg.HTML = emailLayout(company, "Certificate Request Received", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We have received your certificate request for:</p>
		<div class="info-box">
			<strong>Course:</strong> %s<br>
			<strong>Certificate ID:</strong> %s
		</div>
		<p>Your request is currently under review. You will receive your certificate via email once it has been approved by our team.</p>
		<p>If you have any questions, please contact us at %s</p>
	`, html.EscapeString(req.FirstName), course, certID, html.EscapeString(support)))

	case KindAdminNewRequest:
		msg.To = []string{n.settings.Lookup(ctx, SettingAdminEmail)}
		msg.Subject = "New Certificate Request - " + req.CertificateID
		submittedBy := "Submitted by student"
		if req.RequestType == models.RequestTypeVendor {
			submittedBy = "Submitted by vendor: " + html.EscapeString(extra.VendorName)
		}
		msg.HTML = emailLayout(company, "New Certificate Request", fmt.Sprintf(`
		<div class="info-box">
			<strong>Certificate ID:</strong> %s<br>
			<strong>Student:</strong> %s<br>
			<strong>Course:</strong> %s<br>
			<strong>Type:</strong> %s Request<br>
			<strong>Status:</strong> Pending Review
		</div>
		<p>%s</p>
		<a href="%s/admin/certificates?status=pending" class="btn">Review Request</a>
	`, certID, student, course, html.EscapeString(titleCase(string(req.RequestType))), submittedBy, html.EscapeString(siteURL)))

	case KindVendorNewRequest:
		if extra.VendorEmail == "" {
			return Message{}, errors.New("vendor email is required")
		}
		msg.To = []string{extra.VendorEmail}
		msg.Subject = "Certificate Request for Your Course - " + req.CertificateID
		msg.HTML = emailLayout(company, "Certificate Request Notification", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>A student has requested a certificate for your course:</p>
		<div class="info-box">
			<strong>Student:</strong> %s<br>
			<strong>Course:</strong> %s<br>
			<strong>Certificate ID:</strong> %s
		</div>
		<p>The request is pending admin review. You will be notified once it's processed.</p>
	`, html.EscapeString(extra.VendorName), student, course, certID))

	case KindIssuance:
		msg.To = []string{req.Email}
		msg.Subject = "Your Certificate is Ready! - " + company
		download := ""
		if req.CertificateFile != nil && *req.CertificateFile != "" {
			download = fmt.Sprintf(`<a href="%s" class="btn">Download Your Certificate</a>`, html.EscapeString(*req.CertificateFile))
		}
		verifyPage := html.EscapeString(siteURL + "/verify-certificate")
		msg.HTML = emailLayout(company, "Congratulations!", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your certificate has been approved and is now ready!</p>
		<div class="info-box">
			<strong>Course:</strong> %s<br>
			<strong>Certificate ID:</strong> %s<br>
			<strong>Issued Date:</strong> %s
		</div>
		%s
		<p>You can verify your certificate anytime at: <a href="%s">%s</a></p>
		<p>Keep this certificate safe for your records.</p>
	`, student, course, certID, n.clock().Format(CompletionDateLayout), download, verifyPage, verifyPage))
		if extra.Attachment != nil {
			msg.Attachments = []Attachment{*extra.Attachment}
		}

	case KindRejection:
		msg.To = []string{req.Email}
		msg.Subject = "Certificate Request Update - " + company
		msg.HTML = emailLayout(company, "Certificate Request Update", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We regret to inform you that your certificate request could not be approved at this time.</p>
		<div class="info-box">
			<strong>Course:</strong> %s<br>
			<strong>Certificate ID:</strong> %s<br>
			<strong>Reason:</strong> %s
		</div>
		<p>If you believe this is an error or have questions, please contact us at %s</p>
	`, student, course, certID, html.EscapeString(extra.Reason), html.EscapeString(support)))

	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	if len(msg.To) == 0 || msg.To[0] == "" {
		return Message{}, fmt.Errorf("%s email has no recipient", kind)
	}
	return msg, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// emailLayout wraps a body in the shared branded layout.
func emailLayout(company, title, body string) string {
	company = html.EscapeString(company)
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; color: #333; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border: 1px solid #ddd; border-radius: 8px; overflow: hidden; }
			.header { background-color: #070244; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 22px; letter-spacing: 1px; }
			.content { padding: 30px; line-height: 1.6; }
			.content h2 { color: #070244; margin-top: 0; }
			.info-box { background: #f5f5f5; padding: 15px; margin: 20px 0; border-left: 4px solid #070244; }
			.btn { display: inline-block; padding: 12px 24px; background: #070244; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
				<p>Best regards,<br>%s</p>
			</div>
			<div class="footer">&copy; %s. All rights reserved.</div>
		</div>
	</body>
	</html>
	`, company, html.EscapeString(title), body, company, company)
}
