package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"lmscert/config"
	"lmscert/services"
)

// NewMailer picks the transport named by EMAIL_PROVIDER.
func NewMailer(cfg *config.Config, log logrus.FieldLogger) (services.Mailer, error) {
	switch cfg.EmailProvider {
	case "smtp", "":
		return &SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailSender,
			Password: cfg.Password,
		}, nil
	case "sendgrid":
		return NewSendGridMailer(cfg.SendGridAPIKey), nil
	case "log":
		return &LogMailer{Log: log}, nil
	}
	return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q", cfg.EmailProvider)
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(ctx context.Context, msg services.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email %q has no recipients", msg.Subject)
	}

	from := msg.FromEmail
	if from == "" {
		from = m.Username
	}
	body, err := buildMIME(msg, from)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(m.Host+":"+m.Port, auth, from, msg.To, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMIME renders msg as a single HTML part, or multipart/mixed when there are
// attachments.
func buildMIME(msg services.Message, from string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", formatAddress(msg.FromName, from))
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(msg.HTML)
		return buf.Bytes(), nil
	}

	w := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=\"UTF-8\""}})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName})},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(wrapBase64(a.Data))); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), addr)
}

// wrapBase64 encodes data in 76 character lines.
func wrapBase64(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	return b.String()
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, msg services.Message) error {
	resp, err := m.client.SendWithContext(ctx, sendGridMessage(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func sendGridMessage(msg services.Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(msg.FromName, msg.FromEmail))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/html", msg.HTML))

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.FileName)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m *LogMailer) Send(ctx context.Context, msg services.Message) error {
	log := m.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"to":          strings.Join(msg.To, ","),
		"subject":     msg.Subject,
		"attachments": len(msg.Attachments),
	}).Info("email not sent, log transport")
	return nil
}
