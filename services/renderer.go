package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"lmscert/models"
)

// CompletionDateLayout is how completion dates are printed on certificates and emails.
const CompletionDateLayout = "January 02, 2006"

// Artifact is a rendered certificate document.
type Artifact struct {
	Bytes           []byte
	FileName        string
	ContentType     string
	VerificationURL string
}

// Renderer builds the certificate document for a request.
type Renderer interface {
	Render(ctx context.Context, req *models.CertificateRequest, completion time.Time) (*Artifact, error)
}

// HTMLRenderer renders a self-contained HTML certificate with an embedded QR code.
// Output is byte-identical for identical inputs and settings.
type HTMLRenderer struct {
	settings  *Settings
	directory Directory
}

func NewHTMLRenderer(settings *Settings, directory Directory) *HTMLRenderer {
	return &HTMLRenderer{settings: settings, directory: directory}
}

type certificateView struct {
	StudentName    string
	CourseName     string
	CompletionDate string
	CertificateID  string
	Instructor     string
	Company        string
	LogoURL        string
	SealURL        string
	SignatureURL   string
	QRCode         template.URL
	VerifyURL      string
}

func (r *HTMLRenderer) Render(ctx context.Context, req *models.CertificateRequest, completion time.Time) (*Artifact, error) {
	if req == nil || req.CertificateID == "" {
		return nil, errors.New("request has no certificate id")
	}
	if completion.IsZero() {
		return nil, errors.New("completion date is required")
	}

	company := r.settings.Lookup(ctx, SettingCompanyName)
	verifyURL := VerificationURL(r.settings.Lookup(ctx, SettingSiteURL), req.CertificateID)

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	instructor, err := r.instructorName(ctx, req, company)
	if err != nil {
		return nil, err
	}

	view := certificateView{
		StudentName:    req.FullName(),
		CourseName:     req.ProductName,
		CompletionDate: completion.Format(CompletionDateLayout),
		CertificateID:  req.CertificateID,
		Instructor:     strings.ToUpper(instructor),
		Company:        strings.ToUpper(company),
		LogoURL:        r.settings.Lookup(ctx, SettingLogoURL),
		SealURL:        r.settings.Lookup(ctx, SettingSealURL),
		SignatureURL:   r.settings.Lookup(ctx, SettingSignatureURL),
		QRCode:         template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
		VerifyURL:      verifyURL,
	}

	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute certificate template: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Artifact{
		Bytes:           buf.Bytes(),
		FileName:        "cert-" + req.CertificateID + ".html",
		ContentType:     "text/html; charset=utf-8",
		VerificationURL: verifyURL,
	}, nil
}

// instructorName resolves, in order: the name stored on the request, the vendor's
// profile, the product author's profile, then the company name.
func (r *HTMLRenderer) instructorName(ctx context.Context, req *models.CertificateRequest, company string) (string, error) {
	if req.InstructorName != nil && strings.TrimSpace(*req.InstructorName) != "" {
		return strings.TrimSpace(*req.InstructorName), nil
	}

	if req.VendorID != nil {
		vendor, err := r.directory.FindUser(ctx, *req.VendorID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("load vendor %d: %w", *req.VendorID, err)
		}
		if name := profileName(vendor); name != "" {
			return name, nil
		}
	}

	product, err := r.directory.FindProduct(ctx, req.ProductID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("load product %d: %w", req.ProductID, err)
	}
	if product != nil && product.AuthorID != 0 {
		author, err := r.directory.FindUser(ctx, product.AuthorID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("load product author %d: %w", product.AuthorID, err)
		}
		if name := profileName(author); name != "" {
			return name, nil
		}
	}

	return company, nil
}

// profileName prefers a display name that differs from the login, then first and
// last name, then whatever display name there is.
func profileName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" && u.DisplayName != u.Login {
		return u.DisplayName
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.DisplayName
}

// VerificationURL is the public page a certificate's QR code points to.
func VerificationURL(siteURL, certificateID string) string {
	return strings.TrimRight(siteURL, "/") + "/verify-certificate/?cert_id=" + url.QueryEscape(certificateID)
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Certificate - {{.CertificateID}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { background: #1a1a2e; min-height: 100vh; display: flex; justify-content: center; align-items: center; padding: 20px; font-family: Montserrat, Arial, sans-serif; }
.certificate { position: relative; width: 100%; max-width: 900px; min-height: 600px; padding: 50px 60px; border: 3px solid #c9a227; border-radius: 8px; background: linear-gradient(135deg, #1e1e3f 0%, #2d1b4e 50%, #1e1e3f 100%); overflow: hidden; text-align: center; }
.logo { position: absolute; top: 30px; left: 50px; width: 80px; }
.title { font-family: "Playfair Display", Georgia, serif; font-size: 56px; color: #c9a227; letter-spacing: 4px; }
.subtitle { font-family: "Playfair Display", Georgia, serif; font-size: 24px; color: #fff; letter-spacing: 6px; text-transform: uppercase; margin-bottom: 25px; }
.certifies { font-size: 14px; color: #ccc; letter-spacing: 2px; margin-bottom: 15px; }
.recipient { font-family: "Great Vibes", cursive; font-size: 52px; color: #fff; margin-bottom: 15px; }
.divider { height: 2px; max-width: 300px; margin: 20px auto; background: linear-gradient(90deg, transparent, #c9a227, transparent); }
.course-intro { font-size: 13px; color: #aaa; margin-bottom: 10px; }
.course { font-family: "Playfair Display", Georgia, serif; font-size: 22px; color: #c9a227; margin-bottom: 8px; }
.date { font-size: 14px; color: #ccc; }
.signatures { display: flex; justify-content: center; align-items: flex-end; gap: 60px; margin-top: 40px; }
.signature { min-width: 150px; }
.signature img { height: 40px; }
.signature-name { font-size: 12px; color: #fff; font-weight: 600; padding-bottom: 8px; border-bottom: 1px solid #c9a227; margin-bottom: 5px; }
.signature-title { font-size: 10px; color: #888; text-transform: uppercase; letter-spacing: 1px; }
.seal { width: 100px; }
.cert-number { position: absolute; bottom: 25px; left: 50px; text-align: left; font-size: 12px; color: #c9a227; }
.cert-number span { display: block; font-size: 10px; color: #888; text-transform: uppercase; }
.qr { position: absolute; bottom: 20px; right: 30px; width: 68px; padding: 4px; background: #fff; border-radius: 6px; }
.qr img { width: 60px; height: 60px; }
@media print { body { background: none; padding: 0; } }
</style>
</head>
<body>
<div class="certificate">
{{- if .LogoURL}}
<img class="logo" src="{{.LogoURL}}" alt="Logo">
{{- end}}
<h1 class="title">Certificate</h1>
<h2 class="subtitle">Of Achievement</h2>
<p class="certifies">This Certifies That</p>
<h3 class="recipient">{{.StudentName}}</h3>
<div class="divider"></div>
<p class="course-intro">Has successfully completed the online course</p>
<p class="course">{{.CourseName}}</p>
<p class="date">On {{.CompletionDate}}</p>
<div class="signatures">
<div class="signature">
{{- if .SignatureURL}}
<img src="{{.SignatureURL}}" alt="Signature">
{{- end}}
<p class="signature-name">{{.Instructor}}</p>
<p class="signature-title">Instructor</p>
</div>
{{- if .SealURL}}
<img class="seal" src="{{.SealURL}}" alt="Certificate Seal">
{{- end}}
<div class="signature">
<p class="signature-name">{{.Company}}</p>
<p class="signature-title">Authorised By</p>
</div>
</div>
<div class="cert-number"><span>Cert no.</span>{{.CertificateID}}</div>
<a class="qr" href="{{.VerifyURL}}"><img src="{{.QRCode}}" alt="Scan to verify"></a>
</div>
</body>
</html>
`))
