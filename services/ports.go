package services

import (
	"context"
	"time"

	"lmscert/models"
)

// RequestRepository persists certificate requests.
type RequestRepository interface {
	Create(ctx context.Context, req *models.CertificateRequest) error
	Save(ctx context.Context, req *models.CertificateRequest) error
	FindByID(ctx context.Context, id uint) (*models.CertificateRequest, error)
	// FindActive returns nil, nil when the user has no active request for the product.
	FindActive(ctx context.Context, userID, productID uint) (*models.CertificateRequest, error)
	ListByStatus(ctx context.Context, statuses []models.CertificateStatus, limit int) ([]models.CertificateRequest, error)
	ListByUser(ctx context.Context, userID uint) ([]models.CertificateRequest, error)
	// IssuedCandidates returns issued requests whose certificate id or email equals
	// query, or whose "first last" contains it case-sensitively. Most recently issued first.
	IssuedCandidates(ctx context.Context, query string, limit int) ([]models.CertificateRequest, error)
}

// SettingsRepository is the raw key/value table behind Settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetMany stores all values in one transaction.
	SetMany(ctx context.Context, values map[string]string) error
	All(ctx context.Context) (map[string]string, error)
	// Increment locks the row, stores value+1 and returns the value it held.
	// A missing row is created holding initial+1 and initial is returned.
	Increment(ctx context.Context, key string, initial int64) (int64, error)
}

// VerificationRepository is the append-only verification log.
type VerificationRepository interface {
	Append(ctx context.Context, entry *models.VerificationLog) error
	Recent(ctx context.Context, limit int) ([]models.VerificationLog, error)
}

// Repository groups the stores so a unit of work can run in one transaction.
type Repository interface {
	Requests() RequestRepository
	Settings() SettingsRepository
	Verifications() VerificationRepository
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// Purchase is the purchase oracle's answer for one user and product.
type Purchase struct {
	Purchased    bool
	PurchaseDate time.Time
}

// PurchasedProduct is a product found in a user's paid orders.
type PurchasedProduct struct {
	ProductID   uint      `json:"product_id"`
	Name        string    `json:"name"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// PurchaseOracle answers whether a user bought a product.
type PurchaseOracle interface {
	HasPurchased(ctx context.Context, userID, productID uint) (Purchase, error)
	PurchasedProducts(ctx context.Context, userID uint) ([]PurchasedProduct, error)
}

// Directory resolves platform users and products.
type Directory interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindProduct(ctx context.Context, id uint) (*models.Product, error)
}

// Attachment is a file sent along with an email.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is one outbound HTML email.
type Message struct {
	FromName    string
	FromEmail   string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer is the email transport. A nil error means the transport accepted the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// BlobStore keeps generated and uploaded certificate files.
type BlobStore interface {
	// Store publishes data at path atomically and returns its public URL.
	Store(ctx context.Context, data []byte, path string) (string, error)
	// Load reads back a file previously returned by Store.
	Load(ctx context.Context, url string) ([]byte, error)
}

// CaptchaVerifier checks a human-verification token against the provider.
type CaptchaVerifier interface {
	Verify(ctx context.Context, secret, token, remoteIP string) (bool, error)
}
