package models

import "time"

const (
	VerificationFound    = "found"
	VerificationNotFound = "not_found"

	// VerificationNoCertificate is logged as the certificate id when nothing matched.
	VerificationNoCertificate = "N/A"
)

// VerificationLog is an append-only record of one public verification attempt.
type VerificationLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CertificateID  string    `json:"certificate_id" gorm:"size:50;not null;index"`
	SearchMethod   string    `json:"search_method" gorm:"size:20;not null"`
	SearchQuery    string    `json:"search_query" gorm:"size:200;not null"`
	VerifiedByIP   string    `json:"verified_by_ip" gorm:"size:45;not null"`
	VerifiedByUser *uint     `json:"verified_by_user"`
	Result         string    `json:"result" gorm:"size:20;not null"`
	VerifiedAt     time.Time `json:"verified_at" gorm:"not null;index"`
}
