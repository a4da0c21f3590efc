package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CertificateStatus is the lifecycle state of a certificate request.
type CertificateStatus string

const (
	StatusPending          CertificateStatus = "pending"
	StatusApproved         CertificateStatus = "approved"
	StatusIssued           CertificateStatus = "issued"
	StatusRejected         CertificateStatus = "rejected"
	StatusGenerationFailed CertificateStatus = "generation_failed"
	StatusEmailFailed      CertificateStatus = "email_failed"
)

// Valid reports whether s is one of the six known states.
func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusIssued, StatusRejected, StatusGenerationFailed, StatusEmailFailed:
		return true
	}
	return false
}

// Active statuses block a second request for the same user and product.
func (s CertificateStatus) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusIssued
}

// ActiveStatuses lists the statuses counted by duplicate detection.
var ActiveStatuses = []CertificateStatus{StatusPending, StatusApproved, StatusIssued}

type RequestType string

const (
	RequestTypeStudent RequestType = "student"
	RequestTypeVendor  RequestType = "vendor"
)

// CertificateRequest is one requested certificate, from submission to issuance.
type CertificateRequest struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	CertificateID   string            `json:"certificate_id" gorm:"size:50;uniqueIndex;not null"`
	UserID          uint              `json:"user_id" gorm:"not null;index:idx_user_product_status,priority:1"`
	RequestType     RequestType       `json:"request_type" gorm:"size:20;not null;default:'student';index"`
	FirstName       string            `json:"first_name" gorm:"size:100;not null"`
	LastName        string            `json:"last_name" gorm:"size:100;not null"`
	Email           string            `json:"email" gorm:"size:100;not null;index"`
	Phone           string            `json:"phone" gorm:"size:20;not null"`
	ProductID       uint              `json:"product_id" gorm:"not null;index:idx_user_product_status,priority:2"`
	ProductName     string            `json:"product_name" gorm:"size:255;not null"`
	ProjectLink     *string           `json:"project_link" gorm:"size:500"`
	InstructorName  *string           `json:"instructor_name" gorm:"size:200"`
	VendorID        *uint             `json:"vendor_id"`
	VendorNotes     *string           `json:"vendor_notes" gorm:"type:text"`
	CompletionDate  *datatypes.Date   `json:"completion_date"`
	Status          CertificateStatus `json:"status" gorm:"size:20;not null;default:'pending';index:idx_user_product_status,priority:3"`
	RejectionReason *string           `json:"rejection_reason" gorm:"type:text"`
	RequestedAt     time.Time         `json:"requested_at" gorm:"not null"`
	ProcessedAt     *time.Time        `json:"processed_at"`
	ProcessedBy     *uint             `json:"processed_by"`
	CertificateFile *string           `json:"certificate_file" gorm:"size:500"`

	// ActiveKey is "{user}:{product}" while Status is active and NULL otherwise.
	// The unique index makes the one-active-request rule hold at the storage layer.
	ActiveKey *string `json:"-" gorm:"size:64;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName is the student name printed on the certificate.
func (r *CertificateRequest) FullName() string {
	return r.FirstName + " " + r.LastName
}

// BeforeSave keeps ActiveKey in sync with Status for Create and Save.
func (r *CertificateRequest) BeforeSave(tx *gorm.DB) error {
	if r.Status.Active() {
		key := fmt.Sprintf("%d:%d", r.UserID, r.ProductID)
		r.ActiveKey = &key
	} else {
		r.ActiveKey = nil
	}
	return nil
}
