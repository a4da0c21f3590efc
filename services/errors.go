package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("certificate request not found")
	ErrDuplicateRequest = errors.New("an active certificate request already exists for this course")
	ErrNotPurchased     = errors.New("course has not been purchased")
	ErrTooSoon          = errors.New("certificate requested too soon after purchase")
	ErrSecurityCheck    = errors.New("security verification failed")
	ErrNotVendor        = errors.New("only vendors can submit certificate requests")
	ErrNoArtifact       = errors.New("no certificate file to send")

	// ErrConflict is returned by repositories when a unique index rejects a write.
	ErrConflict = errors.New("unique constraint violated")
)

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// EligibilityError wraps one of ErrDuplicateRequest, ErrNotPurchased or ErrTooSoon
// with a message suitable for the requester.
type EligibilityError struct {
	Err     error
	Message string
}

func (e *EligibilityError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *EligibilityError) Unwrap() error { return e.Err }

// GenerationError means the certificate document could not be rendered or stored.
// The request is left in generation_failed.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "certificate generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// DeliveryError means the issuance email could not be sent.
// The request is left in email_failed with its document intact.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "certificate email failed: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }
