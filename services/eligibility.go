package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// Eligibility is the outcome of an eligibility check. Reason is nil when Eligible.
type Eligibility struct {
	Eligible     bool
	Reason       *EligibilityError
	PurchaseDate *time.Time
}

// CheckOptions tunes the rules for the vendor submission path.
type CheckOptions struct {
	SkipWaitWindow bool
}

// EligibilityChecker decides whether a user may request a certificate for a product.
// It has no side effects.
type EligibilityChecker struct {
	purchases PurchaseOracle
	clock     func() time.Time
}

func NewEligibilityChecker(purchases PurchaseOracle, clock func() time.Time) *EligibilityChecker {
	if clock == nil {
		clock = time.Now
	}
	return &EligibilityChecker{purchases: purchases, clock: clock}
}

// Check applies the duplicate, purchase and wait-window rules in that order.
// The returned error is reserved for storage failures.
func (c *EligibilityChecker) Check(ctx context.Context, repo Repository, userID, productID uint, opts CheckOptions) (Eligibility, error) {
	existing, err := repo.Requests().FindActive(ctx, userID, productID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("check duplicate request: %w", err)
	}
	if existing != nil {
		return Eligibility{Reason: duplicateError(string(existing.Status), existing.CertificateID)}, nil
	}

	purchase, err := c.purchases.HasPurchased(ctx, userID, productID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("check purchase: %w", err)
	}
	if !purchase.Purchased {
		return Eligibility{Reason: &EligibilityError{Err: ErrNotPurchased, Message: "You have not purchased this course"}}, nil
	}
	purchasedAt := purchase.PurchaseDate

	if !opts.SkipWaitWindow {
		minDays := NewSettings(repo.Settings(), nil).Int(ctx, SettingMinDaysAfterBuying, 3)
		if TooSoon(purchasedAt, c.clock(), minDays) {
			return Eligibility{
				PurchaseDate: &purchasedAt,
				Reason: &EligibilityError{
					Err:     ErrTooSoon,
					Message: fmt.Sprintf("You can request a certificate %d days after purchase. Please try again later.", minDays),
				},
			}, nil
		}
	}

	return Eligibility{Eligible: true, PurchaseDate: &purchasedAt}, nil
}

// TooSoon compares calendar dates only: a purchase is too recent when its date is
// after today minus minDays.
func TooSoon(purchasedAt, today time.Time, minDays int) bool {
	purchaseDay := now.With(purchasedAt).BeginningOfDay()
	cutoff := now.With(today).BeginningOfDay().AddDate(0, 0, -minDays)
	return purchaseDay.After(cutoff)
}

func duplicateError(status, certificateID string) *EligibilityError {
	state := "already issued"
	if status == "pending" {
		state = "pending review"
	}
	return &EligibilityError{
		Err:     ErrDuplicateRequest,
		Message: fmt.Sprintf("You already have a certificate request for this course that is %s (certificate %s)", state, certificateID),
	}
}
