// Package lifecycle holds the certificate request state machine.
// Transitions are pure: callers persist the returned status themselves.
package lifecycle

import (
	"errors"
	"fmt"

	"lmscert/models"
)

// Action is an event applied to a certificate request.
type Action string

const (
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRegenerate       Action = "regenerate"
	ActionGenerated        Action = "generated"
	ActionGenerationFailed Action = "generation_failed"
	ActionDeliveryFailed   Action = "delivery_failed"
	ActionResend           Action = "resend"
)

// ErrInvalidTransition is returned for any (state, action) pair not in the table.
var ErrInvalidTransition = errors.New("invalid status transition")

type edge struct {
	from   models.CertificateStatus
	action Action
}

var transitions = map[edge]models.CertificateStatus{
	{models.StatusPending, ActionApprove}: models.StatusApproved,
	{models.StatusPending, ActionReject}:  models.StatusRejected,

	// approved is only left behind when a process died mid-generation
	{models.StatusGenerationFailed, ActionRegenerate}: models.StatusApproved,
	{models.StatusApproved, ActionRegenerate}:         models.StatusApproved,

	{models.StatusApproved, ActionGenerated}:        models.StatusIssued,
	{models.StatusApproved, ActionGenerationFailed}: models.StatusGenerationFailed,

	{models.StatusIssued, ActionDeliveryFailed}:      models.StatusEmailFailed,
	{models.StatusEmailFailed, ActionDeliveryFailed}: models.StatusEmailFailed,
	{models.StatusEmailFailed, ActionResend}:         models.StatusIssued,
}

// Next returns the status reached by applying action to from.
func Next(from models.CertificateStatus, action Action) (models.CertificateStatus, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s request", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// Can reports whether action is allowed from the given status.
func Can(from models.CertificateStatus, action Action) bool {
	_, ok := transitions[edge{from, action}]
	return ok
}

// InitialStatus is the status of every newly submitted request.
func InitialStatus() models.CertificateStatus {
	return models.StatusPending
}

// Failed reports whether the status is one of the recoverable failure states.
func Failed(s models.CertificateStatus) bool {
	return s == models.StatusGenerationFailed || s == models.StatusEmailFailed
}
