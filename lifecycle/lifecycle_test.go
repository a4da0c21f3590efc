package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmscert/models"
)

func TestNext_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from   models.CertificateStatus
		action Action
		want   models.CertificateStatus
	}{
		{models.StatusPending, ActionApprove, models.StatusApproved},
		{models.StatusPending, ActionReject, models.StatusRejected},
		{models.StatusApproved, ActionGenerated, models.StatusIssued},
		{models.StatusApproved, ActionGenerationFailed, models.StatusGenerationFailed},
		{models.StatusGenerationFailed, ActionRegenerate, models.StatusApproved},
		{models.StatusApproved, ActionRegenerate, models.StatusApproved},
		{models.StatusIssued, ActionDeliveryFailed, models.StatusEmailFailed},
		{models.StatusEmailFailed, ActionResend, models.StatusIssued},
		{models.StatusEmailFailed, ActionDeliveryFailed, models.StatusEmailFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, Can(tt.from, tt.action))
		})
	}
}

func TestNext_RejectedTransitions(t *testing.T) {
	tests := []struct {
		from   models.CertificateStatus
		action Action
	}{
		{models.StatusIssued, ActionReject},
		{models.StatusIssued, ActionApprove},
		{models.StatusRejected, ActionApprove},
		{models.StatusRejected, ActionRegenerate},
		{models.StatusRejected, ActionResend},
		{models.StatusPending, ActionResend},
		{models.StatusPending, ActionRegenerate},
		{models.StatusIssued, ActionResend},
		{models.StatusEmailFailed, ActionRegenerate},
		{models.StatusGenerationFailed, ActionReject},
		{models.StatusGenerationFailed, ActionResend},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, got)
			assert.False(t, Can(tt.from, tt.action))
		})
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, models.StatusPending, InitialStatus())
	assert.True(t, InitialStatus().Active())
}

func TestFailed(t *testing.T) {
	assert.True(t, Failed(models.StatusGenerationFailed))
	assert.True(t, Failed(models.StatusEmailFailed))
	assert.False(t, Failed(models.StatusIssued))
	assert.False(t, Failed(models.StatusRejected))
}
