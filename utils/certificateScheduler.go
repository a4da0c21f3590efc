package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lmscert/services"
)

// SchedulerAdminID is recorded as processed_by for actions taken by the scheduler.
const SchedulerAdminID = 0

// resendBatch caps how many email_failed certificates one run retries.
const resendBatch = 50

// FailedResender is the part of the issuance service the scheduler drives.
type FailedResender interface {
	ResendFailed(ctx context.Context, adminID uint, limit int) (services.BulkResult, error)
}

// StartResendScheduler retries email_failed certificates on the given cron spec.
// An empty spec leaves the job disabled and returns nil.
func StartResendScheduler(spec string, resender FailedResender, timeout time.Duration, log logrus.FieldLogger) (*cron.Cron, error) {
	if spec == "" {
		log.Info("[RESEND-SCHEDULER] disabled, RESEND_SCHEDULE is empty")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		RunResendFailed(context.Background(), resender, timeout, log)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.WithField("schedule", spec).Info("[RESEND-SCHEDULER] started")
	return c, nil
}

// RunResendFailed performs one resend pass and logs its summary.
func RunResendFailed(ctx context.Context, resender FailedResender, timeout time.Duration, log logrus.FieldLogger) services.BulkResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := resender.ResendFailed(ctx, SchedulerAdminID, resendBatch)
	if err != nil {
		log.WithError(err).Error("[RESEND-SCHEDULER] could not list failed certificates")
		return result
	}

	log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"failed":    result.Failed,
	}).Info("[RESEND-SCHEDULER] resend pass finished")
	return result
}
