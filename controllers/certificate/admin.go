package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"lmscert/middleware"
	"lmscert/services"
	certificateValidator "lmscert/validators/certificate"
)

const (
	verificationLogLimit = 100
	maskedSecret         = "********"
)

func (h *Handler) ListCertificates(c *fiber.Ctx) error {
	status := c.Locals("listStatus").(string)
	limit := c.Locals("listLimit").(int)

	reqs, err := h.Issuance.List(c.UserContext(), status, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate requests fetched successfully!", reqs)
}

func (h *Handler) ListFailed(c *fiber.Ctx) error {
	reqs, err := h.Issuance.ListFailed(c.UserContext(), c.Locals("listLimit").(int))
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Failed certificates fetched successfully!", reqs)
}

func (h *Handler) ListIssued(c *fiber.Ctx) error {
	reqs, err := h.Issuance.ListIssued(c.UserContext(), c.Locals("listLimit").(int))
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Issued certificates fetched successfully!", reqs)
}

func (h *Handler) GetCertificate(c *fiber.Ctx) error {
	req, err := h.Issuance.Get(c.UserContext(), c.Locals("requestID").(uint))
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate request fetched successfully!", req)
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	in := c.Locals("validatedApproval").(*services.ApproveInput)
	in.RequestID = c.Locals("requestID").(uint)
	in.AdminID = adminID(c)

	outcome, err := h.Issuance.Approve(c.UserContext(), *in)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.issued(c, outcome, "Certificate approved and sent successfully!")
}

func (h *Handler) Regenerate(c *fiber.Ctx) error {
	date := c.Locals("validatedCompletionDate").(*time.Time)

	outcome, err := h.Issuance.Regenerate(c.UserContext(), c.Locals("requestID").(uint), adminID(c), date)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.issued(c, outcome, "Certificate regenerated and sent successfully!")
}

func (h *Handler) Resend(c *fiber.Ctx) error {
	outcome, err := h.Issuance.Resend(c.UserContext(), c.Locals("requestID").(uint), adminID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	if !outcome.Delivered {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to send email. Please check email configuration.", outcome)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate email resent successfully!", outcome)
}

func (h *Handler) Reject(c *fiber.Ctx) error {
	reason := c.Locals("validatedReason").(string)

	outcome, err := h.Issuance.Reject(c.UserContext(), c.Locals("requestID").(uint), adminID(c), reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate request rejected.", outcome)
}

func (h *Handler) Bulk(c *fiber.Ctx) error {
	in := c.Locals("validatedBulk").(*certificateValidator.BulkAction)

	var result services.BulkResult
	if in.Action == "approve" {
		result = h.Issuance.BulkApprove(c.UserContext(), in.IDs, adminID(c))
	} else {
		result = h.Issuance.BulkReject(c.UserContext(), in.IDs, adminID(c))
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Bulk action completed.", result)
}

func (h *Handler) VerificationLogs(c *fiber.Ctx) error {
	logs, err := h.Verification.RecentLogs(c.UserContext(), verificationLogLimit)
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Verification logs fetched successfully!", logs)
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	all, err := h.Settings.All(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	// The Turnstile secret never leaves the server.
	if all[services.SettingTurnstileSecretKey] != "" {
		all[services.SettingTurnstileSecretKey] = maskedSecret
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Settings fetched successfully!", all)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	values := c.Locals("validatedSettings").(map[string]string)
	if values[services.SettingTurnstileSecretKey] == maskedSecret {
		delete(values, services.SettingTurnstileSecretKey)
	}

	if err := h.Settings.Update(c.UserContext(), values); err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Settings saved successfully!", nil)
}

// issued reports success, or success with a warning when the email did not go out.
func (h *Handler) issued(c *fiber.Ctx, outcome *services.IssueOutcome, msg string) error {
	if !outcome.Delivered {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate generated but email failed. Check failed certificates to resend.", outcome)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, msg, outcome)
}
