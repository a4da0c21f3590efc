package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"lmscert/lifecycle"
	"lmscert/middleware"
	"lmscert/services"
)

// Handler exposes the certificate services over HTTP.
type Handler struct {
	Submissions  *services.SubmissionService
	Issuance     *services.IssuanceService
	Verification *services.VerificationService
	Settings     *services.Settings
	Log          logrus.FieldLogger
}

// respondError maps service errors onto the JSON envelope.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var (
		verr *services.ValidationError
		eerr *services.EligibilityError
		gerr *services.GenerationError
	)

	switch {
	case errors.As(err, &verr):
		return middleware.ValidationErrorResponse(c, verr.Fields)
	case errors.As(err, &eerr):
		status := fiber.StatusBadRequest
		switch {
		case errors.Is(eerr, services.ErrDuplicateRequest):
			status = fiber.StatusConflict
		case errors.Is(eerr, services.ErrNotPurchased):
			status = fiber.StatusForbidden
		}
		return middleware.JsonResponse(c, status, false, eerr.Error(), nil)
	case errors.As(err, &gerr):
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate certificate. Check failed certificates to regenerate.", fiber.Map{
			"error": gerr.Err.Error(),
		})
	case errors.Is(err, services.ErrSecurityCheck):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Security verification failed. Please try again.", nil)
	case errors.Is(err, services.ErrNotVendor):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only vendors can submit certificate requests!", nil)
	case errors.Is(err, services.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate request not found!", nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, services.ErrNoArtifact):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Certificate file not found. Please regenerate.", nil)
	}

	h.Log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong. Please try again later.", nil)
}

func adminID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}
