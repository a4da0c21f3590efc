package controllers

import (
	"github.com/gofiber/fiber/v2"

	"lmscert/middleware"
	"lmscert/services"
)

// RequestCertificate submits a student's own certificate request.
func (h *Handler) RequestCertificate(c *fiber.Ctx) error {
	in := c.Locals("validatedStudentRequest").(*services.StudentSubmission)

	req, err := h.Submissions.SubmitStudent(c.UserContext(), *in)
	if err != nil {
		return h.respondError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate request submitted successfully! You will receive an email confirmation.", fiber.Map{
		"certificate_id": req.CertificateID,
		"request":        req,
	})
}

// EligibleProducts lists the caller's courses that can be requested now.
func (h *Handler) EligibleProducts(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	products, err := h.Submissions.EligibleProducts(c.UserContext(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Eligible courses fetched successfully!", products)
}

// MyCertificates lists every request the caller has made.
func (h *Handler) MyCertificates(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqs, err := h.Submissions.MyRequests(c.UserContext(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate requests fetched successfully!", reqs)
}

// VendorRequestCertificate submits a request on behalf of a registered student.
func (h *Handler) VendorRequestCertificate(c *fiber.Ctx) error {
	in := c.Locals("validatedVendorRequest").(*services.VendorSubmission)

	req, err := h.Submissions.SubmitVendor(c.UserContext(), *in)
	if err != nil {
		return h.respondError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate request submitted successfully! Admin will review it.", fiber.Map{
		"certificate_id": req.CertificateID,
		"request":        req,
	})
}

// VerifyCertificate is the public lookup.
func (h *Handler) VerifyCertificate(c *fiber.Ctx) error {
	in := c.Locals("validatedVerify").(*services.VerifyInput)

	result, err := h.Verification.Verify(c.UserContext(), *in)
	if err != nil {
		return h.respondError(c, err)
	}

	if !result.Found {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No certificate found matching your search.", result)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verified!", result)
}
