package certificateRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "lmscert/controllers/certificate"
	"lmscert/middleware"
	"lmscert/models"
	validators "lmscert/validators/certificate"
)

// SetupAdminRoutes sets up the certificate administration routes
func SetupAdminRoutes(app *fiber.App, h *controllers.Handler, users middleware.UserFinder) {
	adminGroup := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole(users, models.RoleAdmin))

	adminGroup.Get("/certificates", validators.ListQuery(), h.ListCertificates)
	adminGroup.Get("/certificates/failed", validators.ListQuery(), h.ListFailed)
	adminGroup.Get("/certificates/issued", validators.ListQuery(), h.ListIssued)
	adminGroup.Post("/certificates/bulk", validators.Bulk(), h.Bulk)

	adminGroup.Get("/certificate/:id", validators.RequestID(), h.GetCertificate)
	adminGroup.Post("/certificate/:id/approve", validators.RequestID(), validators.Approve(), h.Approve)
	adminGroup.Post("/certificate/:id/reject", validators.RequestID(), validators.Reject(), h.Reject)
	adminGroup.Post("/certificate/:id/regenerate", validators.RequestID(), validators.Regenerate(), h.Regenerate)
	adminGroup.Post("/certificate/:id/resend", validators.RequestID(), h.Resend)

	adminGroup.Get("/verifications", h.VerificationLogs)
	adminGroup.Get("/settings", h.GetSettings)
	adminGroup.Put("/settings", validators.Settings(), h.UpdateSettings)
}
