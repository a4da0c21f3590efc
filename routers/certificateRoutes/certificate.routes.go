package certificateRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "lmscert/controllers/certificate"
	"lmscert/middleware"
	"lmscert/models"
	validators "lmscert/validators/certificate"
)

// SetupCertificateRoutes sets up the student, vendor and public certificate routes
func SetupCertificateRoutes(app *fiber.App, h *controllers.Handler, users middleware.UserFinder, limiter *middleware.IPRateLimiter) {
	certGroup := app.Group("/certificate")

	certGroup.Post("/request", middleware.JWTMiddleware, validators.StudentRequest(), h.RequestCertificate)
	certGroup.Get("/eligible-products", middleware.JWTMiddleware, h.EligibleProducts)
	certGroup.Get("/mine", middleware.JWTMiddleware, h.MyCertificates)

	// Public verification, identity optional
	certGroup.Post("/verify", middleware.RateLimit(limiter), middleware.OptionalJWT, validators.Verify(), h.VerifyCertificate)

	vendorGroup := app.Group("/vendor/certificate")
	vendorGroup.Post("/request",
		middleware.JWTMiddleware,
		middleware.RequireRole(users, models.RoleVendor, models.RoleInstructor, models.RoleAdmin),
		validators.VendorRequest(),
		h.VendorRequestCertificate,
	)
}
