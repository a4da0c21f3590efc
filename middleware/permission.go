package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"lmscert/models"
	"lmscert/services"
)

// UserFinder loads the current account so roles are checked against the database
// rather than the token.
type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

// RequireRole returns a middleware that lets through only users holding one of roles.
func RequireRole(users UserFinder, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get user ID from context (set by JWTMiddleware)
		userID, ok := UserID(c)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}

		user, err := users.FindUser(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		for _, role := range roles {
			if user.Role == role {
				c.Locals("role", user.Role)
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
}
