package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vitrine/internal/auth"
	"vitrine/internal/users"
)

// UserIDKey is the fiber Locals key holding the authenticated user ID.
const UserIDKey = "user_id"

// BearerAuth validates the admin token and stores the user ID in the request context.
// Expects: Authorization: Bearer <token>
func BearerAuth(tokens *auth.Tokens, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			logger.Debug("Rejected bearer token", slog.Any("error", err), slog.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		userID, _ := claims.UserID()
		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// RequireRole rejects callers whose user does not hold role. It must run after BearerAuth.
func RequireRole(db *gorm.DB, role string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(UserIDKey).(uint)
		if !ok || userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		allowed, err := users.HasRole(db, userID, role)
		if err != nil {
			logger.Error("Failed to check user role",
				slog.Any("error", err),
				slog.Uint64("user_id", uint64(userID)),
				slog.String("role", role))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server error",
			})
		}
		if !allowed {
			logger.Warn("Role check failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("role", role),
				slog.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: " + role + " access required",
			})
		}

		return c.Next()
	}
}
