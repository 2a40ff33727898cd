package http

import (
	"encoding/json"
	"strings"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"

	"vitrine/internal/auth"
	"vitrine/internal/http/middleware"
	"vitrine/internal/users"
)

const minPasswordLength = 8

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenCreateAction exchanges an email and password for a bearer token.
func TokenCreateAction(tokens *auth.Tokens) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var req credentials
		if err := json.Unmarshal(ctx.Body(), &req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		email := strings.TrimSpace(strings.ToLower(req.Email))
		if email == "" || req.Password == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
		}

		user, ok := users.Authenticate(ctx.DB(), email, req.Password)
		if !ok {
			ctx.Logger.Warn("Failed login attempt", slog.String("email", email), slog.String("ip", ctx.IP()))
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}

		token, expiresAt, err := tokens.Issue(user.ID, user.Email)
		if err != nil {
			ctx.Logger.Error("Failed to issue token", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
		}

		ctx.Logger.Info("Token issued", slog.Uint64("user_id", uint64(user.ID)))
		return ctx.JSON(fiber.Map{
			"token":      token,
			"token_type": "Bearer",
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// AccountChangePasswordAction changes the password of the authenticated user.
func AccountChangePasswordAction(ctx *cartridge.Context) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID, _ := ctx.Locals(middleware.UserIDKey).(uint)

	if strings.TrimSpace(req.CurrentPassword) == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Current password is required"})
	}
	if len(req.NewPassword) < minPasswordLength {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "New password must be at least 8 characters long"})
	}

	db := ctx.DB()

	user, err := users.FindByID(db, userID)
	if err != nil {
		ctx.Logger.Error("Failed to find user for password change", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if !crypto.VerifyPassword(user.EncryptedPassword, req.CurrentPassword) {
		ctx.Logger.Warn("Invalid current password provided during password change", slog.Uint64("user_id", uint64(userID)))
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Current password is incorrect"})
	}

	if err := users.ChangePassword(db, user.Email, req.NewPassword); err != nil {
		ctx.Logger.Error("Failed to change password", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to change password"})
	}

	ctx.Logger.Info("Password changed successfully", slog.Uint64("user_id", uint64(userID)))
	return ctx.JSON(fiber.Map{"success": true})
}
