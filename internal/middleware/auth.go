package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
)

const (
	userContextKey  = "currentUser"
	tokenContextKey = "currentToken"
	adminContextKey = "currentAdmin"
)

// AuthMiddleware resolves a bearer token to an active user record. Tokens
// must carry a valid signature and expiry, must not appear in the session
// blacklist, and the user's account must still be active.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}

		user, err := resolveUser(db, cfg, token)
		if err != nil {
			return err
		}

		c.Locals(userContextKey, user)
		c.Locals(tokenContextKey, token)
		return c.Next()
	}
}

// AdminMiddleware behaves like AuthMiddleware and additionally requires an
// admin_users record for the resolved user.
func AdminMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}

		user, err := resolveUser(db, cfg, token)
		if err != nil {
			return err
		}

		var admin models.AdminUser
		if err := db.Where("user_id = ?", user.ID).First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusForbidden, "admin access required")
			}
			return err
		}

		c.Locals(userContextKey, user)
		c.Locals(tokenContextKey, token)
		c.Locals(adminContextKey, &admin)
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves the caller when a valid token is present
// and continues unauthenticated otherwise.
func OptionalAuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return c.Next()
		}

		if user, err := resolveUser(db, cfg, token); err == nil {
			c.Locals(userContextKey, user)
			c.Locals(tokenContextKey, token)
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	return parts[1], nil
}

func resolveUser(db *gorm.DB, cfg *config.Config, token string) (*models.User, error) {
	userID, err := utils.ParseToken(cfg.JWTSecret, token)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}

	var blacklisted int64
	if err := db.Model(&models.UserSession{}).
		Where("token_hash = ? AND expires_at > ?", utils.HashToken(token), time.Now()).
		Count(&blacklisted).Error; err != nil {
		return nil, err
	}
	if blacklisted > 0 {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "token has been invalidated")
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "user not found")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "account is deactivated")
	}

	return &user, nil
}

// GetCurrentUser extracts the authenticated user from context.
func GetCurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(userContextKey).(*models.User)
	return user, ok
}

// GetCurrentToken extracts the raw bearer token from context.
func GetCurrentToken(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(tokenContextKey).(string)
	return token, ok
}

// GetCurrentAdmin extracts the admin record from context.
func GetCurrentAdmin(c *fiber.Ctx) (*models.AdminUser, bool) {
	admin, ok := c.Locals(adminContextKey).(*models.AdminUser)
	return admin, ok
}
