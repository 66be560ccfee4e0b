package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"alfredoptarigan/resume-screening/internal/apperrors"
)

const (
	LocalUserID = "userID"
	LocalRole   = "role"

	RoleEmployer = "employer"
)

// Claims are the token claims the API relies on. Subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret string
	Issuer string
}

// RequireAuth validates an HS256 bearer token and stores the caller in fiber locals.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return apperrors.NewUnauthorizedError("missing bearer token")
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return apperrors.NewUnauthorizedError("token expired")
			}
			return apperrors.NewUnauthorizedError("invalid token")
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return apperrors.NewUnauthorizedError("invalid token subject")
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole rejects authenticated callers whose role differs.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r, _ := c.Locals(LocalRole).(string); r != role {
			return apperrors.NewForbiddenError("insufficient permissions")
		}
		return c.Next()
	}
}

// UserID returns the caller stored by RequireAuth.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.NewUnauthorizedError("authentication required")
	}
	return id, nil
}
