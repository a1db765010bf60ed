package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// RevocationChecker reports whether a token id has been revoked
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// UserLoader loads the user a token was issued to
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	revoked    RevocationChecker
	users      UserLoader
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, revoked RevocationChecker, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		revoked:    revoked,
		users:      users,
	}
}

var (
	errMissingToken  = errors.New("missing authorization token")
	errBadAuthFormat = errors.New("invalid authorization format")
	errRevokedToken  = errors.New("token has been revoked")
	errStaleToken    = errors.New("token has been invalidated")
	errUnknownUser   = errors.New("user not found")
)

var unauthorizedMessages = map[error]string{
	errMissingToken:       "Missing authorization token",
	errBadAuthFormat:      "Invalid authorization format",
	errRevokedToken:       "Token has been revoked",
	errStaleToken:         "Token has been invalidated",
	errUnknownUser:        "User not found",
	auth.ErrExpiredToken:  "Token has expired",
	auth.ErrInvalidToken:  "Invalid token",
	auth.ErrInvalidClaims: "Invalid token",
}

// authenticate resolves the bearer token of the request to a user
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, errMissingToken
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, errBadAuthFormat
	}

	claims, err := m.jwtManager.ValidateToken(parts[1], auth.TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}

	isRevoked, err := m.revoked.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if isRevoked {
		return nil, nil, errRevokedToken
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return nil, nil, errUnknownUser
		}
		return nil, nil, err
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, errStaleToken
	}
	return claims, user, nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			if msg, ok := unauthorizedMessages[err]; ok {
				return response.Unauthorized(c, msg)
			}
			return response.InternalServerError(c, "Failed to verify token")
		}

		SetAuthLocals(c, claims, user)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, user, err := m.authenticate(c); err == nil {
			SetAuthLocals(c, claims, user)
		}
		return c.Next()
	}
}

// RequireRole is middleware that requires one of the given roles. It must
// run after Required.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if !ok {
			return response.Unauthorized(c, "Authentication required")
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Insufficient permissions")
	}
}

// SetAuthLocals stores the authenticated user in the request context
func SetAuthLocals(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", user.ID)
	c.Locals("user_role", user.Role)
	c.Locals("user", user)
	if claims != nil {
		c.Locals("claims", claims)
		c.Locals("token_jti", claims.ID)
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok && id != 0
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok && claims != nil
}
