package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers/views"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	authutil "github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// TokenRevoker keeps the token blacklist
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, userID uint, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	RevokeAllUserTokens(ctx context.Context, userID uint) error
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts             *services.AccountService
	jwtManager           *authutil.JWTManager
	tokens               TokenRevoker
	bruteForceProtection *middleware.BruteForceProtection
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *services.AccountService, jwtManager *authutil.JWTManager, tokens TokenRevoker, bruteForceProtection *middleware.BruteForceProtection, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:             accounts,
		jwtManager:           jwtManager,
		tokens:               tokens,
		bruteForceProtection: bruteForceProtection,
		log:                  log,
	}
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User         views.UserView `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"` // in seconds
}

// Register handles user registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.accounts.Register(c.UserContext(), req)
	if err != nil {
		return response.ServiceError(c, err)
	}

	res, err := h.issueTokens(user)
	if err != nil {
		h.log.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.Created(c, res)
}

func (h *AuthHandler) issueTokens(user *model.User) (*AuthResponse, error) {
	pair, err := h.jwtManager.GenerateTokenPair(authutil.Subject{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:         views.NewUserView(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(time.Until(pair.AccessExpiresAt).Seconds()),
	}, nil
}

func activityContext(c *fiber.Ctx) services.ActivityContext {
	return services.ActivityContext{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
