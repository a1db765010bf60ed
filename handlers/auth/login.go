package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	ctx := c.UserContext()
	ip := c.IP()

	user, err := h.accounts.Authenticate(ctx, req.Email, req.Password, activityContext(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.bruteForceProtection != nil {
				_ = h.bruteForceProtection.RecordFailedAttempt(ctx, ip)
			}
			return response.Unauthorized(c, "Invalid email or password")
		}
		h.log.Error("Login failed", "error", err)
		return response.InternalServerError(c, "Failed to log in")
	}

	if h.bruteForceProtection != nil {
		_ = h.bruteForceProtection.RecordSuccessfulAttempt(ctx, ip)
	}

	res, err := h.issueTokens(user)
	if err != nil {
		h.log.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.Success(c, res)
}
