package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/services"
	authutil "github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest optionally revokes the refresh token too, or every session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	AllDevices   bool   `json:"all_devices"`
}

// RefreshToken rotates a refresh token into a new token pair
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	ctx := c.UserContext()

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken, authutil.TokenTypeRefresh)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	isRevoked, err := h.tokens.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	user, err := h.accounts.Get(ctx, claims.UserID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return response.Unauthorized(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load user")
	}
	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	res, err := h.issueTokens(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	// The old refresh token would still expire on its own
	if err := h.tokens.RevokeToken(ctx, claims.ID, user.ID, expiry(claims), "token_refresh"); err != nil {
		h.log.Warn("Failed to revoke rotated refresh token", "user_id", user.ID, "error", err)
	}

	return response.Success(c, res)
}

// Logout revokes the access token used for the request
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	ctx := c.UserContext()

	if req.AllDevices {
		if err := h.tokens.RevokeAllUserTokens(ctx, claims.UserID); err != nil {
			return response.InternalServerError(c, "Failed to log out")
		}
	} else {
		if err := h.tokens.RevokeToken(ctx, claims.ID, claims.UserID, expiry(claims), "logout"); err != nil {
			return response.InternalServerError(c, "Failed to log out")
		}
		if req.RefreshToken != "" {
			refresh, err := h.jwtManager.ValidateToken(req.RefreshToken, authutil.TokenTypeRefresh)
			if err == nil && refresh.UserID == claims.UserID {
				if err := h.tokens.RevokeToken(ctx, refresh.ID, refresh.UserID, expiry(refresh), "logout"); err != nil {
					h.log.Warn("Failed to revoke refresh token", "user_id", claims.UserID, "error", err)
				}
			}
		}
	}

	h.accounts.RecordLogout(ctx, claims.UserID, activityContext(c))
	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}

func expiry(claims *authutil.Claims) time.Time {
	if claims.ExpiresAt == nil {
		return time.Now().Add(24 * time.Hour)
	}
	return claims.ExpiresAt.Time
}
