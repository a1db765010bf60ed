package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers/views"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// VerifyRequest sets a user's verification flag
type VerifyRequest struct {
	Verified *bool `json:"verified"`
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, views.NewUserView(user))
}

// UpdateProfile updates the profile and preference fields of the current user
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req services.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Profile updated successfully", views.NewUserView(user))
}

// VerifyUser handles PUT /api/v1/users/:id/verify
func (h *AuthHandler) VerifyUser(c *fiber.Ctx) error {
	actor, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	req := VerifyRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	user, err := h.accounts.SetEmailVerified(c.UserContext(), actor, uint(userID), verified)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, views.NewUserView(user))
}
