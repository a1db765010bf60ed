package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/services"
)

// ServiceError writes the response matching a service layer error
func ServiceError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		notFoundErr   *services.NotFoundError
		dependencyErr *services.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) > 1 {
			return FieldErrors(c, validationErr.Field, validationErr.Fields)
		}
		return FieldError(c, validationErr.Field, validationErr.Message)
	case errors.As(err, &conflictErr):
		return Conflict(c, conflictErr.Message)
	case errors.As(err, &notFoundErr):
		return NotFound(c, notFoundErr.Error())
	case errors.Is(err, services.ErrNotFound):
		return NotFound(c, "")
	case errors.Is(err, services.ErrForbidden):
		return Forbidden(c, "You are not allowed to perform this action")
	case errors.As(err, &dependencyErr):
		if dependencyErr.Timeout {
			return GatewayTimeout(c, "AI summary timed out, please try again later")
		}
		return ServiceUnavailable(c, "AI summary is currently unavailable")
	default:
		return InternalServerError(c, "")
	}
}
