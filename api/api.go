package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	app := fiber.New(fiber.Config{
		AppName:      "course-review-api",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: ErrorHandler(log),
	})
	return &APIServer{
		app:           app,
		listenAddress: listenAddress,
		log:           log,
	}
}

// ErrorHandler renders errors that escaped a handler in the standard envelope
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusNotFound:
				return response.NotFound(c, "Route not found")
			case fiber.StatusMethodNotAllowed:
				return response.Error(c, fe.Code, fe.Message, "METHOD_NOT_ALLOWED")
			case fiber.StatusRequestEntityTooLarge:
				return response.Error(c, fe.Code, fe.Message, "PAYLOAD_TOO_LARGE")
			}
			if fe.Code < fiber.StatusInternalServerError {
				return response.Error(c, fe.Code, fe.Message, "BAD_REQUEST")
			}
		}

		log.Error("unhandled request error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return response.InternalServerError(c, "")
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
