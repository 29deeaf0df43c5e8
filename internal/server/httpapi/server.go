// Package httpapi exposes the user and emoticon operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/logging"
	"github.com/dmitrijs2005/emoticons/internal/server/emoticons"
	"github.com/dmitrijs2005/emoticons/internal/server/models"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
)

// UserService is the part of services.UserService the handlers need.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	IssueToken(user *models.User) (string, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// Resolver turns an emoticon key into the location of its stored copy.
type Resolver interface {
	Resolve(ctx context.Context, key string) (emoticons.Reference, error)
}

// Options controls how the Fiber application is assembled.
type Options struct {
	Users     UserService
	Emoticons Resolver
	Logger    logging.Logger

	// MediaDir is served under PublicPrefix when non-empty.
	MediaDir     string
	PublicPrefix string

	FetchRequiresAuth bool
}

const (
	contextKeyRequestID = "_emoticons_request_id"
	contextKeyUser      = "_emoticons_user"
)

// NewApp builds the Fiber application with request ids, panic recovery and
// JSON error responses.
func NewApp(opts Options) (*fiber.App, error) {
	if opts.Users == nil {
		return nil, errors.New("user service is required")
	}
	if opts.Emoticons == nil {
		return nil, errors.New("emoticon resolver is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	h := &handlers{
		users:     opts.Users,
		emoticons: opts.Emoticons,
		logger:    opts.Logger.With("module", "http"),
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  h.errorHandler,
	})

	app.Use(requestContextMiddleware(h.logger))
	app.Use(recover.New())

	auth := requireUser(opts.Users)

	users := app.Group("/users")
	users.Post("/register_user", h.register)
	// also matches /users/login/token/ since StrictRouting is off
	users.Post("/login/token", h.login)
	users.Get("/me", auth, h.me)

	if opts.FetchRequiresAuth {
		app.Get("/fetch_emoticon/:key", auth, h.fetchEmoticon)
	} else {
		app.Get("/fetch_emoticon/:key", h.fetchEmoticon)
	}

	if opts.MediaDir != "" {
		prefix := "/" + strings.Trim(opts.PublicPrefix, "/")
		app.Use(prefix, static.New(opts.MediaDir))
	}

	return app, nil
}

// requestContextMiddleware tags every request with an id and writes one
// access log line after the handler chain has run.
func requestContextMiddleware(logger logging.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the error handler render the response before logging
			// the final status.
			if hErr := c.App().Config().ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info(c.Context(), "request",
			"request_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"elapsed", time.Since(start).String(),
		)
		return nil
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
