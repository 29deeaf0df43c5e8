package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/gofiber/fiber/v3"
)

type errorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// statusFor maps service errors to HTTP statuses. Token and login failures
// share one generic message so the response never says which check failed.
func statusFor(err error) (int, errorResponse) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, errorResponse{Detail: ve.Message, Field: ve.Field}
	case errors.Is(err, common.ErrUsernameTaken):
		return fiber.StatusBadRequest, errorResponse{Detail: common.ErrUsernameTaken.Error(), Field: "username"}
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized, errorResponse{Detail: "Authentication was unsuccessful."}
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrWrongAudience),
		errors.Is(err, common.ErrMalformedToken):
		return fiber.StatusUnauthorized, errorResponse{Detail: "Could not validate token credentials."}
	case errors.Is(err, common.ErrInvalidKey):
		return fiber.StatusBadRequest, errorResponse{Detail: "Invalid emoticon key.", Field: "key"}
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return fiber.StatusBadGateway, errorResponse{Detail: "Emoticon service unavailable."}
	case errors.Is(err, common.ErrStorageWriteFailed):
		return fiber.StatusInternalServerError, errorResponse{Detail: "Could not store emoticon."}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, errorResponse{Detail: fe.Message}
	}
	return fiber.StatusInternalServerError, errorResponse{Detail: "Internal server error."}
}

func (h *handlers) errorHandler(c fiber.Ctx, err error) error {
	status, body := statusFor(err)
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, common.BearerScheme)
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.Error(c.Context(), "request failed",
			"request_id", RequestID(c),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(body)
}
