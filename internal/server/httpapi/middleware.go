package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/dmitrijs2005/emoticons/internal/server/models"
	"github.com/gofiber/fiber/v3"
)

// requireUser resolves the bearer token to a user and stores it in Locals.
// Any failure ends the request with 401.
func requireUser(users UserService) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))

		user, err := users.CurrentUser(c.Context(), token)
		if err != nil {
			return err
		}

		c.Locals(contextKeyUser, user)
		return c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively; anything else yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user stored by requireUser.
func CurrentUser(c fiber.Ctx) (*models.User, bool) {
	if value := c.Locals(contextKeyUser); value != nil {
		if user, ok := value.(*models.User); ok {
			return user, true
		}
	}
	return nil, false
}
