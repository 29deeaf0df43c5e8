package httpapi

import (
	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/dmitrijs2005/emoticons/internal/logging"
	"github.com/dmitrijs2005/emoticons/internal/server/models"
	"github.com/gofiber/fiber/v3"
)

type handlers struct {
	users     UserService
	emoticons Resolver
	logger    logging.Logger
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerRequest accepts both a flat body and one wrapped in "new_user".
type registerRequest struct {
	credentials
	NewUser *credentials `json:"new_user"`
}

type accessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userPublic struct {
	ID          int64        `json:"id"`
	Username    string       `json:"username"`
	AccessToken *accessToken `json:"access_token,omitempty"`
}

func (h *handlers) register(c fiber.Ctx) error {
	var req registerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return common.NewValidationError("body", "Request body must be a JSON object.")
	}
	creds := req.credentials
	if req.NewUser != nil {
		creds = *req.NewUser
	}

	user, err := h.users.Register(c.Context(), creds.Username, creds.Password)
	if err != nil {
		return err
	}

	token, err := h.users.IssueToken(user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(userPublic{
		ID:          user.ID,
		Username:    user.UserName,
		AccessToken: &accessToken{AccessToken: token, TokenType: common.TokenType},
	})
}

func (h *handlers) login(c fiber.Ctx) error {
	user, err := h.users.Authenticate(c.Context(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		return err
	}

	token, err := h.users.IssueToken(user)
	if err != nil {
		return err
	}

	return c.JSON(accessToken{AccessToken: token, TokenType: common.TokenType})
}

func (h *handlers) me(c fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return common.ErrUnauthenticated
	}
	return c.JSON(publicUser(user))
}

func (h *handlers) fetchEmoticon(c fiber.Ctx) error {
	ref, err := h.emoticons.Resolve(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.Redirect().Status(fiber.StatusTemporaryRedirect).To(ref.Location)
}

func publicUser(u *models.User) userPublic {
	return userPublic{ID: u.ID, Username: u.UserName}
}
