// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token issuing and resolving
// the current user from a session token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/dmitrijs2005/emoticons/internal/logging"
	"github.com/dmitrijs2005/emoticons/internal/server/auth"
	"github.com/dmitrijs2005/emoticons/internal/server/models"
	"github.com/dmitrijs2005/emoticons/internal/server/repositories/repomanager"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 7
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// UserService provides authentication-related operations:
// - Register: create users
// - Authenticate: verify credentials
// - IssueToken / CurrentUser: mint and resolve session tokens
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	bcryptCost  int
	logger      logging.Logger
}

// NewUserService constructs a UserService using repositories and a token service.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, bcryptCost int, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		bcryptCost:  bcryptCost,
		logger:      logger.With("module", "users"),
	}
}

// FindByUsername returns the stored user or common.ErrorNotFound.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.GetUserByLogin(ctx, username)
}

// Register validates the input, hashes the password and creates the user.
// The lookup only gives a friendlier error; the unique constraint on
// users.username decides concurrent registrations.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	_, err := s.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		s.logger.Error(ctx, "user lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return nil, err
		}
		s.logger.Error(ctx, "user insert failed", "username", username, "error", err)
		return nil, fmt.Errorf("error creating user: %w", common.ErrorInternal)
	}

	s.logger.Info(ctx, "user registered", "username", username, "id", user.ID)
	return user, nil
}

// Authenticate returns the user when password matches. An unknown username
// and a wrong password both yield common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login failed: unknown user", "username", username)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unreadable", "username", username, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		s.logger.Info(ctx, "login failed: wrong password", "username", username)
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// IssueToken mints a session token for user.
func (s *UserService) IssueToken(user *models.User) (string, error) {
	token, err := s.tokens.IssueNow(user.UserName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// CurrentUser resolves a bearer token to its user. Token errors from
// auth.TokenService are returned unchanged.
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrUnauthenticated
	}

	username, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		return nil, err
	}

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "user lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

// ValidateCredentials checks registration input and returns a
// *common.ValidationError naming the offending field.
func ValidateCredentials(username, password string) error {
	if utf8.RuneCountInString(username) < minUsernameLength {
		return common.NewValidationError("username", "Username must be 3 characters or more.")
	}
	if len(username) > maxUsernameLength {
		return common.NewValidationError("username", "Username must be at most 150 characters.")
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return common.NewValidationError("username", "Invalid characters in username.")
		}
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return common.NewValidationError("password", "Password must be 7 characters or more.")
	}
	if len(password) > maxPasswordBytes {
		return common.NewValidationError("password", "Password must be at most 72 bytes.")
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '-' || r == '_'
}
