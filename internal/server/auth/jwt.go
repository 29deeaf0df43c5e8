package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates session tokens. Issuer, audience and
// secret are fixed for the lifetime of the process.
type TokenService struct {
	secretKey []byte
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(secretKey, issuer, audience string, ttl time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		now:       time.Now,
	}
}

// TTL is the lifetime given to tokens minted by IssueNow.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// IssueNow mints a token for username valid from now for the configured TTL.
func (s *TokenService) IssueNow(username string) (string, error) {
	return s.Issue(username, s.now(), s.ttl)
}

// Issue mints a token for username valid in [now, now+ttl). The exp claim
// has whole-second precision, so a fractional expiry is rounded up.
func (s *TokenService) Issue(username string, now time.Time, ttl time.Duration) (string, error) {
	exp := now.Add(ttl)
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		exp = whole.Add(time.Second)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Validate checks the token against the current time and returns its subject.
func (s *TokenService) Validate(tokenString string) (string, error) {
	return s.ValidateAt(tokenString, s.now())
}

// ValidateAt checks signature, issuer, audience and expiry as of t and
// returns the subject username. Failures map to common.ErrInvalidToken,
// common.ErrTokenExpired, common.ErrWrongAudience or common.ErrMalformedToken.
func (s *TokenService) ValidateAt(tokenString string, t time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t }),
	)
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrMalformedToken)
	}
	return claims.Subject, nil
}

// classify maps jwt parse errors onto the common token errors. Signature
// problems are checked first: the parser verifies the signature before it
// looks at any claim.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", common.ErrWrongAudience, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
}
