package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var issuedAt = time.Unix(1_700_000_000, 0)

func newTestService() *TokenService {
	return NewTokenService("super-secret", "emoticons", "emoticons:auth", time.Hour)
}

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	s := newTestService()
	tok, err := s.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	for _, at := range []time.Time{issuedAt, issuedAt.Add(time.Hour - time.Second)} {
		sub, err := s.ValidateAt(tok, at)
		if err != nil {
			t.Fatalf("ValidateAt(%v) error: %v", at, err)
		}
		if sub != "alice" {
			t.Fatalf("subject mismatch: got %q want %q", sub, "alice")
		}
	}
}

func TestValidateAt_ExpiredAtBoundary(t *testing.T) {
	t.Parallel()

	s := newTestService()
	tok, err := s.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = s.ValidateAt(tok, issuedAt.Add(time.Hour))
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want common.ErrTokenExpired, got %v", err)
	}
}

func TestIssue_SubSecondIssueTime(t *testing.T) {
	t.Parallel()

	s := newTestService()
	now := time.Unix(1_700_000_000, int64(600*time.Millisecond))
	tok, err := s.Issue("alice", now, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	for _, at := range []time.Time{now, now.Add(time.Hour - 100*time.Millisecond), now.Add(time.Hour - time.Nanosecond)} {
		if _, err := s.ValidateAt(tok, at); err != nil {
			t.Fatalf("ValidateAt(%v) error: %v", at, err)
		}
	}

	_, err = s.ValidateAt(tok, time.Unix(1_700_003_601, 0))
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want common.ErrTokenExpired, got %v", err)
	}
}

func TestValidateAt_AlteredSignature(t *testing.T) {
	t.Parallel()

	s := newTestService()
	tok, err := s.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(tok, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0xFF
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = s.ValidateAt(strings.Join(parts, "."), issuedAt)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestValidateAt_WrongSecret(t *testing.T) {
	t.Parallel()

	other := NewTokenService("other-secret", "emoticons", "emoticons:auth", time.Hour)
	tok, err := other.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestValidateAt_WrongAudience(t *testing.T) {
	t.Parallel()

	other := NewTokenService("super-secret", "emoticons", "someone-else", time.Hour)
	tok, err := other.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrWrongAudience) {
		t.Fatalf("want common.ErrWrongAudience, got %v", err)
	}
}

func TestValidateAt_WrongIssuer(t *testing.T) {
	t.Parallel()

	other := NewTokenService("super-secret", "somebody", "emoticons:auth", time.Hour)
	tok, err := other.Issue("alice", issuedAt, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestValidateAt_Malformed(t *testing.T) {
	t.Parallel()

	_, err := newTestService().ValidateAt("not.a.jwt", issuedAt)
	if !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("want common.ErrMalformedToken, got %v", err)
	}
}

func TestValidateAt_MissingSubject(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "emoticons",
		Audience:  jwt.ClaimStrings{"emoticons:auth"},
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}).SignedString([]byte("super-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("want common.ErrMalformedToken, got %v", err)
	}
}

func TestValidateAt_MissingExpiry(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   "emoticons",
		Audience: jwt.ClaimStrings{"emoticons:auth"},
		Subject:  "alice",
	}).SignedString([]byte("super-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("want common.ErrMalformedToken, got %v", err)
	}
}

func TestValidateAt_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Issuer:    "emoticons",
		Audience:  jwt.ClaimStrings{"emoticons:auth"},
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}).SignedString([]byte("super-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = newTestService().ValidateAt(tok, issuedAt)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestIssueNow_UsesConfiguredTTL(t *testing.T) {
	t.Parallel()

	s := newTestService()
	s.now = func() time.Time { return issuedAt }

	tok, err := s.IssueNow("bob")
	if err != nil {
		t.Fatalf("IssueNow error: %v", err)
	}
	if _, err := s.Validate(tok); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if _, err := s.ValidateAt(tok, issuedAt.Add(s.TTL())); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want common.ErrTokenExpired at now+ttl, got %v", err)
	}
}
