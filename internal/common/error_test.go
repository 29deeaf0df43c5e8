package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("register: %w", NewValidationError("username", "too short"))

	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "username", ve.Field)
	assert.Equal(t, "username: too short", ve.Error())
}

func TestTokenErrors_AreDistinct(t *testing.T) {
	errs := []error{ErrInvalidToken, ErrTokenExpired, ErrWrongAudience, ErrMalformedToken, ErrUnauthenticated}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Fatalf("%v must not match %v", a, b)
			}
		}
	}
}
