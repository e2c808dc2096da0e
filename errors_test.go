package auth_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-project-auth"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "structured expired error",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "wrapped expired error",
			err:      goerrors.Wrap(auth.ErrTokenExpired, goerrors.CategoryAuth, "validation failed"),
			expected: true,
		},
		{
			name:     "jwt library error text",
			err:      errors.New("token has invalid claims: token is expired"),
			expected: true,
		},
		{
			name:     "malformed is not expired",
			err:      auth.ErrTokenMalformed,
			expected: false,
		},
		{
			name:     "unrelated error",
			err:      errors.New("connection refused"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "structured malformed error",
			err:      auth.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "jwt library error text",
			err:      errors.New("token is malformed: could not base64 decode"),
			expected: true,
		},
		{
			name:     "middleware missing token text",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "expired is not malformed",
			err:      auth.ErrTokenExpired,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsMalformedError(tt.err))
		})
	}
}

func TestIsForbiddenError(t *testing.T) {
	assert.True(t, auth.IsForbiddenError(auth.ErrNotAMember))
	assert.True(t, auth.IsForbiddenError(auth.ErrInsufficientRole))

	// authentication failures are not authorization denials
	assert.False(t, auth.IsForbiddenError(auth.ErrMissingCredential))
	assert.False(t, auth.IsForbiddenError(auth.ErrTokenExpired))
	assert.False(t, auth.IsForbiddenError(errors.New("plain error")))
	assert.False(t, auth.IsForbiddenError(nil))
}
