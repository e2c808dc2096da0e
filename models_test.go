package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-project-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemRole_IsValid(t *testing.T) {
	assert.True(t, auth.RoleUser.IsValid())
	assert.True(t, auth.RoleAdmin.IsValid())
	assert.False(t, auth.SystemRole("root").IsValid())
	assert.False(t, auth.SystemRole("").IsValid())
}

func TestProjectRole_IsValid(t *testing.T) {
	for _, role := range auth.AllProjectRoles() {
		assert.True(t, role.IsValid(), "expected %q to be valid", role)
	}
	assert.False(t, auth.ProjectRole("owner").IsValid())
	assert.False(t, auth.ProjectRole("").IsValid())
}

func TestParseProjectRole(t *testing.T) {
	testCases := []struct {
		input string
		role  auth.ProjectRole
		ok    bool
	}{
		{"project_admin", auth.ProjectRoleAdmin, true},
		{"project_manager", auth.ProjectRoleManager, true},
		{"member", auth.ProjectRoleMember, true},
		{"Member", "", false},
		{"admin", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			role, ok := auth.ParseProjectRole(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.role, role)
			}
		})
	}
}

func TestNewCreatorMembership(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()

	membership := auth.NewCreatorMembership(userID, projectID)
	require.NotNil(t, membership)
	assert.Equal(t, userID, membership.UserID)
	assert.Equal(t, projectID, membership.ProjectID)
	assert.Equal(t, auth.ProjectRoleAdmin, membership.Role)
}

func TestUser_Sanitized(t *testing.T) {
	t.Run("strips secrets and keeps the rest", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour)
		user := &auth.User{
			ID:                uuid.New(),
			Role:              auth.RoleUser,
			Username:          "ada",
			Email:             "ada@example.com",
			PasswordHash:      "$2a$14$not-a-real-hash",
			VerifyTokenDigest: "digest-a",
			VerifyTokenExpiry: &expiry,
			ResetTokenDigest:  "digest-b",
			ResetTokenExpiry:  &expiry,
		}

		clean := user.Sanitized()
		require.NotNil(t, clean)
		assert.Empty(t, clean.PasswordHash)
		assert.Empty(t, clean.VerifyTokenDigest)
		assert.Nil(t, clean.VerifyTokenExpiry)
		assert.Empty(t, clean.ResetTokenDigest)
		assert.Nil(t, clean.ResetTokenExpiry)

		assert.Equal(t, user.ID, clean.ID)
		assert.Equal(t, user.Username, clean.Username)
		assert.Equal(t, user.Email, clean.Email)

		// the original record is untouched
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEmpty(t, user.VerifyTokenDigest)
	})

	t.Run("nil receiver", func(t *testing.T) {
		var user *auth.User
		assert.Nil(t, user.Sanitized())
	})
}
