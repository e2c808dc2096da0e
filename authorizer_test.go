package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-project-auth"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthorizer_ResolveProjectRole(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()

	membershipWith := func(role auth.ProjectRole) *auth.ProjectMembership {
		return &auth.ProjectMembership{
			ID:        uuid.New(),
			UserID:    userID,
			ProjectID: projectID,
			Role:      role,
		}
	}

	tests := []struct {
		name     string
		held     auth.ProjectRole
		allowed  []auth.ProjectRole
		wantRole auth.ProjectRole
		wantErr  error
	}{
		{
			name:     "admin passes admin-only",
			held:     auth.ProjectRoleAdmin,
			allowed:  []auth.ProjectRole{auth.ProjectRoleAdmin},
			wantRole: auth.ProjectRoleAdmin,
		},
		{
			name:     "manager passes managers-and-up",
			held:     auth.ProjectRoleManager,
			allowed:  []auth.ProjectRole{auth.ProjectRoleAdmin, auth.ProjectRoleManager},
			wantRole: auth.ProjectRoleManager,
		},
		{
			name:     "member passes any-member",
			held:     auth.ProjectRoleMember,
			allowed:  auth.AllProjectRoles(),
			wantRole: auth.ProjectRoleMember,
		},
		{
			name:    "member denied on admin-only",
			held:    auth.ProjectRoleMember,
			allowed: []auth.ProjectRole{auth.ProjectRoleAdmin},
			wantErr: auth.ErrInsufficientRole,
		},
		{
			name:    "manager denied on admin-only",
			held:    auth.ProjectRoleManager,
			allowed: []auth.ProjectRole{auth.ProjectRoleAdmin},
			wantErr: auth.ErrInsufficientRole,
		},
		{
			name:    "member denied on managers-and-up",
			held:    auth.ProjectRoleMember,
			allowed: []auth.ProjectRole{auth.ProjectRoleAdmin, auth.ProjectRoleManager},
			wantErr: auth.ErrInsufficientRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &MockMembershipResolver{}
			resolver.On("FindMembership", mock.Anything, userID, projectID).
				Return(membershipWith(tt.held), nil)

			authorizer := auth.NewAuthorizer(resolver, nil)

			role, err := authorizer.ResolveProjectRole(context.Background(), userID, projectID, tt.allowed...)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, role)
			resolver.AssertExpectations(t)
		})
	}
}

func TestAuthorizer_ResolveProjectRole_NoMembership(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()

	t.Run("missing membership row denies membership regardless of allowed set", func(t *testing.T) {
		resolver := &MockMembershipResolver{}
		resolver.On("FindMembership", mock.Anything, userID, projectID).
			Return(nil, repository.NewRecordNotFound())

		authorizer := auth.NewAuthorizer(resolver, nil)

		_, err := authorizer.ResolveProjectRole(context.Background(), userID, projectID, auth.AllProjectRoles()...)

		// a non-member is forbidden, not unauthenticated
		assert.ErrorIs(t, err, auth.ErrNotAMember)
		assert.True(t, auth.IsForbiddenError(err))
	})

	t.Run("nil membership without error is still a denial", func(t *testing.T) {
		resolver := &MockMembershipResolver{}
		resolver.On("FindMembership", mock.Anything, userID, projectID).
			Return(nil, nil)

		authorizer := auth.NewAuthorizer(resolver, nil)

		_, err := authorizer.ResolveProjectRole(context.Background(), userID, projectID, auth.AllProjectRoles()...)
		assert.ErrorIs(t, err, auth.ErrNotAMember)
	})

	t.Run("store failure is an internal error, not a denial", func(t *testing.T) {
		resolver := &MockMembershipResolver{}
		resolver.On("FindMembership", mock.Anything, userID, projectID).
			Return(nil, errors.New("connection refused"))

		authorizer := auth.NewAuthorizer(resolver, nil)

		_, err := authorizer.ResolveProjectRole(context.Background(), userID, projectID, auth.AllProjectRoles()...)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotAMember)
		assert.NotErrorIs(t, err, auth.ErrInsufficientRole)
	})
}

func TestAuthorizer_RequireProjectRole(t *testing.T) {
	t.Run("panics at registration on unknown role literal", func(t *testing.T) {
		authorizer := auth.NewAuthorizer(&MockMembershipResolver{}, nil)

		assert.Panics(t, func() {
			authorizer.RequireProjectRole(auth.ProjectRole("superuser"))
		})
	})

	t.Run("request without verified identity is unauthenticated", func(t *testing.T) {
		authorizer := auth.NewAuthorizer(&MockMembershipResolver{}, nil)

		var captured error
		authorizer.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		mw := authorizer.RequireProjectRole(auth.ProjectRoleMember)

		next := func(ctx router.Context) error {
			t.Fatal("handler must not run")
			return nil
		}

		ctx := router.NewMockContext()
		err := mw(next)(ctx)
		require.NoError(t, err)

		assert.ErrorIs(t, captured, auth.ErrMissingCredential)
	})
}
