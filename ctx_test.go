package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-project-auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	identity := testIdentity(uuid.New().String())

	ctx := auth.WithIdentityContext(context.Background(), identity)

	got, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, identity.ID(), got.ID())

	_, ok = auth.IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestProjectRoleContext(t *testing.T) {
	ctx := auth.WithProjectRoleContext(context.Background(), auth.ProjectRoleManager)

	role, ok := auth.ProjectRoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, auth.ProjectRoleManager, role)

	_, ok = auth.ProjectRoleFromContext(context.Background())
	assert.False(t, ok)
}

func TestIdentityFromRouter(t *testing.T) {
	identity := testIdentity(uuid.New().String())

	t.Run("identity present under key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["auth"] = identity

		got, ok := auth.IdentityFromRouter(ctx, "auth")
		require.True(t, ok)
		assert.Equal(t, identity.ID(), got.ID())
	})

	t.Run("empty key falls back to the default", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock[auth.DefaultContextKey] = identity

		got, ok := auth.IdentityFromRouter(ctx, "")
		require.True(t, ok)
		assert.Equal(t, identity.ID(), got.ID())
	})

	t.Run("missing identity", func(t *testing.T) {
		ctx := router.NewMockContext()

		_, ok := auth.IdentityFromRouter(ctx, "auth")
		assert.False(t, ok)
	})

	t.Run("wrong type under key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["auth"] = "not an identity"

		_, ok := auth.IdentityFromRouter(ctx, "auth")
		assert.False(t, ok)
	})
}
