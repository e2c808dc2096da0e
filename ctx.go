package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}
var projectRoleCtxKey = &contextKey{"project_role"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the verified Identity in the given context
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the verified identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// WithProjectRoleContext records the role the caller holds in the project
// the request targets.
func WithProjectRoleContext(ctx context.Context, role ProjectRole) context.Context {
	return context.WithValue(ctx, projectRoleCtxKey, role)
}

// ProjectRoleFromContext returns the caller's role in the request's project.
// Only set after RequireProjectRole has admitted the request.
func ProjectRoleFromContext(ctx context.Context) (ProjectRole, bool) {
	raw, ok := ctx.Value(projectRoleCtxKey).(ProjectRole)
	return raw, ok
}

// IdentityFromRouter extracts the verified identity stored in router locals
// by the verifier middleware.
func IdentityFromRouter(c router.Context, key string) (Identity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(Identity)
	return identity, ok
}
