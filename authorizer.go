package auth

import (
	"context"
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// MembershipResolver looks up the membership row binding an identity to a
// project. Absence of a row is an unconditional denial; the resolver never
// mutates membership.
type MembershipResolver interface {
	FindMembership(ctx context.Context, userID, projectID uuid.UUID) (*ProjectMembership, error)
}

// ProjectRoleLocalsKey is the router locals key for the caller's resolved
// project role.
const ProjectRoleLocalsKey = "project_role"

// Authorizer builds project-scoped authorization middleware. It runs after
// the credential verifier and is pure: it reads membership, decides, and
// attaches the role, nothing else.
type Authorizer struct {
	resolver     MembershipResolver
	contextKey   string
	logger       Logger
	ErrorHandler router.ErrorHandler
}

// NewAuthorizer creates an Authorizer bound to a membership store.
func NewAuthorizer(resolver MembershipResolver, cfg Config) *Authorizer {
	contextKey := DefaultContextKey
	if cfg != nil {
		contextKey = cfg.GetContextKey()
	}

	a := &Authorizer{
		resolver:   resolver,
		contextKey: contextKey,
		logger:     defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// RequireProjectRole returns middleware enforcing that the verified identity
// holds one of the allowed roles in the project the request targets. The
// project id is taken from the :project_id route param, falling back to a
// project_id field in the JSON body.
//
// Decision table: no membership row is a 403 regardless of allowed roles;
// a membership outside the allowed set is a 403 with a distinct code; a
// missing verified identity is a 401 (the verifier did not run or rejected).
func (a *Authorizer) RequireProjectRole(allowedRoles ...ProjectRole) router.MiddlewareFunc {
	for _, role := range allowedRoles {
		if !role.IsValid() {
			// Unknown role literals are programmer errors; fail at route
			// registration rather than silently never matching.
			panic("AUTH: RequireProjectRole called with unknown role: " + string(role))
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			identity, ok := IdentityFromRouter(ctx, a.contextKey)
			if !ok {
				return a.ErrorHandler(ctx, ErrMissingCredential)
			}

			userID, err := uuid.Parse(identity.ID())
			if err != nil {
				return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid identity id").
					WithCode(goerrors.CodeUnauthorized))
			}

			projectID, err := a.projectIDFromRequest(ctx)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			role, err := a.ResolveProjectRole(ctx.Context(), userID, projectID, allowedRoles...)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			ctx.Locals(ProjectRoleLocalsKey, role)
			ctx.SetContext(WithProjectRoleContext(ctx.Context(), role))

			return ctx.Next()
		}
	}
}

// ResolveProjectRole applies the authorization decision for one identity and
// project: no membership row denies with ErrNotAMember, a role outside the
// allowed set denies with ErrInsufficientRole, and a match returns the held
// role. Both denials are authorization failures, never authentication ones.
func (a *Authorizer) ResolveProjectRole(ctx context.Context, userID, projectID uuid.UUID, allowedRoles ...ProjectRole) (ProjectRole, error) {
	membership, err := a.resolver.FindMembership(ctx, userID, projectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrNotAMember
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve project membership")
	}

	if membership == nil {
		return "", ErrNotAMember
	}

	for _, role := range allowedRoles {
		if membership.Role == role {
			return membership.Role, nil
		}
	}

	a.logger.Debug(
		"project role denied",
		"user_id", userID.String(),
		"project_id", projectID.String(),
		"role", string(membership.Role),
	)

	return "", ErrInsufficientRole
}

func (a *Authorizer) projectIDFromRequest(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("project_id")

	if raw == "" {
		var body struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(ctx.Body(), &body); err == nil {
			raw = body.ProjectID
		}
	}

	if raw == "" {
		return uuid.Nil, goerrors.New("missing project id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	projectID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid project id").
			WithCode(goerrors.CodeBadRequest)
	}

	return projectID, nil
}

func (a *Authorizer) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusForbidden
	}

	return c.Status(status).JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
