package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SystemRole is the account-wide role. Project-scoped permissions are
// governed by ProjectRole, not by this.
type SystemRole string

const (
	// RoleUser is a regular account
	RoleUser SystemRole = "user"
	// RoleAdmin is a system administrator
	RoleAdmin SystemRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r SystemRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ProjectRole is the role an identity holds inside a single project. It is a
// closed set; free-form role strings are rejected at the boundary.
type ProjectRole string

const (
	// ProjectRoleAdmin can manage the project and its members
	ProjectRoleAdmin ProjectRole = "project_admin"
	// ProjectRoleManager can manage tasks and assignments
	ProjectRoleManager ProjectRole = "project_manager"
	// ProjectRoleMember can view and work on assigned tasks
	ProjectRoleMember ProjectRole = "member"
)

// IsValid checks if the role is one of the predefined valid roles
func (r ProjectRole) IsValid() bool {
	switch r {
	case ProjectRoleAdmin, ProjectRoleManager, ProjectRoleMember:
		return true
	default:
		return false
	}
}

// ParseProjectRole safely parses a string into a ProjectRole
func ParseProjectRole(roleStr string) (ProjectRole, bool) {
	role := ProjectRole(roleStr)
	return role, role.IsValid()
}

// AllProjectRoles returns the closed role set
func AllProjectRoles() []ProjectRole {
	return []ProjectRole{
		ProjectRoleAdmin,
		ProjectRoleManager,
		ProjectRoleMember,
	}
}

// User is the identity model. Single-use token digests live directly on the
// record: at most one outstanding token per purpose, overwritten on reissue,
// cleared in the same UPDATE as the action they authorize.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              SystemRole `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	EmailVerified     bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts     int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt    *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt        *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	VerifyTokenDigest string     `bun:"verify_token_digest,nullzero" json:"-"`
	VerifyTokenExpiry *time.Time `bun:"verify_token_expiry,nullzero" json:"-"`
	ResetTokenDigest  string     `bun:"reset_token_digest,nullzero" json:"-"`
	ResetTokenExpiry  *time.Time `bun:"reset_token_expiry,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Sanitized returns a copy safe to hand to request handlers: the password
// hash and token digests are stripped.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.PasswordHash = ""
	clean.VerifyTokenDigest = ""
	clean.VerifyTokenExpiry = nil
	clean.ResetTokenDigest = ""
	clean.ResetTokenExpiry = nil
	return &clean
}

// ProjectMembership binds an identity to a project with a role. The pair
// (user_id, project_id) is unique; removing the row removes all access.
type ProjectMembership struct {
	bun.BaseModel `bun:"table:project_memberships,alias:pmb"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID   `bun:"user_id,notnull,unique:user_project,type:uuid" json:"user_id,omitempty"`
	ProjectID     uuid.UUID   `bun:"project_id,notnull,unique:user_project,type:uuid" json:"project_id,omitempty"`
	Role          ProjectRole `bun:"member_role,notnull" json:"member_role,omitempty"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewCreatorMembership builds the membership row for a project creator.
// Creators are always project admins.
func NewCreatorMembership(userID, projectID uuid.UUID) *ProjectMembership {
	return &ProjectMembership{
		UserID:    userID,
		ProjectID: projectID,
		Role:      ProjectRoleAdmin,
	}
}
