package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks access or refresh credentials past expiry
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed marks credentials that fail signature or parsing
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeNotAMember marks authorization failures with no membership row
	TextCodeNotAMember = "NOT_A_PROJECT_MEMBER"
	// TextCodeInsufficientRole marks membership with a role outside the allowed set
	TextCodeInsufficientRole = "INSUFFICIENT_PROJECT_ROLE"
	// TextCodeInvalidSingleUseToken covers digest mismatch, missing, and expired tokens
	TextCodeInvalidSingleUseToken = "INVALID_SINGLE_USE_TOKEN"
)

// ErrIdentityNotFound is returned when a credential references an identity
// that no longer exists. Deleted identities invalidate their outstanding
// credentials even though tokens are stateless.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingCredential is returned when a request carries no access credential.
var ErrMissingCredential = goerrors.New("missing access credential", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for credentials past their expiry.
var ErrTokenExpired = goerrors.New("credential is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for credentials that fail parsing or signature checks.
var ErrTokenMalformed = goerrors.New("credential is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrMismatchedHashAndPassword is returned on password verification failure.
// Callers should not distinguish it from an unknown identifier.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while an account is cooling down.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")

// ErrNotAMember is the authorization failure for identities with no
// membership in the target project.
var ErrNotAMember = goerrors.New("not a project member", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeNotAMember)

// ErrInsufficientRole is the authorization failure for members whose project
// role is outside the allowed set.
var ErrInsufficientRole = goerrors.New("insufficient project role", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeInsufficientRole)

// ErrInvalidSingleUseToken covers every single-use token failure: no token of
// the requested purpose stored, digest mismatch, or expiry. Collapsing the
// cases keeps responses from leaking which check failed.
var ErrInvalidSingleUseToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidSingleUseToken)

// ErrNoEmptyString rejects empty inputs to hashing helpers.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// IsTokenExpiredError will check for expired credentials, covering both our
// structured error and the strings jwt/v5 produces.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed credential errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsForbiddenError reports whether err is an authorization denial, as opposed
// to an authentication failure. Collaborators use it to render a permission
// error distinct from "not logged in".
func IsForbiddenError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuthz
	}
	return false
}
