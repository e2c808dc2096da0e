// Package auth implements the authentication and authorization core for a
// multi-tenant project tracker: JWT access/refresh credential issuance and
// verification, single-use tokens for email verification and password reset,
// and per-project role-based authorization middleware.
//
// Credentials:
//   - Access credentials are short-lived HS256 JWTs carrying the identity id,
//     email, and username. They are stateless and never persisted server-side;
//     only expiry (or deletion of the identity itself) invalidates them.
//   - Refresh credentials are longer-lived JWTs signed with a distinct secret.
//     Exchanging one re-resolves the identity, so removed accounts cannot mint
//     new access credentials.
//
// Single-use tokens:
//   - Issued for email verification and password reset. Only a SHA-256 digest
//     is stored on the user record together with an absolute expiry; the
//     plaintext exists once, in the issuing response. Issuing a new token of
//     the same purpose overwrites the previous digest, invalidating it.
//
// Authorization:
//   - RequireProjectRole builds router middleware that resolves the caller's
//     ProjectMembership and enforces an allowed-role set. Absence of a
//     membership row is an unconditional denial.
//
// The companion package client implements the consumer half: a persisted
// session store and a single-flight refresh coordinator that keeps concurrent
// requests from duplicating refresh calls when an access credential expires.
package auth
