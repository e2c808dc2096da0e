package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// TokenPurpose tags what a single-use token authorizes.
type TokenPurpose string

const (
	// PurposeEmailVerify authorizes marking the account email as verified
	PurposeEmailVerify TokenPurpose = "email-verify"
	// PurposePasswordReset authorizes replacing the password hash
	PurposePasswordReset TokenPurpose = "password-reset"
)

// IsValid checks if the purpose is one of the predefined valid purposes
func (p TokenPurpose) IsValid() bool {
	switch p {
	case PurposeEmailVerify, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// singleUseTokenBytes is the entropy of a token plaintext. 32 bytes keeps a
// comfortable margin over the 20-byte floor for unguessable links.
const singleUseTokenBytes = 32

// IssueSingleUseToken generates a token plaintext for the purpose and writes
// its digest and expiry onto the user record, overwriting any prior token of
// the same purpose. The plaintext is returned exactly once and never stored;
// a database read alone cannot forge a verification or reset. Callers must
// persist the mutated user for the token to take effect.
func IssueSingleUseToken(user *User, purpose TokenPurpose, ttl time.Duration) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	if !purpose.IsValid() {
		return "", goerrors.New("unknown token purpose", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}

	if ttl <= 0 {
		ttl = DefaultSingleUseTokenTTL
	}

	buf := make([]byte, singleUseTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token")
	}

	plaintext := base64.RawURLEncoding.EncodeToString(buf)
	digest := digestSingleUseToken(plaintext)
	expiry := time.Now().Add(ttl)

	switch purpose {
	case PurposeEmailVerify:
		user.VerifyTokenDigest = digest
		user.VerifyTokenExpiry = &expiry
	case PurposePasswordReset:
		user.ResetTokenDigest = digest
		user.ResetTokenExpiry = &expiry
	}

	return plaintext, nil
}

// ConsumeSingleUseToken checks the supplied plaintext against the digest
// stored for the purpose. It fails when no token is outstanding, the digest
// does not match, or the expiry has passed; a token presented at its exact
// expiry instant is still accepted. The comparison is constant time.
//
// On success the token fields on the user are cleared. The caller must
// persist that clear in the same state transition as the action the token
// authorized, so a consumed token can never be replayed.
func ConsumeSingleUseToken(user *User, purpose TokenPurpose, plaintext string) error {
	if user == nil || plaintext == "" {
		return ErrInvalidSingleUseToken
	}

	var digest string
	var expiry *time.Time

	switch purpose {
	case PurposeEmailVerify:
		digest = user.VerifyTokenDigest
		expiry = user.VerifyTokenExpiry
	case PurposePasswordReset:
		digest = user.ResetTokenDigest
		expiry = user.ResetTokenExpiry
	default:
		return goerrors.New("unknown token purpose", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}

	if digest == "" || expiry == nil {
		return ErrInvalidSingleUseToken
	}

	supplied := digestSingleUseToken(plaintext)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(digest)) != 1 {
		return ErrInvalidSingleUseToken
	}

	if time.Now().After(*expiry) {
		return ErrInvalidSingleUseToken
	}

	clearSingleUseToken(user, purpose)

	return nil
}

func clearSingleUseToken(user *User, purpose TokenPurpose) {
	switch purpose {
	case PurposeEmailVerify:
		user.VerifyTokenDigest = ""
		user.VerifyTokenExpiry = nil
	case PurposePasswordReset:
		user.ResetTokenDigest = ""
		user.ResetTokenExpiry = nil
	}
}

func digestSingleUseToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
