package auth

import (
	"context"
	"reflect"
)

// Auther issues credential pairs for verified identities and exchanges
// refresh credentials for new pairs.
type Auther struct {
	provider     IdentityProvider
	resolver     IdentityResolver
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator. It fails when the config is
// missing a signing secret.
func NewAuthenticator(provider IdentityProvider, resolver IdentityResolver, cfg Config) (*Auther, error) {
	tokenService, err := NewTokenService(cfg, defLogger{})
	if err != nil {
		return nil, err
	}

	return &Auther{
		provider:     provider,
		resolver:     resolver,
		tokenService: tokenService,
		logger:       defLogger{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService sets a custom token service, e.g. to share one instance
// with middleware.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the identifier/password pair and mints a fresh credential
// pair for the identity.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	return s.issuePair(identity)
}

// Refresh exchanges a refresh credential for a new pair. The identity is
// re-resolved by id so a deleted account cannot mint new access credentials,
// and a fresh refresh credential is issued alongside the access credential
// (rotation on every exchange).
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	validator, ok := s.tokenService.(interface {
		ValidateRefreshToken(string) (*RefreshClaims, error)
	})
	if !ok {
		return nil, ErrTokenMalformed
	}

	claims, err := validator.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Info("Refresh credential rejected", "error", err)
		return nil, err
	}

	identity, err := s.resolver.FindIdentityByID(ctx, claims.UserID())
	if err != nil {
		s.logger.Warn("Refresh identity no longer resolvable", "user_id", claims.UserID(), "error", err)
		return nil, ErrIdentityNotFound
	}

	return s.issuePair(identity)
}

// IdentityFromAccessToken validates the raw access credential and resolves
// the identity it names. Used by the verifier middleware.
func (s *Auther) IdentityFromAccessToken(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.tokenService.ValidateAccessToken(raw)
	if err != nil {
		return nil, err
	}

	identity, err := s.resolver.FindIdentityByID(ctx, claims.UserID())
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	return identity, nil
}

func (s *Auther) issuePair(identity Identity) (*TokenPair, error) {
	access, err := s.tokenService.IssueAccessToken(identity)
	if err != nil {
		s.logger.Error("failed to issue access credential", "error", err)
		return nil, err
	}

	refresh, err := s.tokenService.IssueRefreshToken(identity)
	if err != nil {
		s.logger.Error("failed to issue refresh credential", "error", err)
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

var _ Authenticator = (*Auther)(nil)
