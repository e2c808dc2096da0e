package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Config supplies signing secrets and expiry durations to the credential
// issuer and verifier. Implementations are expected to be static after
// process start; validation failures are fatal at construction, never
// per request.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSingleUseTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

const (
	// DefaultAccessTokenTTL keeps access credentials short-lived; refresh is
	// the only recovery from expiry since there is no revocation list.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL bounds how long a session can stay alive without
	// re-authentication.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	// DefaultSingleUseTokenTTL bounds verification and reset links.
	DefaultSingleUseTokenTTL = 20 * time.Minute
	// DefaultContextKey is the cookie name and router locals key for the
	// access credential.
	DefaultContextKey = "auth"
)

// SimpleConfig is a plain struct Config implementation.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	SingleUseTokenTTL time.Duration
	Issuer            string
	Audience          []string
	ContextKey        string
	TokenLookup       string
	AuthScheme        string
}

var _ Config = &SimpleConfig{}

func (c *SimpleConfig) GetAccessSigningKey() string  { return c.AccessSigningKey }
func (c *SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }

func (c *SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetSingleUseTokenTTL() time.Duration {
	if c.SingleUseTokenTTL <= 0 {
		return DefaultSingleUseTokenTTL
	}
	return c.SingleUseTokenTTL
}

func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return DefaultContextKey
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		// cookie takes precedence over the Authorization header
		return "cookie:" + c.GetContextKey() + ",header:Authorization"
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

// ValidateConfig checks that both signing secrets are present. Call it at
// process start; a missing secret means credentials could never be verified
// and the process should not accept traffic.
func ValidateConfig(cfg Config) error {
	if cfg == nil {
		return goerrors.New("auth config is required", goerrors.CategoryInternal)
	}

	if cfg.GetAccessSigningKey() == "" {
		return goerrors.New("missing access signing secret", goerrors.CategoryInternal).
			WithTextCode("MISSING_SIGNING_SECRET")
	}

	if cfg.GetRefreshSigningKey() == "" {
		return goerrors.New("missing refresh signing secret", goerrors.CategoryInternal).
			WithTextCode("MISSING_SIGNING_SECRET")
	}

	return nil
}
