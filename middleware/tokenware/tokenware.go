// Package tokenware provides router middleware that verifies access
// credentials before any handler logic runs. Verification is stateless:
// signature and expiry come from the token itself, and an optional
// IdentityResolver confirms the claimed identity still exists so deleted
// accounts cannot keep using outstanding credentials.
package tokenware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup         = "cookie:auth,header:" + router.HeaderAuthorization
	ErrTokenMissingOrMalformed = errors.New("missing or malformed access credential")
	ErrIdentityRevoked         = errors.New("credential identity no longer exists")
)

// AuthClaims mirrors the claims surface from the auth package without
// creating an import cycle.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Username() string
}

// TokenValidator validates a raw credential and returns its claims.
type TokenValidator interface {
	Validate(raw string) (AuthClaims, error)
}

// Identity mirrors auth.Identity without an import cycle.
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// IdentityResolver resolves a claimed identity id to a live identity record.
type IdentityResolver interface {
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// TokenValidator is required for credential validation
	TokenValidator TokenValidator

	// IdentityResolver, when set, is consulted after validation; requests
	// whose identity cannot be resolved are rejected, and the resolved
	// identity is stored under ContextKey instead of the bare claims.
	IdentityResolver IdentityResolver

	// ContextKey is the router locals key for the verified identity/claims
	ContextKey string

	// TokenLookup lists credential sources in precedence order, e.g.
	// "cookie:auth,header:Authorization". The first source that yields a
	// token wins; later sources are not consulted.
	TokenLookup string
	AuthScheme  string

	// Optional key material for building a fallback validator when callers
	// validate against external issuers (JWK sets) instead of a local
	// TokenValidator.
	SigningKey  SigningKey
	SigningKeys map[string]SigningKey
	JWKSetURLs  []string
	KeyFunc     jwt.Keyfunc

	// ContextEnricher propagates claims into the standard Go context after
	// successful validation.
	ContextEnricher func(ctx context.Context, claims AuthClaims) context.Context
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

// New builds the verifier middleware. Requests without a valid credential
// are terminated by the ErrorHandler before any downstream handler runs.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawToken(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if cfg.IdentityResolver != nil {
				identity, err := cfg.IdentityResolver.FindIdentityByID(ctx.Context(), claims.UserID())
				if err != nil || identity == nil {
					return cfg.ErrorHandler(ctx, ErrIdentityRevoked)
				}
				ctx.Locals(cfg.ContextKey, identity)
			} else {
				ctx.Locals(cfg.ContextKey, claims)
			}

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// GetDefaultConfig applies defaults and panics on configurations that could
// never verify a credential. Misconfiguration is a programmer error caught
// at route registration, not at request time.
func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired credential")
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "auth"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.TokenValidator == nil {
		cfg.TokenValidator = cfg.buildKeyfuncValidator()
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: tokenware configuration: TokenValidator or key material is required.")
	}

	return cfg
}

// buildKeyfuncValidator builds a validator from signing keys or JWK set URLs
// when no TokenValidator is supplied. Used for externally issued tokens.
func (cfg *Config) buildKeyfuncValidator() TokenValidator {
	kf := cfg.KeyFunc

	if kf == nil && (len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0) {
		var givenKeys map[string]keyfunc.GivenKey
		if cfg.SigningKeys != nil {
			givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
			for kid, key := range cfg.SigningKeys {
				givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
					Algorithm: key.JWTAlg,
				})
			}
		}

		if len(cfg.JWKSetURLs) > 0 {
			multi, err := multiKeyfunc(givenKeys, cfg.JWKSetURLs)
			if err != nil {
				panic("AUTH: failed to create keyfunc from JWK Set URL: " + err.Error())
			}
			kf = multi
		} else {
			kf = keyfunc.NewGiven(givenKeys).Keyfunc
		}
	}

	if kf == nil && cfg.SigningKey.Key != nil {
		kf = signingKeyFunc(cfg.SigningKey)
	}

	if kf == nil {
		return nil
	}

	return keyfuncValidator{keyFunc: kf}
}

type keyfuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v keyfuncValidator) Validate(raw string) (AuthClaims, error) {
	token, err := jwt.Parse(raw, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMissingOrMalformed
	}

	return mapClaims(claims), nil
}

// mapClaims adapts raw jwt.MapClaims to the AuthClaims surface.
type mapClaims jwt.MapClaims

func (m mapClaims) Subject() string {
	sub, _ := jwt.MapClaims(m).GetSubject()
	return sub
}

func (m mapClaims) UserID() string {
	if uid, ok := m["uid"].(string); ok && uid != "" {
		return uid
	}
	return m.Subject()
}

func (m mapClaims) Email() string {
	email, _ := m["email"].(string)
	return email
}

func (m mapClaims) Username() string {
	username, _ := m["username"].(string)
	return username
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwkSetURLs []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwkSetURLs))
	for _, url := range jwkSetURLs {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// ExtractRawToken walks the extractors in lookup order and returns the first
// credential found.
func ExtractRawToken(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// GetExtractors parses a lookup string like
// "cookie:auth,header:Authorization,query:token" into extractor functions,
// preserving precedence order.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the credential from the
// request header, stripping the auth scheme prefix.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		scheme := strings.TrimSpace(authScheme)
		l := len(scheme)
		if l == 0 {
			return "", ErrTokenMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], scheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromParam(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
