package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-project-auth/middleware/tokenware"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator wires the verifier middleware and cookie handling for
// HTTP collaborators.
type RouteAuthenticator struct {
	auth           Authenticator
	resolver       IdentityResolver
	tokenService   TokenService
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   router.ErrorHandler
}

// NewHTTPAuthenticator builds a RouteAuthenticator. The config must already
// have been validated by the Authenticator construction.
func NewHTTPAuthenticator(auther *Auther, resolver IdentityResolver, cfg Config) (*RouteAuthenticator, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		resolver:       resolver,
		tokenService:   auther.TokenService(),
		cookieDuration: cfg.GetRefreshTokenTTL(),
		Logger:         defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// VerifyAccess returns the credential verifier middleware: token extraction
// with cookie precedence, signature/expiry validation, identity resolution,
// and context attachment. Requests failing any step terminate before handler
// logic runs.
func (a *RouteAuthenticator) VerifyAccess() router.MiddlewareFunc {
	validator, _ := a.tokenService.(TokenValidator)

	return tokenware.New(tokenware.Config{
		ErrorHandler:     a.authErrorHandler,
		TokenValidator:   tokenValidatorAdapter{validator},
		IdentityResolver: identityResolverAdapter{a.resolver},
		ContextKey:       a.cfg.GetContextKey(),
		TokenLookup:      a.cfg.GetTokenLookup(),
		AuthScheme:       a.cfg.GetAuthScheme(),
		ContextEnricher: func(ctx context.Context, claims tokenware.AuthClaims) context.Context {
			if authClaims, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, authClaims)
			}
			return ctx
		},
	})
}

// Login authenticates the payload and, on success, sets the access credential
// cookie. The token pair is returned so JSON clients can store it themselves.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*TokenPair, error) {
	pair, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return nil, err
	}

	a.setCookieToken(ctx, pair.AccessToken, a.cookieDuration)
	return pair, nil
}

// Refresh exchanges the presented refresh credential for a fresh pair and
// rotates the cookie.
func (a *RouteAuthenticator) Refresh(ctx router.Context, refreshToken string) (*TokenPair, error) {
	pair, err := a.auth.Refresh(ctx.Context(), refreshToken)
	if err != nil {
		a.Logger.Info("Refresh rejected", "error", err)
		return nil, err
	}

	a.setCookieToken(ctx, pair.AccessToken, a.cookieDuration)
	return pair, nil
}

// Logout clears the credential cookie. Outstanding stateless credentials
// remain valid until expiry; short TTLs are the mitigation.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) authErrorHandler(c router.Context, err error) error {
	var richErr *goerrors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) || goerrors.Is(err, tokenware.ErrTokenMissingOrMalformed) {
		richErr = ErrTokenMalformed
	} else if goerrors.Is(err, tokenware.ErrIdentityRevoked) {
		richErr = ErrIdentityNotFound
	} else if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid access credential").
			WithCode(goerrors.CodeUnauthorized)
	}

	return a.ErrorHandler(c, richErr)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"Auth middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusUnauthorized
	}

	return c.Status(status).JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// tokenValidatorAdapter narrows auth.TokenValidator to the tokenware surface.
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (a tokenValidatorAdapter) Validate(raw string) (tokenware.AuthClaims, error) {
	if a.validator == nil {
		return nil, ErrTokenMalformed
	}
	claims, err := a.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// identityResolverAdapter narrows auth.IdentityResolver to the tokenware surface.
type identityResolverAdapter struct {
	resolver IdentityResolver
}

func (a identityResolverAdapter) FindIdentityByID(ctx context.Context, id string) (tokenware.Identity, error) {
	if a.resolver == nil {
		return nil, ErrIdentityNotFound
	}
	identity, err := a.resolver.FindIdentityByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return identity, nil
}
