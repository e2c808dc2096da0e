package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-project-auth"
)

// Client is an HTTP consumer of the auth endpoints. It stores the
// credential pair in its session store, attaches the access credential to
// every request, and transparently refreshes once when a request comes
// back 401.
type Client struct {
	baseURL  string
	basePath string
	httpc    *http.Client
	store    SessionStore
	coord    *RefreshCoordinator
	logger   auth.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithSessionStore overrides the default in-memory store.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBasePath changes the mount point of the auth routes, default "/auth".
func WithBasePath(path string) Option {
	return func(c *Client) {
		c.basePath = path
	}
}

// New builds a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		basePath: "/auth",
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:  NewMemorySessionStore(),
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.coord = NewRefreshCoordinator(c.store, c.exchangeRefresh)

	return c
}

// Session returns the currently stored session.
func (c *Client) Session() (*Session, error) {
	return c.store.Get()
}

// Login authenticates and stores the resulting session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	pair := &auth.TokenPair{}

	err := c.call(ctx, http.MethodPost, c.authPath("/login"), map[string]string{
		"identifier": identifier,
		"password":   password,
	}, pair, false)
	if err != nil {
		return nil, err
	}

	session := &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}

	if err := c.store.Set(session); err != nil {
		return nil, err
	}

	return session, nil
}

// Logout clears the stored session. The server call is best effort; the
// local session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, c.authPath("/logout"), nil, nil, true); err != nil {
		c.logger.Warn("logout request failed: %v", err)
	}
	return c.store.Clear()
}

// Refresh forces a credential exchange through the coordinator.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	return c.coord.Refresh(ctx)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.call(ctx, http.MethodPost, c.authPath("/register"), map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, nil, false)
}

// VerifyEmail redeems an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, identifier, token string) error {
	return c.call(ctx, http.MethodPost, c.authPath("/verify-email"), map[string]string{
		"identifier": identifier,
		"token":      token,
	}, nil, false)
}

// RequestPasswordReset asks the server to issue a reset token.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, c.authPath("/password-reset"), map[string]string{
		"email": email,
	}, nil, false)
}

// ConfirmPasswordReset redeems a reset token with the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, token, password string) error {
	return c.call(ctx, http.MethodPost, c.authPath("/password-reset/confirm"), map[string]string{
		"email":            email,
		"token":            token,
		"password":         password,
		"confirm_password": password,
	}, nil, false)
}

// Do performs an authenticated JSON request against the service. On a 401
// it refreshes through the coordinator and retries exactly once; a second
// 401 surfaces as ErrUnauthorized.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.call(ctx, method, path, body, out, true)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, authed bool) error {
	status, err := c.roundTrip(ctx, method, path, body, out, authed)
	if err != nil {
		return err
	}

	if status != http.StatusUnauthorized {
		return nil
	}

	if !authed {
		return ErrUnauthorized
	}

	if _, err := c.coord.Refresh(ctx); err != nil {
		return err
	}

	// one retry with the refreshed credential, never more
	status, err = c.roundTrip(ctx, method, path, body, out, authed)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	return nil
}

// roundTrip performs a single request. Non-401 error statuses are decoded
// and returned as rich errors; a 401 is reported through the status so the
// caller can decide whether to refresh.
func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		if session, err := c.store.Get(); err == nil && session.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response body")
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

// exchangeRefresh is the RefreshFunc wired into the coordinator. It talks
// to the refresh endpoint directly so a rejected exchange cannot recurse
// into another refresh.
func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (*Session, error) {
	pair := &auth.TokenPair{}

	status, err := c.roundTrip(ctx, http.MethodPost, c.authPath("/refresh"), map[string]string{
		"refresh_token": refreshToken,
	}, pair, false)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		return nil, ErrRefreshFailed
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	payload := struct {
		Error    string `json:"error"`
		TextCode string `json:"text_code"`
	}{}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(data) > 0 {
		json.Unmarshal(data, &payload)
	}

	msg := payload.Error
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	category := goerrors.CategoryInternal
	switch {
	case resp.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		category = goerrors.CategoryBadInput
	}

	return goerrors.New(msg, category).
		WithCode(resp.StatusCode).
		WithTextCode(payload.TextCode)
}

func (c *Client) authPath(suffix string) string {
	return c.basePath + suffix
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {}
func (defLogger) Info(format string, args ...any)  { log.Printf(format, args...) }
func (defLogger) Warn(format string, args ...any)  { log.Printf(format, args...) }
func (defLogger) Error(format string, args ...any) { log.Printf(format, args...) }
