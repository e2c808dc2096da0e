package client

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// RefreshFunc exchanges a refresh credential for a fresh session. The client
// supplies one backed by the server's refresh endpoint.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Session, error)

type refreshResult struct {
	session *Session
	err     error
}

// RefreshCoordinator collapses concurrent refresh attempts into a single
// server call. The first caller performs the exchange; callers arriving
// while it is in flight wait for its outcome instead of issuing their own.
// The fresh session is committed to the store before any waiter is woken,
// and waiters are woken in arrival order. On failure the stored session is
// cleared so every caller converges on a logged-out state.
type RefreshCoordinator struct {
	mu       sync.Mutex
	inflight bool
	waiters  []chan refreshResult

	store   SessionStore
	refresh RefreshFunc
}

// NewRefreshCoordinator builds a coordinator over the given store and
// refresh function.
func NewRefreshCoordinator(store SessionStore, refresh RefreshFunc) *RefreshCoordinator {
	return &RefreshCoordinator{
		store:   store,
		refresh: refresh,
	}
}

// Refresh returns the session produced by the in-flight or newly started
// refresh. A caller whose context expires while waiting gets its context
// error; the refresh itself keeps running for the remaining waiters.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()

	if c.inflight {
		// buffered so the leader never blocks on a waiter that gave up
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.session, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.inflight = true
	c.mu.Unlock()

	session, err := c.doRefresh(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inflight = false
	c.mu.Unlock()

	res := refreshResult{session: session, err: err}
	for _, ch := range waiters {
		ch <- res
	}

	return session, err
}

func (c *RefreshCoordinator) doRefresh(ctx context.Context) (*Session, error) {
	current, err := c.store.Get()
	if err != nil {
		return nil, err
	}

	if current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	fresh, err := c.refresh(ctx, current.RefreshToken)
	if err != nil {
		// the pair is no longer trustworthy, force a clean login
		if clearErr := c.store.Clear(); clearErr != nil {
			return nil, goerrors.Wrap(clearErr, goerrors.CategoryInternal, "failed to clear session after refresh rejection")
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "credential refresh rejected").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode("REFRESH_FAILED")
	}

	if fresh == nil || !fresh.Valid() {
		if clearErr := c.store.Clear(); clearErr != nil {
			return nil, goerrors.Wrap(clearErr, goerrors.CategoryInternal, "failed to clear session after refresh rejection")
		}
		return nil, ErrRefreshFailed
	}

	// carry the identity snapshot forward, refresh responses only hold tokens
	if fresh.UserID == "" {
		fresh.UserID = current.UserID
	}
	if fresh.Email == "" {
		fresh.Email = current.Email
	}
	if fresh.Username == "" {
		fresh.Username = current.Username
	}

	// commit before waking anyone so every waiter observes the new pair
	if err := c.store.Set(fresh); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refreshed session")
	}

	return fresh, nil
}
