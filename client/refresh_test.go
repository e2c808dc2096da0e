package client_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-project-auth/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCoordinator_SingleExchange(t *testing.T) {
	store := client.NewMemorySessionStore()
	require.NoError(t, store.Set(testSession()))

	var calls int32
	coord := client.NewRefreshCoordinator(store, func(ctx context.Context, refreshToken string) (*client.Session, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "refresh-token", refreshToken)
		return &client.Session{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
		}, nil
	})

	session, err := coord.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", session.AccessToken)
	assert.Equal(t, "fresh-refresh", session.RefreshToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// identity snapshot carried forward from the old session
	assert.Equal(t, "ada", session.Username)
	assert.Equal(t, "ada@example.com", session.Email)

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", stored.AccessToken)
}

func TestRefreshCoordinator_ConcurrentCallersShareOneExchange(t *testing.T) {
	store := client.NewMemorySessionStore()
	require.NoError(t, store.Set(testSession()))

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	coord := client.NewRefreshCoordinator(store, func(ctx context.Context, refreshToken string) (*client.Session, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
		}
		<-release
		return &client.Session{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
		}, nil
	})

	leaderDone := make(chan error, 1)
	go func() {
		_, err := coord.Refresh(context.Background())
		leaderDone <- err
	}()

	// once the exchange is in flight, every later caller must wait on it
	<-entered

	const waiterCount = 8
	var wg sync.WaitGroup
	results := make(chan *client.Session, waiterCount)
	for i := 0; i < waiterCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := coord.Refresh(context.Background())
			assert.NoError(t, err)
			results <- session
		}()
	}

	// give the waiters a moment to park before completing the exchange
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-leaderDone)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for session := range results {
		require.NotNil(t, session)
		assert.Equal(t, "fresh-access", session.AccessToken)

		// the store was committed before any waiter woke
		stored, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, "fresh-access", stored.AccessToken)
	}
}

func TestRefreshCoordinator_FailureClearsSession(t *testing.T) {
	store := client.NewMemorySessionStore()
	require.NoError(t, store.Set(testSession()))

	rejected := errors.New("rejected by server")
	coord := client.NewRefreshCoordinator(store, func(ctx context.Context, refreshToken string) (*client.Session, error) {
		return nil, rejected
	})

	session, err := coord.Refresh(context.Background())
	assert.Nil(t, session)
	assert.Error(t, err)

	_, err = store.Get()
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestRefreshCoordinator_InvalidResponseClearsSession(t *testing.T) {
	store := client.NewMemorySessionStore()
	require.NoError(t, store.Set(testSession()))

	coord := client.NewRefreshCoordinator(store, func(ctx context.Context, refreshToken string) (*client.Session, error) {
		return &client.Session{AccessToken: "only-half-a-pair"}, nil
	})

	session, err := coord.Refresh(context.Background())
	assert.Nil(t, session)
	assert.ErrorIs(t, err, client.ErrRefreshFailed)

	_, err = store.Get()
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestRefreshCoordinator_NoSession(t *testing.T) {
	var calls int32
	coord := client.NewRefreshCoordinator(client.NewMemorySessionStore(), func(ctx context.Context, refreshToken string) (*client.Session, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	session, err := coord.Refresh(context.Background())
	assert.Nil(t, session)
	assert.ErrorIs(t, err, client.ErrNoSession)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "exchange should not run without a stored session")
}

func TestRefreshCoordinator_WaiterContextCancellation(t *testing.T) {
	store := client.NewMemorySessionStore()
	require.NoError(t, store.Set(testSession()))

	entered := make(chan struct{})
	release := make(chan struct{})

	coord := client.NewRefreshCoordinator(store, func(ctx context.Context, refreshToken string) (*client.Session, error) {
		close(entered)
		<-release
		return &client.Session{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
		}, nil
	})

	leaderDone := make(chan error, 1)
	go func() {
		_, err := coord.Refresh(context.Background())
		leaderDone <- err
	}()
	<-entered

	waiterCtx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := coord.Refresh(waiterCtx)
		waiterDone <- err
	}()

	// the waiter gives up; the in-flight exchange keeps running
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-waiterDone, context.Canceled)

	close(release)
	require.NoError(t, <-leaderDone)

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", stored.AccessToken)
}
