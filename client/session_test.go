package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-project-auth/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *client.Session {
	return &client.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		UserID:       "11111111-2222-3333-4444-555555555555",
		Email:        "ada@example.com",
		Username:     "ada",
	}
}

func TestSession_Valid(t *testing.T) {
	assert.True(t, testSession().Valid())

	var nilSession *client.Session
	assert.False(t, nilSession.Valid())
	assert.False(t, (&client.Session{AccessToken: "a"}).Valid())
	assert.False(t, (&client.Session{RefreshToken: "r"}).Valid())
	assert.False(t, (&client.Session{}).Valid())
}

func TestMemorySessionStore(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		store := client.NewMemorySessionStore()
		session, err := store.Get()
		assert.Nil(t, session)
		assert.ErrorIs(t, err, client.ErrNoSession)
	})

	t.Run("round trip", func(t *testing.T) {
		store := client.NewMemorySessionStore()
		require.NoError(t, store.Set(testSession()))

		got, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, testSession(), got)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := client.NewMemorySessionStore()
		require.NoError(t, store.Set(testSession()))

		got, err := store.Get()
		require.NoError(t, err)
		got.AccessToken = "mutated"

		again, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, "access-token", again.AccessToken)
	})

	t.Run("clear", func(t *testing.T) {
		store := client.NewMemorySessionStore()
		require.NoError(t, store.Set(testSession()))
		require.NoError(t, store.Clear())

		_, err := store.Get()
		assert.ErrorIs(t, err, client.ErrNoSession)
	})
}

func TestFileSessionStore(t *testing.T) {
	t.Run("missing file reads as no session", func(t *testing.T) {
		store := client.NewFileSessionStore(filepath.Join(t.TempDir(), "session.json"))
		session, err := store.Get()
		assert.Nil(t, session)
		assert.ErrorIs(t, err, client.ErrNoSession)
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := client.NewFileSessionStore(path)
		require.NoError(t, store.Set(testSession()))

		got, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, testSession(), got)
	})

	t.Run("session file is private", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := client.NewFileSessionStore(path)
		require.NoError(t, store.Set(testSession()))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("creates missing directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deeper", "session.json")
		store := client.NewFileSessionStore(path)
		require.NoError(t, store.Set(testSession()))

		_, err := store.Get()
		require.NoError(t, err)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		store := client.NewFileSessionStore(path)
		_, err := store.Get()
		assert.Error(t, err)
		assert.NotErrorIs(t, err, client.ErrNoSession)
	})

	t.Run("incomplete session reads as no session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"a"}`), 0o600))

		store := client.NewFileSessionStore(path)
		_, err := store.Get()
		assert.ErrorIs(t, err, client.ErrNoSession)
	})

	t.Run("clear removes the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		store := client.NewFileSessionStore(path)
		require.NoError(t, store.Set(testSession()))
		require.NoError(t, store.Clear())

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))

		// clearing an already empty store is not an error
		require.NoError(t, store.Clear())
	})
}
