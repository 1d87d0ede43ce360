package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lyra-cli/internal/store"
)

func TestLoginPersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	kv := store.Store{Dir: filepath.Join(t.TempDir(), "state")}

	s, err := New(ctx, kv)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.ErrorIs(t, s.Require(), ErrNotLoggedIn)

	require.NoError(t, s.Login(ctx, " tok "))
	assert.Equal(t, "tok", s.Token())

	again, err := New(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Token())
	assert.NoError(t, again.Require())
}

func TestLogoutClearsAndNotifies(t *testing.T) {
	ctx := context.Background()
	kv := store.Store{Dir: filepath.Join(t.TempDir(), "state")}
	s, err := New(ctx, kv)
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, "tok"))

	calls := 0
	s.OnLogout(func() { calls++ })

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.Authenticated())
	assert.Equal(t, 1, calls)

	// Logging out twice does not notify again.
	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, 1, calls)

	_, ok, err := kv.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingKV) Set(context.Context, string, string) error       { return errors.New("disk full") }
func (failingKV) Delete(context.Context, string) error            { return errors.New("disk full") }

func TestLoginFailureKeepsSessionEmpty(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, failingKV{})
	require.NoError(t, err)
	assert.Error(t, s.Login(ctx, "tok"))
	assert.False(t, s.Authenticated())
	assert.Error(t, s.Login(ctx, "   "))
}

func TestInMemorySession(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, "tok"))
	require.NoError(t, s.Logout(ctx))
	assert.Empty(t, s.Token())
}
