package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: filepath.Join(t.TempDir(), "nested", "state")}

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyToken, "tok-2"))
	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-2", v)

	// Keys are independent.
	require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
	require.NoError(t, s.Delete(ctx, KeyToken))
	_, ok, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err = s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	// A second handle on the same dir sees the same state.
	v, ok, err = Store{Dir: s.Dir}.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestStateDirIsPrivate(t *testing.T) {
	s := Store{Dir: filepath.Join(t.TempDir(), "lyra")}
	require.NoError(t, s.Set(context.Background(), KeyAPIURL, "http://localhost:8000"))
	fi, err := os.Stat(s.Dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
}

func TestEnsureRequiresDir(t *testing.T) {
	assert.Error(t, Store{}.Ensure())
}

func TestDefaultDirHonorsEnv(t *testing.T) {
	t.Setenv("LYRA_DIR", "/tmp/lyra-test-dir")
	d, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lyra-test-dir", d)
}
