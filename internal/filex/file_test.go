package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureDir(root, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "users", "u1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDir_Idempotent(t *testing.T) {
	root := t.TempDir()

	first, err := EnsureDir(root, "users")
	require.NoError(t, err)
	second, err := EnsureDir(root, "users")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureDir_FailsOnFileCollision(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "users")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path, "u1")
	assert.Error(t, err)
}
