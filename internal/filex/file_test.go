package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "data", "miroir.db")

	got, err := EnsureParentDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(filepath.Dir(want))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "miroir.db")

	_, err := EnsureParentDir(path)
	require.NoError(t, err)
	_, err = EnsureParentDir(path)
	require.NoError(t, err)
}

func TestEnsureParentDir_InMemoryUntouched(t *testing.T) {
	for _, dsn := range []string{":memory:", "file:x?mode=memory", ""} {
		got, err := EnsureParentDir(dsn)
		require.NoError(t, err)
		require.Equal(t, dsn, got)
	}
}

func TestEnsureParentDir_FailsIfFileBlocksDirectory(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "miroir.db"))
	require.Error(t, err)
}

func TestReadLimited(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "photo.jpg")
	require.NoError(t, os.WriteFile(p, []byte("0123456789"), 0o600))

	b, err := ReadLimited(p, 10)
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(b))

	_, err = ReadLimited(p, 9)
	require.Error(t, err)

	_, err = ReadLimited(tmp, 100)
	require.Error(t, err)

	_, err = ReadLimited(filepath.Join(tmp, "missing"), 100)
	require.Error(t, err)
}
