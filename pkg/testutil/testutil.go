// Package testutil provides small filesystem helpers shared by the
// package tests. Everything works on real temp directories; tests that
// need isolation create their own with t.TempDir().
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile creates a file with the given content under dir and
// returns its full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// MkDir creates a directory under dir and returns its full path.
func MkDir(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

// Symlink creates a symlink at linkPath pointing to target.
func Symlink(t *testing.T, target, linkPath string) {
	t.Helper()
	require.NoError(t, os.Symlink(target, linkPath))
}

// ReadDirNames returns the sorted names of dir's entries.
func ReadDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// IsSymlink reports whether path is a symbolic link.
func IsSymlink(t *testing.T, path string) bool {
	t.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}
