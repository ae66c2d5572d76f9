// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// CopyFixture copies fixtures/<name> into a fresh temp directory and
// returns the canonical path of the copy, so tests can mutate it freely.
func CopyFixture(t *testing.T, name string) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), name)
	require.NoError(t, copy.Copy(filepath.Join(RepoRoot(t), "fixtures", name), dest))
	resolved, err := filepath.EvalSymlinks(dest)
	require.NoError(t, err)
	return resolved
}

// BuildBinary compiles the cargo-vendor-one command into a temp
// directory and returns the binary path.
func BuildBinary(t *testing.T) string {
	t.Helper()
	binary := filepath.Join(t.TempDir(), "cargo-vendor-one")
	cmd := exec.Command("go", "build", "-o", binary, "./cmd/cargo-vendor-one")
	cmd.Dir = RepoRoot(t)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return binary
}

// ReadFile returns the content of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
