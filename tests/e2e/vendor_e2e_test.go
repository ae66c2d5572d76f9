package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-vendor-one/tests/testutil"
)

type runResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func runVendorOne(t *testing.T, binary string, dir string, cargoHome string, args ...string) runResult {
	t.Helper()
	full := append([]string{"vendor-one"}, args...)
	full = append(full, "--resolver", "lockfile", "--cargo-home", cargoHome)
	cmd := exec.Command(binary, full...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CARGO_HOME="+cargoHome)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	result := runResult{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.exitCode = exitErr.ExitCode()
	} else {
		require.NoError(t, err)
	}
	return result
}

func TestVendorCommandE2E(t *testing.T) {
	binary := testutil.BuildBinary(t)
	workspace := testutil.CopyFixture(t, "workspace")
	cargoHome := testutil.CopyFixture(t, "cargo-home")
	original := testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml"))

	result := runVendorOne(t, binary, workspace, cargoHome, "foo@^1")
	require.Zero(t, result.exitCode, result.stderr)

	vendored := filepath.Join(workspace, "vendor", "foo-1.2.0")
	assert.Equal(t, "Vendored 1 packages\nfoo@^1 => "+vendored+"\n", result.stdout)
	assert.FileExists(t, filepath.Join(vendored, "src", "lib.rs"))

	manifest := testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml"))
	assert.Equal(t, original+"\n[patch.crates-io.foo]\npath = \""+vendored+"\"\nversion = \"^1\"\n", manifest)
}

func TestVendorCommandE2EAmbiguity(t *testing.T) {
	binary := testutil.BuildBinary(t)
	workspace := testutil.CopyFixture(t, "workspace")
	cargoHome := testutil.CopyFixture(t, "cargo-home")
	original := testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml"))

	result := runVendorOne(t, binary, workspace, cargoHome, "foo", "--on-ambiguity", "fail")
	assert.Equal(t, 3, result.exitCode)
	assert.Empty(t, result.stdout)
	assert.Contains(t, result.stderr, "ambiguous package")
	assert.Equal(t, original, testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml")))

	result = runVendorOne(t, binary, workspace, cargoHome, "foo")
	require.Zero(t, result.exitCode, result.stderr)
	assert.Contains(t, result.stderr, "There are multiple versions of foo available. Try specifying a version.")
	assert.Contains(t, result.stdout, "foo => "+filepath.Join(workspace, "vendor", "foo-1.2.0"))

	result = runVendorOne(t, binary, workspace, cargoHome, "foo", "--log-level", "error")
	require.Zero(t, result.exitCode, result.stderr)
	assert.Contains(t, result.stderr, "There are multiple versions of foo available. Try specifying a version.")
}

func TestVendorCommandE2EFailures(t *testing.T) {
	binary := testutil.BuildBinary(t)
	workspace := testutil.CopyFixture(t, "workspace")
	cargoHome := testutil.CopyFixture(t, "cargo-home")
	original := testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml"))

	result := runVendorOne(t, binary, workspace, cargoHome, "foo@^1", "missing")
	assert.Equal(t, 6, result.exitCode)
	assert.Empty(t, result.stdout)
	assert.Contains(t, result.stderr, "package not found: missing")
	assert.Equal(t, original, testutil.ReadFile(t, filepath.Join(workspace, "Cargo.toml")))

	result = runVendorOne(t, binary, workspace, cargoHome, "foo@1@2")
	assert.Equal(t, 2, result.exitCode)

	result = runVendorOne(t, binary, t.TempDir(), cargoHome, "foo")
	assert.Equal(t, 5, result.exitCode)
}

func TestVendorCommandE2EUsage(t *testing.T) {
	binary := testutil.BuildBinary(t)
	workspace := testutil.CopyFixture(t, "workspace")

	for _, args := range [][]string{{"vendor-one"}, {"vendor-one", "foo", "--help"}} {
		cmd := exec.Command(binary, args...)
		cmd.Dir = workspace
		out, err := cmd.Output()
		require.NoError(t, err)
		assert.Equal(t, "Usage: cargo vendor-one package1[@version1] [package2[@version2] ...]\n", string(out))
	}
	_, err := os.Stat(filepath.Join(workspace, "vendor"))
	assert.True(t, os.IsNotExist(err), "usage must not touch the filesystem")
}
