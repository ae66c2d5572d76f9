package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-vendor-one/internal/types"
)

const lockFixture = `# This file is automatically @generated by Cargo.
version = 3

[[package]]
name = "app"
version = "0.1.0"
dependencies = [
 "helper",
 "log",
 "mini",
]

[[package]]
name = "helper"
version = "0.2.0"

[[package]]
name = "log"
version = "0.4.22"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "a7a70ba024b9dc04c27ea2f0c0548feb474ec5c54bba33a7f72f873a39d07b24"

[[package]]
name = "mini"
version = "1.0.0"
source = "git+https://github.com/example/mini?branch=main#0123456789abcdef"
`

func writeLockWorkspace(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	home := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[workspace]
members = ["app"]
`)
	writeFile(t, filepath.Join(root, "app", "Cargo.toml"), `[package]
name = "app"
version = "0.1.0"

[dependencies]
log = "0.4"
helper = { path = "../helper" }
mini = { git = "https://github.com/example/mini", branch = "main" }
`)
	writeFile(t, filepath.Join(root, "helper", "Cargo.toml"), "[package]\nname = \"helper\"\nversion = \"0.2.0\"\n")
	writeFile(t, filepath.Join(root, "Cargo.lock"), lockFixture)

	writeFile(t, filepath.Join(home, "registry", "src", "index.crates.io-6f17d22bba15001f", "log-0.4.22", "Cargo.toml"),
		"[package]\nname = \"log\"\nversion = \"0.4.22\"\n")
	writeFile(t, filepath.Join(home, "git", "checkouts", "mini-1a2b3c4d", "0123456", "crates", "mini", "Cargo.toml"),
		"[package]\nname = \"mini\"\nversion = \"1.0.0\"\n")
	return root, home
}

func TestLockfileAdapter_ResolvesFromCargoHome(t *testing.T) {
	root, home := writeLockWorkspace(t)
	adapter := NewLockfileAdapter(home)

	resolution, err := adapter.Resolve(context.Background(), filepath.Join(root, "Cargo.toml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "helper", "log", "mini"}, graphNames(resolution.Graph))
	require.Len(t, resolution.Members, 1)
	assert.Equal(t, "app", resolution.Members[0].Name)

	roots := map[string]types.Package{}
	for _, id := range resolution.Graph {
		pkg, ok := resolution.Packages.Get(id)
		require.True(t, ok)
		roots[id.Name] = pkg
	}
	assert.Equal(t, filepath.Join(root, "helper"), roots["helper"].Root)
	assert.Equal(t, types.SourceKindPath, roots["helper"].ID.Source.Kind)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "helper")), roots["helper"].ID.Source.URL)
	assert.Equal(t, filepath.Join(home, "registry", "src", "index.crates.io-6f17d22bba15001f", "log-0.4.22"), roots["log"].Root)
	assert.Equal(t, "crates-io", roots["log"].ID.Source.DisplayName())
	assert.Equal(t, filepath.Join(home, "git", "checkouts", "mini-1a2b3c4d", "0123456", "crates", "mini"), roots["mini"].Root)
	assert.Equal(t, "https://github.com/example/mini", roots["mini"].ID.Source.DisplayName())
	assert.Equal(t, filepath.Join(home, ".package-cache"), adapter.CacheLockPath())
}

func TestLockfileAdapter_MissingLockIsResolutionError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"app\"\nversion = \"0.1.0\"\n")

	_, err := NewLockfileAdapter(t.TempDir()).Resolve(context.Background(), filepath.Join(root, "Cargo.toml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "no Cargo.lock")
}

func TestLockfileAdapter_MissingCacheSuggestsFetch(t *testing.T) {
	root, _ := writeLockWorkspace(t)

	_, err := NewLockfileAdapter(t.TempDir()).Resolve(context.Background(), filepath.Join(root, "Cargo.toml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "cargo fetch")
}

func TestLockfileAdapter_InheritedWorkspaceVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[workspace]
members = ["crates/*"]

[workspace.package]
version = "2.1.0"
`)
	writeFile(t, filepath.Join(root, "crates", "core", "Cargo.toml"), `[package]
name = "core"
version.workspace = true
`)
	writeFile(t, filepath.Join(root, "Cargo.lock"), "version = 3\n\n[[package]]\nname = \"core\"\nversion = \"2.1.0\"\n")

	resolution, err := NewLockfileAdapter(t.TempDir()).Resolve(context.Background(), filepath.Join(root, "Cargo.toml"))
	require.NoError(t, err)
	require.Len(t, resolution.Members, 1)
	assert.Equal(t, "2.1.0", resolution.Members[0].Version)
}
