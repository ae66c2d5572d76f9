package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-vendor-one/internal/adapters"
	"cargo-vendor-one/internal/core"
	"cargo-vendor-one/internal/policies"
	"cargo-vendor-one/internal/types"
)

func TestResolveIntegration(t *testing.T) {
	root := repoRoot(t)
	workspace := filepath.Join(root, "fixtures/workspace")
	cargoHome := filepath.Join(root, "fixtures/cargo-home")

	manifest, err := adapters.NewWorkspaceAdapter().LocateManifest(filepath.Join(workspace, "helper"))
	require.NoError(t, err)
	assert.Equal(t, "Cargo.toml", filepath.Base(manifest))
	assert.Equal(t, "workspace", filepath.Base(filepath.Dir(manifest)))

	resolver := adapters.NewLockfileAdapter(cargoHome)
	resolution, err := resolver.Resolve(t.Context(), manifest)
	require.NoError(t, err)
	require.Len(t, resolution.Members, 2)

	graph := core.OrderGraph(t.Context(), resolution.Graph)
	request, err := core.ParseRequest("foo")
	require.NoError(t, err)
	match, err := core.FindPackage(request, graph)
	require.NoError(t, err)
	require.True(t, match.Ambiguous())
	assert.Equal(t, "1.2.0", match.ID.Version)

	policy, err := policies.NewAmbiguityPolicy(string(types.AmbiguityModeFail))
	require.NoError(t, err)
	require.Error(t, policy.Apply(request.Name, match.Candidates))

	request, err = core.ParseRequest("foo@2")
	require.NoError(t, err)
	match, err = core.FindPackage(request, graph)
	require.NoError(t, err)
	require.False(t, match.Ambiguous())
	pkg, ok := resolution.Packages.Get(match.ID)
	require.True(t, ok)
	assert.Equal(t, "foo-2.0.0", filepath.Base(pkg.Root))
	assert.Equal(t, "crates-io", pkg.ID.Source.DisplayName())
}

func TestVendorIntegration(t *testing.T) {
	root := repoRoot(t)
	cargoHome := filepath.Join(root, "fixtures/cargo-home")
	out := t.TempDir()

	pkgs, err := adapters.NewLockfileAdapter(cargoHome).Resolve(t.Context(),
		filepath.Join(root, "fixtures/workspace/Cargo.toml"))
	require.NoError(t, err)

	request, err := core.ParseRequest("foo@^1")
	require.NoError(t, err)
	match, err := core.FindPackage(request, core.OrderGraph(t.Context(), pkgs.Graph))
	require.NoError(t, err)
	pkg, ok := pkgs.Packages.Get(match.ID)
	require.True(t, ok)

	vendored, err := adapters.NewVendorDirAdapter(filepath.Join(out, "vendor")).Materialize(pkg)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(vendored, "src", "lib.rs"))

	original, err := os.ReadFile(filepath.Join(pkg.Root, "Cargo.toml"))
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(vendored, "Cargo.toml"))
	require.NoError(t, err)
	assert.Equal(t, string(original), string(copied))
}

func repoRoot(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}
