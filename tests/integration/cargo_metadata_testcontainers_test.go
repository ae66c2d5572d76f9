//go:build integration

package integration

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"

	"cargo-vendor-one/internal/adapters"
	"cargo-vendor-one/internal/core"
	"cargo-vendor-one/internal/types"
	"cargo-vendor-one/tests/testutil"
)

const rustImage = "rust:1.83-slim"

// The fixture directory lands either at /work or under it depending on
// how the copy is materialized.
const metadataScript = `M=/work/local-workspace/Cargo.toml
[ -f "$M" ] || M=/work/Cargo.toml
cargo metadata --format-version 1 --all-features --offline --manifest-path "$M" 2>/dev/null`

// TestCargoMetadataDecodeWithTestcontainers runs a real `cargo metadata`
// against the local-workspace fixture and feeds its output through the
// decoder used by the metadata resolver.
func TestCargoMetadataDecodeWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	fixture := filepath.Join(testutil.RepoRoot(t), "fixtures", "local-workspace")
	req := testcontainers.ContainerRequest{
		Image: rustImage,
		Cmd:   []string{"sleep", "infinity"},
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      fixture,
			ContainerFilePath: "/work",
			FileMode:          0o755,
		}},
		WaitingFor: wait.ForExec([]string{"cargo", "--version"}).WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	code, reader, err := container.Exec(ctx, []string{
		"sh", "-c",
		metadataScript,
	}, tcexec.Multiplexed())
	require.NoError(t, err)
	output, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Zero(t, code, string(output))

	resolution, err := adapters.DecodeMetadata(output, nil)
	require.NoError(t, err)

	graph := core.OrderGraph(ctx, resolution.Graph)
	names := make([]string, 0, len(graph))
	for _, id := range graph {
		names = append(names, id.Name)
	}
	assert.Equal(t, []string{"app", "helper"}, names, "dev-only dependencies must not be part of the graph")
	require.Len(t, resolution.Members, 1)
	assert.Equal(t, "app", resolution.Members[0].Name)

	helper := graph[1]
	assert.Equal(t, "0.3.0", helper.Version)
	assert.Equal(t, types.SourceKindPath, helper.Source.Kind)
	pkg, ok := resolution.Packages.Get(helper)
	require.True(t, ok)
	assert.Equal(t, "helper", filepath.Base(pkg.Root))
	assert.True(t, strings.HasPrefix(pkg.Root, "/work/"), pkg.Root)
}
