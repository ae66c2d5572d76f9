package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/shared"
	"cargo-vendor-one/internal/types"
)

// CommandRunner executes name with args and returns its stdout. Extra
// environment entries are appended to the current environment.
type CommandRunner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, shared.CommandError(stderr.Bytes(), err)
	}
	return stdout.Bytes(), nil
}

// CargoMetadataAdapter resolves a workspace by running `cargo metadata`,
// which seeds from the existing Cargo.lock and fetches what is missing.
type CargoMetadataAdapter struct {
	Cargo     string
	CargoHome string
	Offline   bool
	Locked    bool
	Run       CommandRunner
}

func NewCargoMetadataAdapter(cargo string, cargoHome string, offline bool, locked bool) CargoMetadataAdapter {
	if cargo == "" {
		cargo = "cargo"
	}
	return CargoMetadataAdapter{
		Cargo:     cargo,
		CargoHome: cargoHome,
		Offline:   offline,
		Locked:    locked,
		Run:       execCommand,
	}
}

func (a CargoMetadataAdapter) Resolve(ctx context.Context, manifestPath string) (types.Resolution, error) {
	args := []string{"metadata", "--format-version", "1", "--all-features", "--manifest-path", manifestPath}
	if a.Offline {
		args = append(args, "--offline")
	}
	if a.Locked {
		args = append(args, "--locked")
	}
	var env []string
	if a.CargoHome != "" {
		env = append(env, "CARGO_HOME="+a.CargoHome)
	}
	run := a.Run
	if run == nil {
		run = execCommand
	}

	log.Debug().Str("cargo", a.Cargo).Strs("args", args).Msg("running cargo metadata")
	output, err := run(ctx, env, a.Cargo, args...)
	if err != nil {
		return types.Resolution{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("resolution failed: cargo metadata exited with an error").
			WithCause(err)
	}
	registries := RegistryNames(filepath.Dir(manifestPath), a.cargoHome())
	return DecodeMetadata(output, registries)
}

func (a CargoMetadataAdapter) CacheLockPath() string {
	return filepath.Join(a.cargoHome(), ".package-cache-vendor-one")
}

func (a CargoMetadataAdapter) cargoHome() string {
	if a.CargoHome != "" {
		return a.CargoHome
	}
	return DefaultCargoHome()
}

type metadataOutput struct {
	Packages         []metadataPackage `json:"packages"`
	WorkspaceMembers []string          `json:"workspace_members"`
	Resolve          *metadataResolve  `json:"resolve"`
}

type metadataPackage struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Version      string  `json:"version"`
	Source       *string `json:"source"`
	ManifestPath string  `json:"manifest_path"`
}

type metadataResolve struct {
	Nodes []metadataNode `json:"nodes"`
}

type metadataNode struct {
	ID   string        `json:"id"`
	Deps []metadataDep `json:"deps"`
}

type metadataDep struct {
	Pkg      string `json:"pkg"`
	DepKinds []struct {
		Kind *string `json:"kind"`
	} `json:"dep_kinds"`
}

// devOnly reports whether every declared kind of the edge is "dev".
// Edges without kind information are normal dependencies.
func (d metadataDep) devOnly() bool {
	if len(d.DepKinds) == 0 {
		return false
	}
	for _, kind := range d.DepKinds {
		if kind.Kind == nil || *kind.Kind != "dev" {
			return false
		}
	}
	return true
}

// DecodeMetadata turns `cargo metadata --format-version 1` output into a
// resolution holding the packages reachable from the workspace members
// through non-dev edges.
func DecodeMetadata(data []byte, registries map[string]string) (types.Resolution, error) {
	var output metadataOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return types.Resolution{}, resolutionFailed("failed to decode cargo metadata output", err)
	}
	if output.Resolve == nil {
		return types.Resolution{}, resolutionFailed("cargo metadata output has no resolve graph", nil)
	}

	ids := make(map[string]types.PackageID, len(output.Packages))
	packages := make(map[string]types.Package, len(output.Packages))
	for _, pkg := range output.Packages {
		root := filepath.Dir(pkg.ManifestPath)
		raw := ""
		if pkg.Source != nil {
			raw = *pkg.Source
		}
		source, err := ParseSourceID(raw, "file://"+filepath.ToSlash(root), registries)
		if err != nil {
			return types.Resolution{}, err
		}
		id := types.PackageID{Name: pkg.Name, Version: pkg.Version, Source: source}
		ids[pkg.ID] = id
		packages[pkg.ID] = types.Package{ID: id, Root: root, ManifestPath: pkg.ManifestPath}
	}

	nodes := make(map[string]metadataNode, len(output.Resolve.Nodes))
	for _, node := range output.Resolve.Nodes {
		nodes[node.ID] = node
	}

	resolution := types.Resolution{Packages: types.PackageSet{}}
	visited := map[string]bool{}
	queue := append([]string(nil), output.WorkspaceMembers...)
	for _, member := range output.WorkspaceMembers {
		id, ok := ids[member]
		if !ok {
			return types.Resolution{}, resolutionFailed("workspace member "+member+" missing from package list", nil)
		}
		resolution.Members = append(resolution.Members, id)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		pkg, ok := packages[current]
		if !ok {
			return types.Resolution{}, resolutionFailed("resolve node "+current+" missing from package list", nil)
		}
		resolution.Packages[pkg.ID] = pkg
		resolution.Graph = append(resolution.Graph, pkg.ID)
		for _, dep := range nodes[current].Deps {
			if dep.devOnly() || visited[dep.Pkg] {
				continue
			}
			queue = append(queue, dep.Pkg)
		}
	}
	return resolution, nil
}

func resolutionFailed(msg string, err error) error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("resolution failed: " + msg)
	if err != nil {
		builder = builder.WithCause(err)
	}
	return builder
}

var _ ports.ResolverPort = CargoMetadataAdapter{}
