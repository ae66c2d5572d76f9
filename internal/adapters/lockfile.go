package adapters

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/types"
)

// LockfileAdapter resolves a workspace offline from its Cargo.lock and
// the sources already present in the Cargo home. Cargo.lock carries no
// dependency kinds, so dev-only packages are part of the graph.
type LockfileAdapter struct {
	CargoHome string
}

func NewLockfileAdapter(cargoHome string) LockfileAdapter {
	return LockfileAdapter{CargoHome: cargoHome}
}

type cargoLock struct {
	Version int               `toml:"version"`
	Package []lockfilePackage `toml:"package"`
}

type lockfilePackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

type localPackage struct {
	name         string
	version      string
	manifestPath string
	member       bool
}

func (a LockfileAdapter) Resolve(ctx context.Context, manifestPath string) (types.Resolution, error) {
	rootDir := filepath.Dir(manifestPath)
	lockPath := filepath.Join(rootDir, "Cargo.lock")
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Resolution{}, resolutionFailed("no Cargo.lock at "+lockPath+"; run `cargo generate-lockfile` or use the metadata resolver", nil)
		}
		return types.Resolution{}, ioError("failed to read "+lockPath, err)
	}
	var lock cargoLock
	if _, err := toml.Decode(string(data), &lock); err != nil {
		return types.Resolution{}, resolutionFailed("failed to parse "+lockPath, err)
	}

	locals, err := discoverLocalPackages(manifestPath)
	if err != nil {
		return types.Resolution{}, err
	}
	home := a.cargoHome()
	registries := RegistryNames(rootDir, home)

	resolution := types.Resolution{Packages: types.PackageSet{}}
	for _, entry := range lock.Package {
		if err := ctx.Err(); err != nil {
			return types.Resolution{}, err
		}
		var pkg types.Package
		if entry.Source == "" {
			local, ok := locals[entry.Name+"@"+entry.Version]
			if !ok {
				return types.Resolution{}, resolutionFailed("path package "+entry.Name+" "+entry.Version+" is not reachable from "+manifestPath+"; Cargo.lock may be stale", nil)
			}
			root := filepath.Dir(local.manifestPath)
			source := types.SourceID{Kind: types.SourceKindPath, URL: "file://" + filepath.ToSlash(root)}
			pkg = types.Package{
				ID:           types.PackageID{Name: entry.Name, Version: entry.Version, Source: source},
				Root:         root,
				ManifestPath: local.manifestPath,
			}
			if local.member {
				resolution.Members = append(resolution.Members, pkg.ID)
			}
		} else {
			source, err := ParseSourceID(entry.Source, "", registries)
			if err != nil {
				return types.Resolution{}, err
			}
			root, err := locateCachedSource(home, entry.Name, entry.Version, source)
			if err != nil {
				return types.Resolution{}, err
			}
			pkg = types.Package{
				ID:           types.PackageID{Name: entry.Name, Version: entry.Version, Source: source},
				Root:         root,
				ManifestPath: filepath.Join(root, manifestFileName),
			}
		}
		resolution.Packages[pkg.ID] = pkg
		resolution.Graph = append(resolution.Graph, pkg.ID)
	}
	log.Debug().Int("packages", len(resolution.Graph)).Str("lockfile", lockPath).Msg("resolved from lock file")
	return resolution, nil
}

func (a LockfileAdapter) CacheLockPath() string {
	return filepath.Join(a.cargoHome(), ".package-cache")
}

func (a LockfileAdapter) cargoHome() string {
	if a.CargoHome != "" {
		return a.CargoHome
	}
	return DefaultCargoHome()
}

func locateCachedSource(home string, name string, version string, source types.SourceID) (string, error) {
	switch source.Kind {
	case types.SourceKindRegistry, types.SourceKindSparse:
		pattern := filepath.Join(home, "registry", "src", "*", name+"-"+version)
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return "", ioError("failed to search the registry cache", err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if fileExists(filepath.Join(match, manifestFileName)) {
				return match, nil
			}
		}
	case types.SourceKindGit:
		if len(source.Precise) >= 7 {
			pattern := filepath.Join(home, "git", "checkouts", "*", source.Precise[:7])
			checkouts, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return "", ioError("failed to search the git checkouts", err)
			}
			sort.Strings(checkouts)
			for _, checkout := range checkouts {
				if root := findPackageInTree(checkout, name); root != "" {
					return root, nil
				}
			}
		}
	}
	return "", resolutionFailed(name+" "+version+" ("+source.DisplayName()+") is not in the Cargo home cache; run `cargo fetch` first", nil)
}

func findPackageInTree(dir string, name string) string {
	var found string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return filepath.SkipDir
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "target" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != manifestFileName {
			return nil
		}
		manifest, err := readCargoManifest(p)
		if err == nil && manifest.packageName() == name {
			found = filepath.Dir(p)
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// discoverLocalPackages walks the workspace members and the path
// dependencies reachable from them, keyed by "name@version".
func discoverLocalPackages(rootManifest string) (map[string]localPackage, error) {
	root, err := readCargoManifest(rootManifest)
	if err != nil {
		return nil, err
	}
	rootDir := filepath.Dir(rootManifest)

	members := []string{rootManifest}
	if root.Workspace != nil {
		expanded, err := expandMembers(rootDir, *root.Workspace)
		if err != nil {
			return nil, err
		}
		members = append(members, expanded...)
	}

	locals := map[string]localPackage{}
	isMember := map[string]bool{}
	for _, member := range members {
		isMember[member] = true
	}
	seen := map[string]bool{}
	queue := append([]string(nil), members...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		manifest, err := readCargoManifest(current)
		if err != nil {
			return nil, err
		}
		if name := manifest.packageName(); name != "" {
			version := manifest.packageVersion(&root)
			locals[name+"@"+version] = localPackage{
				name:         name,
				version:      version,
				manifestPath: current,
				member:       isMember[current],
			}
		}
		for _, dir := range manifest.pathDependencies(filepath.Dir(current)) {
			candidate := filepath.Join(dir, manifestFileName)
			if fileExists(candidate) {
				queue = append(queue, candidate)
			}
		}
	}
	return locals, nil
}

func expandMembers(rootDir string, ws cargoWorkspaceSection) ([]string, error) {
	fsys := os.DirFS(rootDir)
	var manifests []string
	for _, pattern := range ws.Members {
		pattern = path.Clean(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, resolutionFailed("invalid workspace member pattern "+pattern, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if match == "." {
				continue
			}
			dir := filepath.Join(rootDir, filepath.FromSlash(match))
			if !workspaceCovers(ws, rootDir, dir) {
				continue
			}
			candidate := filepath.Join(dir, manifestFileName)
			if fileExists(candidate) {
				manifests = append(manifests, candidate)
			}
		}
	}
	return manifests, nil
}

var _ ports.ResolverPort = LockfileAdapter{}
