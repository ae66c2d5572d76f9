package adapters

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
)

type cargoManifest struct {
	Package           *cargoPackageSection          `toml:"package"`
	Workspace         *cargoWorkspaceSection        `toml:"workspace"`
	Dependencies      map[string]any                `toml:"dependencies"`
	DevDependencies   map[string]any                `toml:"dev-dependencies"`
	BuildDependencies map[string]any                `toml:"build-dependencies"`
	Target            map[string]cargoTargetSection `toml:"target"`
	Patch             map[string]map[string]any     `toml:"patch"`
}

type cargoPackageSection struct {
	Name    string `toml:"name"`
	Version any    `toml:"version"`
}

type cargoWorkspaceSection struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
	Package struct {
		Version string `toml:"version"`
	} `toml:"package"`
}

type cargoTargetSection struct {
	Dependencies      map[string]any `toml:"dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

func readCargoManifest(path string) (cargoManifest, error) {
	var manifest cargoManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read manifest " + path).
			WithCause(err)
	}
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return manifest, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse manifest " + path).
			WithCause(err)
	}
	return manifest, nil
}

func (m cargoManifest) packageName() string {
	if m.Package == nil {
		return ""
	}
	return m.Package.Name
}

// packageVersion resolves version.workspace = true against the
// workspace manifest when one is given.
func (m cargoManifest) packageVersion(workspace *cargoManifest) string {
	if m.Package == nil {
		return ""
	}
	switch value := m.Package.Version.(type) {
	case string:
		return value
	case map[string]any:
		if inherit, ok := value["workspace"].(bool); ok && inherit && workspace != nil && workspace.Workspace != nil {
			return workspace.Workspace.Package.Version
		}
	case nil:
		return "0.0.0"
	}
	return ""
}

// pathDependencies lists the directories of every dependency declared
// with a path key, including patch entries, relative to dir.
func (m cargoManifest) pathDependencies(dir string) []string {
	seen := map[string]bool{}
	var out []string
	collect := func(deps map[string]any) {
		for _, raw := range deps {
			table, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			rel, ok := table["path"].(string)
			if !ok || rel == "" {
				continue
			}
			abs := filepath.Clean(filepath.Join(dir, filepath.FromSlash(rel)))
			if !seen[abs] {
				seen[abs] = true
				out = append(out, abs)
			}
		}
	}
	collect(m.Dependencies)
	collect(m.BuildDependencies)
	for _, target := range m.Target {
		collect(target.Dependencies)
		collect(target.BuildDependencies)
	}
	for _, patches := range m.Patch {
		collect(patches)
	}
	sort.Strings(out)
	return out
}
