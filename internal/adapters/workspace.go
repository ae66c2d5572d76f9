package adapters

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/ports"
)

const manifestFileName = "Cargo.toml"

type WorkspaceAdapter struct{}

func NewWorkspaceAdapter() WorkspaceAdapter {
	return WorkspaceAdapter{}
}

// LocateManifest returns the root manifest of the project enclosing
// start: the nearest Cargo.toml, or the workspace that claims it.
func (a WorkspaceAdapter) LocateManifest(start string) (string, error) {
	dir, err := canonicalStart(start)
	if err != nil {
		return "", err
	}
	nearest, err := findManifestUpwards(dir)
	if err != nil {
		return "", err
	}
	manifest, err := readCargoManifest(nearest)
	if err != nil {
		return "", err
	}
	if manifest.Workspace != nil {
		return nearest, nil
	}

	packageDir := filepath.Dir(nearest)
	for parent := filepath.Dir(packageDir); ; parent = filepath.Dir(parent) {
		candidate := filepath.Join(parent, manifestFileName)
		if fileExists(candidate) {
			root, err := readCargoManifest(candidate)
			if err != nil {
				return "", err
			}
			if root.Workspace != nil && workspaceCovers(*root.Workspace, parent, packageDir) {
				log.Debug().Str("member", nearest).Str("root", candidate).Msg("package belongs to workspace")
				return candidate, nil
			}
		}
		if parent == filepath.Dir(parent) {
			break
		}
	}
	return nearest, nil
}

func canonicalStart(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", ioError("failed to determine working directory", err)
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", ioError("failed to resolve "+start, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", ioError("failed to resolve "+start, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", ioError("failed to stat "+resolved, err)
	}
	if !info.IsDir() {
		return filepath.Dir(resolved), nil
	}
	return resolved, nil
}

func findManifestUpwards(dir string) (string, error) {
	for current := dir; ; current = filepath.Dir(current) {
		candidate := filepath.Join(current, manifestFileName)
		if fileExists(candidate) {
			return candidate, nil
		}
		if current == filepath.Dir(current) {
			break
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("could not find `Cargo.toml` in `" + dir + "` or any parent directory")
}

func workspaceCovers(ws cargoWorkspaceSection, rootDir string, packageDir string) bool {
	rel, err := filepath.Rel(rootDir, packageDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range ws.Exclude {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return false
		}
	}
	for _, pattern := range ws.Members {
		pattern = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(pattern)), "/")
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("stat failed")
		}
		return false
	}
	return !info.IsDir()
}

func ioError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.WorkspacePort = WorkspaceAdapter{}
