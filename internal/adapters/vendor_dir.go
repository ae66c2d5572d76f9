package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/types"
)

const DefaultVendorDir = "vendor"

// VendorDirAdapter copies package roots into Dir/<basename of root>.
// A relative Dir is taken from the process working directory.
type VendorDirAdapter struct {
	Dir string
}

func NewVendorDirAdapter(dir string) VendorDirAdapter {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultVendorDir
	}
	return VendorDirAdapter{Dir: dir}
}

func (a VendorDirAdapter) Materialize(pkg types.Package) (string, error) {
	name, err := vendorName(pkg.Root)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(a.Dir, name)

	if sameDir(pkg.Root, dest) {
		log.Info().Str("package", pkg.ID.Name).Str("path", dest).Msg("package already vendored")
		return canonicalPath(dest)
	}
	if nested, err := isWithin(pkg.Root, dest); err != nil {
		return "", err
	} else if nested {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("invalid package path: " + pkg.Root + " contains the vendor directory " + a.Dir)
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", ioError("failed to create vendor directory "+a.Dir, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		log.Warn().Err(err).Str("path", dest).Msg("failed to remove previous vendored copy")
	}
	err = copy.Copy(pkg.Root, dest, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
	})
	if err != nil {
		return "", ioError("failed to copy "+pkg.Root+" to "+dest, err)
	}
	log.Debug().Str("package", pkg.ID.String()).Str("path", dest).Msg("vendored package")
	return canonicalPath(dest)
}

func vendorName(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", invalidPackagePath(root)
	}
	name := filepath.Base(filepath.Clean(root))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", invalidPackagePath(root)
	}
	return name, nil
}

func invalidPackagePath(root string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("invalid package path: " + root + " has no final component")
}

func sameDir(a string, b string) bool {
	left, err := canonicalPath(a)
	if err != nil {
		return false
	}
	right, err := canonicalPath(b)
	if err != nil {
		return false
	}
	return left == right
}

// isWithin reports whether path lies inside root. Symlinks are resolved
// on root and on the longest existing prefix of path.
func isWithin(root string, path string) (bool, error) {
	base, err := canonicalPath(root)
	if err != nil {
		return false, err
	}
	target, err := canonicalPrefix(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func canonicalPrefix(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ioError("failed to resolve "+path, err)
	}
	var rest []string
	for dir := abs; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
	}
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ioError("failed to resolve "+path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", ioError("failed to resolve "+path, err)
	}
	return resolved, nil
}

var _ ports.VendorPort = VendorDirAdapter{}
