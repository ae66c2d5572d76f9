package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
)

// reqOps is the ordered list of comparison operators accepted in a
// Cargo version requirement. Longer tokens must precede shorter ones
// (e.g. ">=" before ">").
var reqOps = []string{">=", "<=", ">", "<", "=", "~", "^"}

// VersionReq is a parsed Cargo version requirement such as "^1.2",
// "~0.3" or ">=1, <2".
type VersionReq struct {
	canonical   string
	constraints *semver.Constraints
	// preCores holds "major.minor.patch" of every comparator carrying a
	// pre-release; only versions with one of these cores may be
	// pre-releases.
	preCores []string
}

// ParseVersionReq parses a Cargo version requirement. Bare versions are
// caret requirements, as in Cargo.toml.
func ParseVersionReq(raw string) (*VersionReq, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, malformedRequirement(raw, "empty version requirement")
	}
	if strings.Contains(raw, "||") || strings.Contains(raw, " - ") {
		return nil, malformedRequirement(raw, "alternatives and hyphen ranges are not supported")
	}
	parts := strings.Split(raw, ",")
	comparators := make([]string, 0, len(parts))
	var preCores []string
	for _, part := range parts {
		comparator, err := normalizeComparator(part)
		if err != nil {
			return nil, malformedRequirement(raw, err.Error())
		}
		comparators = append(comparators, comparator)
		if core, ok := preReleaseCore(comparator); ok {
			preCores = append(preCores, core)
		}
	}
	canonical := strings.Join(comparators, ", ")
	constraints, err := semver.NewConstraint(canonical)
	if err != nil {
		return nil, malformedRequirement(raw, err.Error())
	}
	return &VersionReq{canonical: canonical, constraints: constraints, preCores: preCores}, nil
}

// Matches reports whether a concrete version satisfies the requirement.
// Unparseable versions never match. A pre-release version matches only
// when some comparator names a pre-release of the same major.minor.patch.
func (r *VersionReq) Matches(version string) bool {
	if r == nil {
		return true
	}
	parsed, err := semver.StrictNewVersion(version)
	if err != nil {
		return false
	}
	if parsed.Prerelease() != "" {
		core := fmt.Sprintf("%d.%d.%d", parsed.Major(), parsed.Minor(), parsed.Patch())
		if !slices.Contains(r.preCores, core) {
			return false
		}
	}
	return r.constraints.Check(parsed)
}

// String returns the canonical form written into the manifest.
func (r *VersionReq) String() string {
	if r == nil {
		return ""
	}
	return r.canonical
}

func normalizeComparator(part string) (string, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return "", fmt.Errorf("empty comparator")
	}
	if part == "*" {
		return part, nil
	}
	op := ""
	for _, candidate := range reqOps {
		if strings.HasPrefix(part, candidate) {
			op = candidate
			break
		}
	}
	version := strings.TrimSpace(part[len(op):])
	if version == "" {
		return "", fmt.Errorf("comparator %q has no version", part)
	}
	if strings.HasPrefix(version, "v") || strings.HasPrefix(version, "V") {
		return "", fmt.Errorf("unexpected prefix in %q", part)
	}
	version = normalizeWildcards(version)
	if op == "" && !isWildcard(version) {
		op = "^"
	}
	return op + version, nil
}

// splitVersion separates the numeric core from a "-pre" or "+build"
// suffix.
func splitVersion(version string) (string, string) {
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		return version[:i], version[i:]
	}
	return version, ""
}

// normalizeWildcards writes "x" and "X" core segments as "*".
func normalizeWildcards(version string) string {
	core, suffix := splitVersion(version)
	segments := strings.Split(core, ".")
	for i, segment := range segments {
		if segment == "x" || segment == "X" {
			segments[i] = "*"
		}
	}
	return strings.Join(segments, ".") + suffix
}

func isWildcard(version string) bool {
	core, _ := splitVersion(version)
	return slices.Contains(strings.Split(core, "."), "*")
}

func preReleaseCore(comparator string) (string, bool) {
	version := strings.TrimLeft(comparator, "<>=~^")
	core, suffix := splitVersion(version)
	if !strings.HasPrefix(suffix, "-") {
		return "", false
	}
	if len(strings.Split(core, ".")) != 3 || isWildcard(version) {
		return "", false
	}
	return core, true
}

// compareVersions orders two versions by semver precedence, falling back
// to a plain string comparison when either side is not valid semver.
func compareVersions(a string, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

func malformedRequirement(raw string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("malformed request: invalid version requirement %q: %s", raw, reason))
}
