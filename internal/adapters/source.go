package adapters

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"cargo-vendor-one/internal/types"
)

const (
	cratesIOName      = "crates-io"
	cratesIOGitIndex  = "https://github.com/rust-lang/crates.io-index"
	cratesIOSparseURL = "https://index.crates.io"
)

// ParseSourceID decodes a cargo source string as found in Cargo.lock and
// cargo metadata output. An empty string is a path source rooted at
// pathURL. registries maps normalized index URLs to registry names.
func ParseSourceID(raw string, pathURL string, registries map[string]string) (types.SourceID, error) {
	if raw == "" {
		return types.SourceID{Kind: types.SourceKindPath, URL: pathURL}, nil
	}
	kind, rest, ok := strings.Cut(raw, "+")
	if !ok || rest == "" {
		return types.SourceID{}, unknownSource(raw)
	}
	switch types.SourceKind(kind) {
	case types.SourceKindRegistry:
		url := strings.TrimSuffix(rest, "/")
		id := types.SourceID{Kind: types.SourceKindRegistry, URL: url}
		if url == cratesIOGitIndex {
			id.Name = cratesIOName
		} else {
			id.Name = registries[url]
		}
		return id, nil
	case types.SourceKindSparse:
		url := strings.TrimSuffix(rest, "/")
		id := types.SourceID{Kind: types.SourceKindSparse, URL: url}
		if url == cratesIOSparseURL {
			id.Name = cratesIOName
		} else {
			id.Name = registries["sparse+"+url]
		}
		return id, nil
	case types.SourceKindGit:
		url, precise, _ := strings.Cut(rest, "#")
		url, _, _ = strings.Cut(url, "?")
		return types.SourceID{Kind: types.SourceKindGit, URL: url, Precise: precise}, nil
	case types.SourceKindPath:
		return types.SourceID{Kind: types.SourceKindPath, URL: rest}, nil
	default:
		return types.SourceID{}, unknownSource(raw)
	}
}

func unknownSource(raw string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("resolution failed: unsupported package source " + raw)
}
