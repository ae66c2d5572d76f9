package ports

import (
	"context"

	"cargo-vendor-one/internal/types"
)

// ResolverPort produces the resolved package set and graph of a
// workspace, seeded by its existing lock file.
type ResolverPort interface {
	Resolve(ctx context.Context, manifestPath string) (types.Resolution, error)

	// CacheLockPath names the file guarding the shared package cache this
	// engine reads from while resolving.
	CacheLockPath() string
}

// CacheLockPort takes an exclusive, process-wide lock on the package
// cache. The returned release func must be called on every exit path.
type CacheLockPort interface {
	Acquire(ctx context.Context, path string) (release func(), err error)
}
