package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/core"
	"cargo-vendor-one/internal/types"
)

// resolveWorkspace holds the package cache lock only for the duration
// of the resolution.
func (s Service) resolveWorkspace(ctx context.Context, manifestPath string) (types.Resolution, error) {
	release, err := s.CacheLock.Acquire(ctx, s.Resolver.CacheLockPath())
	if err != nil {
		return types.Resolution{}, err
	}
	defer release()

	resolution, err := s.Resolver.Resolve(ctx, manifestPath)
	if err != nil {
		return types.Resolution{}, err
	}
	resolution.Graph = core.OrderGraph(ctx, resolution.Graph)
	log.Debug().
		Str("manifest", manifestPath).
		Int("packages", len(resolution.Graph)).
		Int("members", len(resolution.Members)).
		Msg("resolved workspace")
	return resolution, nil
}
