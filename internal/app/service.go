package app

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"cargo-vendor-one/internal/adapters"
	"cargo-vendor-one/internal/policies"
	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/types"
)

type Service struct {
	Workspace    ports.WorkspacePort
	Resolver     ports.ResolverPort
	CacheLock    ports.CacheLockPort
	Materializer ports.VendorPort
	Manifest     ports.ManifestPort
	Ambiguity    policies.AmbiguityPolicy
}

func NewService(cfg Config) (Service, error) {
	var resolver ports.ResolverPort
	switch cfg.Resolver {
	case "", types.ResolverKindMetadata:
		resolver = adapters.NewCargoMetadataAdapter(cfg.Cargo, cfg.CargoHome, cfg.Offline, cfg.Locked)
	case types.ResolverKindLockfile:
		resolver = adapters.NewLockfileAdapter(cfg.CargoHome)
	default:
		return Service{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown resolver %q (expected metadata or lockfile)", cfg.Resolver))
	}
	ambiguity, err := policies.NewAmbiguityPolicy(string(cfg.OnAmbiguity))
	if err != nil {
		return Service{}, err
	}
	return Service{
		Workspace:    adapters.NewWorkspaceAdapter(),
		Resolver:     resolver,
		CacheLock:    adapters.NewFileCacheLock(),
		Materializer: adapters.NewVendorDirAdapter(cfg.VendorDir),
		Manifest:     adapters.NewManifestTOMLAdapter(),
		Ambiguity:    ambiguity,
	}, nil
}
