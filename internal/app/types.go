package app

import "cargo-vendor-one/internal/types"

type Config struct {
	Resolver    types.ResolverKind
	Cargo       string
	CargoHome   string
	Offline     bool
	Locked      bool
	VendorDir   string
	OnAmbiguity types.AmbiguityMode
}

type VendorRequest struct {
	Tokens []string
	// ManifestPath overrides discovery from the working directory.
	ManifestPath string
}

type VendorResult struct {
	ManifestPath string
	Vendored     []types.VendoredInfo
}

func (r VendorResult) Report() types.VendorReport {
	return types.VendorReport{
		Manifest: r.ManifestPath,
		Count:    len(r.Vendored),
		Packages: r.Vendored,
	}
}
