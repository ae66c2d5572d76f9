package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/core"
	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/types"
)

// Vendor copies each requested package into the vendor directory and
// redirects it there through the root manifest's [patch] table. The
// manifest is written once, after every request succeeded.
func (s Service) Vendor(ctx context.Context, req VendorRequest) (VendorResult, error) {
	requests, err := core.ParseRequests(req.Tokens)
	if err != nil {
		return VendorResult{}, err
	}
	if len(requests) == 0 {
		return VendorResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one package is required")
	}

	manifestPath, err := s.Workspace.LocateManifest(req.ManifestPath)
	if err != nil {
		return VendorResult{}, err
	}
	resolution, err := s.resolveWorkspace(ctx, manifestPath)
	if err != nil {
		return VendorResult{}, err
	}
	editor, err := s.Manifest.Open(manifestPath)
	if err != nil {
		return VendorResult{}, err
	}

	result := VendorResult{ManifestPath: manifestPath}
	for _, request := range requests {
		match, err := core.FindPackage(request, resolution.Graph)
		if err != nil {
			return VendorResult{}, err
		}
		if err := s.Ambiguity.Apply(request.Name, match.Candidates); err != nil {
			return VendorResult{}, err
		}
		pkg, ok := resolution.Packages.Get(match.ID)
		if !ok {
			return VendorResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("resolved package " + match.ID.String() + " is missing from the package set")
		}
		path, err := s.Materializer.Materialize(pkg)
		if err != nil {
			return VendorResult{}, err
		}
		source := patchSource(editor, pkg)
		if err := editor.SetPatch(source, request.Name, path, request.Version.String()); err != nil {
			return VendorResult{}, err
		}
		log.Debug().
			Str("request", request.Raw).
			Str("package", match.ID.String()).
			Str("patch", source).
			Msg("patched manifest")
		result.Vendored = append(result.Vendored, types.VendoredInfo{Request: request.Raw, Path: path})
	}

	if err := editor.Commit(); err != nil {
		return VendorResult{}, err
	}
	return result, nil
}

// patchSource keeps the original patch key for a package that a previous
// run already redirected to a local path.
func patchSource(editor ports.ManifestEditor, pkg types.Package) string {
	if pkg.ID.Source.Kind == types.SourceKindPath {
		if source, ok := editor.PatchSource(pkg.ID.Name, pkg.Root); ok {
			return source
		}
	}
	return pkg.ID.Source.DisplayName()
}
