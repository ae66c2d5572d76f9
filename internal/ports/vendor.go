package ports

import "cargo-vendor-one/internal/types"

// VendorPort copies a resolved package into the local vendor directory
// and returns the absolute path of the copy.
type VendorPort interface {
	Materialize(pkg types.Package) (string, error)
}
