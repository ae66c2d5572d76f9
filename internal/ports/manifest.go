package ports

// ManifestPort opens a Cargo.toml for editing.
type ManifestPort interface {
	Open(path string) (ManifestEditor, error)
}

// ManifestEditor accumulates [patch] edits in memory. Nothing reaches
// disk until Commit; an editor that is dropped leaves the file untouched.
type ManifestEditor interface {
	// SetPatch sets patch.<source>.<name>.path and, when version is not
	// empty, patch.<source>.<name>.version.
	SetPatch(source string, name string, path string, version string) error

	// PatchSource returns the patch table key under which name is already
	// redirected to path, if any.
	PatchSource(name string, path string) (string, bool)

	Bytes() []byte
	Commit() error
}
