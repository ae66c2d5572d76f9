package ports

// WorkspacePort discovers the root Cargo.toml of the project enclosing
// a starting path.
type WorkspacePort interface {
	LocateManifest(start string) (string, error)
}
