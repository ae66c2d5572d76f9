package types

type SourceKind string

const (
	SourceKindRegistry SourceKind = "registry"
	SourceKindSparse   SourceKind = "sparse"
	SourceKindGit      SourceKind = "git"
	SourceKindPath     SourceKind = "path"
)

type ResolverKind string

const (
	ResolverKindMetadata ResolverKind = "metadata"
	ResolverKindLockfile ResolverKind = "lockfile"
)

type AmbiguityMode string

const (
	AmbiguityModeWarn AmbiguityMode = "warn"
	AmbiguityModeFail AmbiguityMode = "fail"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)
