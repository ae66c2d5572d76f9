package types

import "fmt"

// SourceID identifies where a resolved package came from. Name is the
// display name used as the [patch] table key; when empty the URL is used.
type SourceID struct {
	Kind    SourceKind
	URL     string
	Name    string
	Precise string
}

func (s SourceID) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Kind == SourceKindSparse {
		return "sparse+" + s.URL
	}
	return s.URL
}

func (s SourceID) String() string {
	if s.URL == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s+%s", s.Kind, s.URL)
}

// PackageID is the identity of one node of a resolution graph. It is
// comparable and used as the PackageSet key.
type PackageID struct {
	Name    string
	Version string
	Source  SourceID
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s v%s (%s)", id.Name, id.Version, id.Source.DisplayName())
}

// Package is a resolved package together with its location on disk.
type Package struct {
	ID           PackageID
	Root         string
	ManifestPath string
}

type PackageSet map[PackageID]Package

func (s PackageSet) Get(id PackageID) (Package, bool) {
	pkg, ok := s[id]
	return pkg, ok
}

type Graph []PackageID

// Resolution is the outcome of resolving a workspace: every resolved
// package with its on-disk root, plus the graph used for lookups.
type Resolution struct {
	Packages PackageSet
	Graph    Graph
	Members  []PackageID
}
