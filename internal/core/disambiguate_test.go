package core

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-vendor-one/internal/types"
)

var cratesIO = types.SourceID{
	Kind: types.SourceKindRegistry,
	URL:  "https://github.com/rust-lang/crates.io-index",
	Name: "crates-io",
}

func pkgID(name string, version string) types.PackageID {
	return types.PackageID{Name: name, Version: version, Source: cratesIO}
}

func mustRequest(t *testing.T, raw string) Request {
	t.Helper()
	request, err := ParseRequest(raw)
	require.NoError(t, err)
	return request
}

func TestFindPackageSingleMatch(t *testing.T) {
	graph := types.Graph{pkgID("bar", "0.1.0"), pkgID("foo", "1.2.3")}
	match, err := FindPackage(mustRequest(t, "foo@^1"), graph)
	require.NoError(t, err)
	if diff := cmp.Diff(pkgID("foo", "1.2.3"), match.ID); diff != "" {
		t.Fatalf("unexpected match (-want +got):\n%s", diff)
	}
	assert.False(t, match.Ambiguous())
}

func TestFindPackageNameIsCaseSensitive(t *testing.T) {
	graph := types.Graph{pkgID("Foo", "1.0.0")}
	_, err := FindPackage(mustRequest(t, "foo"), graph)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestFindPackageNotFound(t *testing.T) {
	graph := types.Graph{pkgID("foo", "1.2.3")}

	_, err := FindPackage(mustRequest(t, "missing"), graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package not found: missing")

	_, err = FindPackage(mustRequest(t, "foo@^2"), graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package not found: foo matching ^2")
}

func TestFindPackageAmbiguousTakesFirst(t *testing.T) {
	graph := types.Graph{pkgID("foo", "0.9.0"), pkgID("foo", "1.2.3"), pkgID("foo", "1.5.0")}

	match, err := FindPackage(mustRequest(t, "foo"), graph)
	require.NoError(t, err)
	assert.True(t, match.Ambiguous())
	assert.Equal(t, pkgID("foo", "0.9.0"), match.ID)
	assert.Len(t, match.Candidates, 3)

	match, err = FindPackage(mustRequest(t, "foo@^1"), graph)
	require.NoError(t, err)
	assert.Equal(t, pkgID("foo", "1.2.3"), match.ID)
	assert.Equal(t, []types.PackageID{pkgID("foo", "1.2.3"), pkgID("foo", "1.5.0")}, match.Candidates)
}

func TestOrderGraph(t *testing.T) {
	git := types.SourceID{Kind: types.SourceKindGit, URL: "https://github.com/acme/foo"}
	gitFoo := types.PackageID{Name: "foo", Version: "1.2.3", Source: git}
	graph := types.Graph{
		pkgID("foo", "1.10.0"),
		pkgID("bar", "2.0.0"),
		pkgID("foo", "1.2.3"),
		gitFoo,
		pkgID("foo", "1.9.0"),
	}
	ordered := OrderGraph(context.Background(), graph)
	want := types.Graph{
		pkgID("bar", "2.0.0"),
		gitFoo,
		pkgID("foo", "1.2.3"),
		pkgID("foo", "1.9.0"),
		pkgID("foo", "1.10.0"),
	}
	if diff := cmp.Diff(want, ordered); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	// The input is left untouched.
	assert.Equal(t, pkgID("foo", "1.10.0"), graph[0])
}
