package core

import (
	"context"
	"fmt"
	"sort"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"cargo-vendor-one/internal/types"
)

// Match is the result of looking a request up in a resolution graph.
// ID is the selected package; Candidates holds every node that matched,
// in graph order, with ID first.
type Match struct {
	ID         types.PackageID
	Candidates []types.PackageID
}

func (m Match) Ambiguous() bool {
	return len(m.Candidates) > 1
}

// FindPackage folds over the graph collecting every node whose name
// equals the request name exactly and whose version satisfies the
// request's requirement, if any. The first match wins.
func FindPackage(request Request, graph types.Graph) (Match, error) {
	match := Match{}
	for _, id := range graph {
		if id.Name != request.Name {
			continue
		}
		if !request.Version.Matches(id.Version) {
			continue
		}
		match.Candidates = append(match.Candidates, id)
	}
	if len(match.Candidates) == 0 {
		msg := fmt.Sprintf("package not found: %s", request.Name)
		if request.Version != nil {
			msg = fmt.Sprintf("package not found: %s matching %s", request.Name, request.Version)
		}
		return Match{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(msg)
	}
	match.ID = match.Candidates[0]
	return match, nil
}

// OrderGraph returns a copy of the graph sorted by name, semver version
// and source so that "first match" is the lowest matching version and is
// stable across runs and resolver engines.
func OrderGraph(ctx context.Context, graph types.Graph) types.Graph {
	ordered := append(types.Graph(nil), graph...)
	for _, id := range ordered {
		assert.NotEmpty(ctx, id.Name, "resolved package id must have a name")
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if cmp := compareVersions(a.Version, b.Version); cmp != 0 {
			return cmp < 0
		}
		return a.Source.String() < b.Source.String()
	})
	return ordered
}
