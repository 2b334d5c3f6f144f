// Package filter implements Component I (Index Filter) of spec.md §4.I: a
// pure, in-memory re-projection of an existing ProjectIndex over the same
// include/exclude glob language Component D uses. Grounded on the
// teacher's result-post-processing filters (internal/search result
// narrowing), adapted to operate on the whole ProjectIndex shape instead
// of a flat search-result list.
package filter

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/patternvalidate"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

// Options mirrors discovery.FilterOptions' shape for the same pattern
// language, kept as its own type since Component I operates over an
// in-memory index rather than the filesystem.
type Options struct {
	Include []string
	Exclude []string
}

// Apply implements steps 1-5 of spec.md §4.I.
func Apply(idx *types.ProjectIndex, opts Options) (*types.ProjectIndex, error) {
	if err := patternvalidate.ValidateList(opts.Include, lciserrors.RoleInclude); err != nil {
		return nil, err
	}
	if err := patternvalidate.ValidateList(opts.Exclude, lciserrors.RoleExclude); err != nil {
		return nil, err
	}

	if len(opts.Include) == 0 && len(opts.Exclude) == 0 {
		return deepCopy(idx), nil
	}

	survivors := make([]string, 0, len(idx.Nodes))
	for _, n := range idx.Nodes {
		if keeps(n, opts) {
			survivors = append(survivors, n)
		}
	}

	survivorSet := make(map[string]struct{}, len(survivors))
	for _, s := range survivors {
		survivorSet[s] = struct{}{}
	}

	files := make(map[string]types.FileInfo, len(survivors))
	for _, s := range survivors {
		files[s] = idx.Files[s]
	}

	edges := make([]types.Edge, 0, len(idx.Edges))
	for _, e := range idx.Edges {
		_, fromOK := survivorSet[e.From]
		_, toOK := survivorSet[e.To]
		if fromOK && toOK {
			edges = append(edges, e)
		}
	}

	out := &types.ProjectIndex{
		Metadata: idx.Metadata,
		Tree:     tree.Build(survivors, idx.Tree.Name),
		Nodes:    survivors,
		Edges:    edges,
		Files:    files,
	}
	out.Metadata.TotalFiles = len(survivors)
	out.Metadata.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return out, nil
}

func keeps(path string, opts Options) bool {
	if len(opts.Include) > 0 && !matchesAny(opts.Include, path) {
		return false
	}
	if len(opts.Exclude) > 0 && matchesAny(opts.Exclude, path) {
		return false
	}
	return true
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func deepCopy(idx *types.ProjectIndex) *types.ProjectIndex {
	out := &types.ProjectIndex{
		Metadata: idx.Metadata,
		Nodes:    append([]string(nil), idx.Nodes...),
		Edges:    append([]types.Edge(nil), idx.Edges...),
		Files:    make(map[string]types.FileInfo, len(idx.Files)),
	}
	for k, v := range idx.Files {
		out.Files[k] = v
	}
	out.Tree = tree.Build(out.Nodes, idx.Tree.Name)
	return out
}

// Stats is the before/after summary spec.md §4.I's stats helper returns.
type Stats struct {
	FilesBefore      int
	FilesAfter       int
	EdgesBefore      int
	EdgesAfter       int
	FileReduction    float64
	EdgeReduction    float64
}

// ComputeStats compares an index before and after Apply.
func ComputeStats(before, after *types.ProjectIndex) Stats {
	s := Stats{
		FilesBefore: len(before.Nodes),
		FilesAfter:  len(after.Nodes),
		EdgesBefore: len(before.Edges),
		EdgesAfter:  len(after.Edges),
	}
	if s.FilesBefore > 0 {
		s.FileReduction = 100 * (1 - float64(s.FilesAfter)/float64(s.FilesBefore))
	}
	if s.EdgesBefore > 0 {
		s.EdgeReduction = 100 * (1 - float64(s.EdgesAfter)/float64(s.EdgesBefore))
	}
	return s
}
