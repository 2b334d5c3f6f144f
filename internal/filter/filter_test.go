package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

func sampleIndex() *types.ProjectIndex {
	files := []string{"src/a.ts", "src/b.ts", "tests/a.test.ts"}
	return &types.ProjectIndex{
		Metadata: types.IndexMetadata{Version: 1, TotalFiles: len(files)},
		Tree:     tree.Build(files, "proj"),
		Nodes:    files,
		Edges: []types.Edge{
			{From: "src/a.ts", To: "src/b.ts"},
			{From: "tests/a.test.ts", To: "src/a.ts"},
		},
		Files: map[string]types.FileInfo{
			"src/a.ts":        {},
			"src/b.ts":        {},
			"tests/a.test.ts": {},
		},
	}
}

func TestApply_NoPatternsReturnsDeepCopy(t *testing.T) {
	idx := sampleIndex()
	out, err := Apply(idx, Options{})
	require.NoError(t, err)
	assert.Equal(t, idx.Nodes, out.Nodes)
	assert.Equal(t, idx.Edges, out.Edges)
	assert.NotSame(t, idx, out)
}

func TestApply_IncludeFiltersNodesAndEdges(t *testing.T) {
	idx := sampleIndex()
	out, err := Apply(idx, Options{Include: []string{"src/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts", "src/b.ts"}, out.Nodes)
	assert.Equal(t, []types.Edge{{From: "src/a.ts", To: "src/b.ts"}}, out.Edges)
	assert.Equal(t, 2, out.Metadata.TotalFiles)
}

func TestApply_ExcludeDropsMatchingNodes(t *testing.T) {
	idx := sampleIndex()
	out, err := Apply(idx, Options{Exclude: []string{"**/*.test.ts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts", "src/b.ts"}, out.Nodes)
}

func TestApply_PropagatesValidationError(t *testing.T) {
	idx := sampleIndex()
	_, err := Apply(idx, Options{Include: []string{"../escape"}})
	require.Error(t, err)
}

func TestComputeStats_ReportsReduction(t *testing.T) {
	before := sampleIndex()
	after, err := Apply(before, Options{Include: []string{"src/**"}})
	require.NoError(t, err)
	stats := ComputeStats(before, after)
	assert.Equal(t, 3, stats.FilesBefore)
	assert.Equal(t, 2, stats.FilesAfter)
	assert.InDelta(t, 33.33, stats.FileReduction, 0.1)
}
