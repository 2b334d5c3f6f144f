package update

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

type fakeParser struct {
	infos map[string]types.FileInfo
	err   map[string]error
}

func (p fakeParser) ParseFile(absPath, ext string) (types.FileInfo, error) {
	for path, err := range p.err {
		if hasSuffix(absPath, path) {
			return types.FileInfo{}, err
		}
	}
	for path, info := range p.infos {
		if hasSuffix(absPath, path) {
			return info, nil
		}
	}
	return types.EmptyFileInfo(), nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func baseIndex() *types.ProjectIndex {
	files := []string{"main.ts", "util.ts", "other.ts"}
	return &types.ProjectIndex{
		Metadata: types.IndexMetadata{Version: 1, Root: "/proj", TotalFiles: len(files)},
		Tree:     tree.Build(files, "proj"),
		Nodes:    files,
		Edges:    []types.Edge{{From: "main.ts", To: "util.ts"}},
		Files: map[string]types.FileInfo{
			"main.ts":  {Dependencies: []string{"util.ts"}},
			"util.ts":  {},
			"other.ts": {},
		},
	}
}

func TestUpdateFile_RebuildsOutgoingEdges(t *testing.T) {
	idx := baseIndex()
	parser := fakeParser{infos: map[string]types.FileInfo{
		"main.ts": {Imports: []types.ImportInfo{{From: "./other", Kind: types.SpecifierImport}}},
	}}
	updated, err := UpdateFile("main.ts", idx, parser)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.ts"}, updated.Files["main.ts"].Dependencies)
	assert.Contains(t, updated.Edges, types.Edge{From: "main.ts", To: "other.ts"})
	assert.NotContains(t, updated.Edges, types.Edge{From: "main.ts", To: "util.ts"})
}

func TestUpdateFile_PreservesIncomingEdgesFromOtherFiles(t *testing.T) {
	idx := baseIndex()
	idx.Files["other.ts"] = types.FileInfo{Dependencies: []string{"util.ts"}}
	idx.Edges = append(idx.Edges, types.Edge{From: "other.ts", To: "util.ts"})

	parser := fakeParser{infos: map[string]types.FileInfo{"util.ts": {}}}
	updated, err := UpdateFile("util.ts", idx, parser)
	require.NoError(t, err)
	assert.Contains(t, updated.Edges, types.Edge{From: "other.ts", To: "util.ts"})
}

func TestUpdateFile_ParserErrorSubstitutesEmptyFileInfo(t *testing.T) {
	idx := baseIndex()
	parser := fakeParser{err: map[string]error{"main.ts": errors.New("parse boom")}}
	updated, err := UpdateFile("main.ts", idx, parser)
	require.NoError(t, err)
	assert.Equal(t, types.EmptyFileInfo().Functions, updated.Files["main.ts"].Functions)
}

func TestUpdateFile_RejectsUnsupportedExtension(t *testing.T) {
	idx := baseIndex()
	_, err := UpdateFile("README.md", idx, fakeParser{})
	require.Error(t, err)
	var fe *lciserrors.FilesystemError
	require.ErrorAs(t, err, &fe)
}

func TestUpdateFile_SkipsParseWhenContentHashUnchanged(t *testing.T) {
	root := t.TempDir()
	content := []byte("export const x = 1;")
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.ts"), content, 0o644))

	idx := baseIndex()
	idx.Metadata.Root = root
	idx.Files["main.ts"] = types.FileInfo{ContentHash: xxhash.Sum64(content)}

	calls := 0
	parser := countingParser{fakeParser{}, &calls}
	_, err := UpdateFile("main.ts", idx, parser)
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "parser must not be invoked when content hash matches the stored one")
}

func TestUpdateFile_ReparsesWhenContentHashChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.ts"), []byte("export const x = 2;"), 0o644))

	idx := baseIndex()
	idx.Metadata.Root = root
	idx.Files["main.ts"] = types.FileInfo{ContentHash: xxhash.Sum64([]byte("export const x = 1;"))}

	calls := 0
	parser := countingParser{fakeParser{}, &calls}
	updated, err := UpdateFile("main.ts", idx, parser)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NotZero(t, updated.Files["main.ts"].ContentHash)
}

type countingParser struct {
	fakeParser
	calls *int
}

func (p countingParser) ParseFile(absPath, ext string) (types.FileInfo, error) {
	*p.calls++
	return p.fakeParser.ParseFile(absPath, ext)
}

func TestRemoveFile_ShrinksNodesEdgesAndTree(t *testing.T) {
	idx := baseIndex()
	updated := RemoveFile("util.ts", idx)
	assert.NotContains(t, updated.Nodes, "util.ts")
	assert.Empty(t, updated.Edges)
	assert.Equal(t, 2, updated.Metadata.TotalFiles)
	_, stillPresent := updated.Files["util.ts"]
	assert.False(t, stillPresent)
}
