// Package update implements Component H (Incremental Updater) of
// spec.md §4.H: update_file and remove_file mutate an existing
// ProjectIndex without ever rescanning the filesystem. Grounded on the
// teacher's incremental re-indexing pattern in internal/watcher (reparse
// one file, splice its edges back in) adapted to this module's flatter
// edge-list ProjectIndex instead of the teacher's graph-database store.
package update

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codebasemap/codebasemap/internal/debug"
	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/resolve"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

// Parser is the subset of the external parser contract the updater needs.
type Parser interface {
	ParseFile(absPath, ext string) (types.FileInfo, error)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UpdateFile implements update_file(path, index) -> index'. path must
// already be a node in idx; a new node is never added here (that is the
// assembler's job).
//
// Before invoking the parser, the file's content is hashed with xxhash and
// compared against the hash stored from the last parse (grounded on the
// teacher's internal/core/file_content_store.go FastHash short-circuit):
// an unchanged hash means an unchanged AST, so the parse and edge rebuild
// are both skipped.
func UpdateFile(path string, idx *types.ProjectIndex, parser Parser) (*types.ProjectIndex, error) {
	ext := filepath.Ext(path)
	if !types.IsSupportedExtension(ext) {
		return nil, lciserrors.NewFilesystemError("update_file", path, errUnsupportedExtension(ext))
	}

	abs := filepath.Join(idx.Metadata.Root, filepath.FromSlash(path))

	var hash uint64
	if content, readErr := os.ReadFile(abs); readErr == nil {
		hash = xxhash.Sum64(content)
		if existing, ok := idx.Files[path]; ok && existing.ContentHash != 0 && existing.ContentHash == hash {
			return idx, nil
		}
	}

	info, err := parser.ParseFile(abs, ext)
	if err != nil {
		debug.Warn("parse", path, err)
		info = types.EmptyFileInfo()
	}
	info.Dependencies = resolve.ResolveImports(info.Imports, path, idx.Nodes)
	info.ContentHash = hash

	idx.Files[path] = info
	idx.Edges = rebuildEdgesForUpdatedFile(path, info.Dependencies, idx)
	idx.Metadata.UpdatedAt = now()
	return idx, nil
}

// rebuildEdgesForUpdatedFile drops every edge touching path, re-adds one
// edge per new dependency, and re-adds {g -> path} for any other file g
// whose stored dependencies still reference path — per spec.md §4.H.
func rebuildEdgesForUpdatedFile(path string, newDeps []string, idx *types.ProjectIndex) []types.Edge {
	kept := make([]types.Edge, 0, len(idx.Edges))
	for _, e := range idx.Edges {
		if e.From == path || e.To == path {
			continue
		}
		kept = append(kept, e)
	}
	for _, d := range newDeps {
		kept = append(kept, types.Edge{From: path, To: d})
	}
	for _, node := range idx.Nodes {
		if node == path {
			continue
		}
		for _, d := range idx.Files[node].Dependencies {
			if d == path {
				kept = append(kept, types.Edge{From: node, To: path})
			}
		}
	}
	return kept
}

// RemoveFile implements remove_file(path, index) -> index'.
func RemoveFile(path string, idx *types.ProjectIndex) *types.ProjectIndex {
	delete(idx.Files, path)

	nodes := make([]string, 0, len(idx.Nodes))
	for _, n := range idx.Nodes {
		if n != path {
			nodes = append(nodes, n)
		}
	}
	idx.Nodes = nodes

	edges := make([]types.Edge, 0, len(idx.Edges))
	for _, e := range idx.Edges {
		if e.From == path || e.To == path {
			continue
		}
		edges = append(edges, e)
	}
	idx.Edges = edges

	idx.Tree = tree.Build(nodes, idx.Tree.Name)
	idx.Metadata.TotalFiles = len(nodes)
	idx.Metadata.UpdatedAt = now()
	return idx
}

type unsupportedExtensionError struct{ ext string }

func (e unsupportedExtensionError) Error() string {
	return "unsupported extension: " + e.ext
}

func errUnsupportedExtension(ext string) error {
	return unsupportedExtensionError{ext: ext}
}
