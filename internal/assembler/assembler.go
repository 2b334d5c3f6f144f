// Package assembler implements Component G (Project Index Assembler) of
// spec.md §4.G: the top-level process_project pipeline wiring discovery,
// tree building, batched parallel parsing, and dependency resolution into
// a single ProjectIndex. The batched-errgroup parsing stage is grounded on
// the errgroup.WithContext fan-out idiom used for bounded-concurrency work
// pools elsewhere in the retrieved corpus (internal/ingestion/orchestrator.go);
// the stage sequencing itself mirrors the teacher's scan→parse→link
// pipeline shape in internal/pipeline.
package assembler

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/codebasemap/codebasemap/internal/discovery"
	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/jsparser"
	"github.com/codebasemap/codebasemap/internal/resolve"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

// batchSize is the fixed parsing concurrency bound from spec.md §5.
const batchSize = 10

// ProgressStage is one step of the four-stage assembler progress report.
type ProgressStage struct {
	Label string
	Step  int
	Total int
}

// ProgressFunc is invoked at each stage boundary; nil is a valid no-op.
type ProgressFunc func(ProgressStage)

// Parser is the external parser contract consumed by the assembler
// (spec.md §6): parse_file(absolutePath) -> FileInfo. *jsparser.Parser
// satisfies it directly.
type Parser interface {
	ParseFile(absPath, ext string) (types.FileInfo, error)
}

// Options bundles the assembler's inputs beyond root and parser.
type Options struct {
	Filter discovery.FilterOptions
}

func report(progress ProgressFunc, label string, step, total int) {
	if progress != nil {
		progress(ProgressStage{Label: label, Step: step, Total: total})
	}
}

// ProcessProject implements process_project(root, options, progress?) ->
// ProjectIndex, per spec.md §4.G's seven steps.
func ProcessProject(root string, opts Options, parser Parser, progress ProgressFunc) (*types.ProjectIndex, error) {
	report(progress, "Discovering files", 0, 4)
	files, err := discovery.Discover(root, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, lciserrors.NewNoFilesFound(root)
	}

	report(progress, "Building tree structure", 1, 4)
	treeRoot := tree.Build(files, filepath.Base(root))

	report(progress, "Parsing files", 2, 4)
	fileInfos, err := parseInBatches(root, files, parser)
	if err != nil {
		return nil, err
	}

	report(progress, "Resolving dependencies", 3, 4)
	filesToImports := make(map[string][]types.ImportInfo, len(files))
	for _, f := range files {
		info := fileInfos[f]
		info.Dependencies = resolve.ResolveImports(info.Imports, f, files)
		fileInfos[f] = info
		filesToImports[f] = info.Imports
	}
	edges := resolve.BuildGraph(filesToImports, files)

	now := time.Now().UTC().Format(time.RFC3339)
	index := &types.ProjectIndex{
		Metadata: types.IndexMetadata{
			Version:    types.CurrentSchemaVersion,
			Root:       root,
			CreatedAt:  now,
			UpdatedAt:  now,
			TotalFiles: len(files),
		},
		Tree:  treeRoot,
		Nodes: append([]string(nil), files...),
		Edges: edges,
		Files: fileInfos,
	}

	report(progress, "Complete", 4, 4)
	return index, nil
}

// parseInBatches runs the external parser over files in fixed-size-10,
// concurrently-awaited batches. A per-file parse error is logged and
// substituted with an empty FileInfo rather than aborting the run.
func parseInBatches(root string, files []string, parser Parser) (map[string]types.FileInfo, error) {
	result := make(map[string]types.FileInfo, len(files))
	for start := 0; start < len(files); start += batchSize {
		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		g := new(errgroup.Group)
		infos := make([]types.FileInfo, len(batch))
		for i, rel := range batch {
			i, rel := i, rel
			g.Go(func() error {
				abs := filepath.Join(root, filepath.FromSlash(rel))
				info, err := parser.ParseFile(abs, filepath.Ext(rel))
				if err != nil {
					jsparser.Warn(rel, err)
					infos[i] = types.EmptyFileInfo()
					return nil
				}
				if content, readErr := os.ReadFile(abs); readErr == nil {
					info.ContentHash = xxhash.Sum64(content)
				}
				infos[i] = info
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, lciserrors.NewUnexpected("parse_batch", err)
		}
		for i, rel := range batch {
			result[rel] = infos[i]
		}
	}
	return result, nil
}
