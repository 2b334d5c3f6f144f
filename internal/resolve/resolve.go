// Package resolve implements Component F (Dependency Resolver) of
// spec.md §4.F: relative specifier resolution against the discovered file
// set, graph construction, and cycle detection. Grounded on the teacher's
// internal/graph dependency-graph builder (adjacency-list cycle detection
// via iterative DFS with an explicit path stack), adapted to spec.md's
// fixed extension-candidate rules instead of the teacher's multi-language
// resolver chain.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/codebasemap/codebasemap/internal/types"
)

// IsRelative reports whether specifier is a relative module reference
// ("./" or "../" prefixed). Bare names, scoped packages, and absolute
// specifiers are not resolved.
func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

var extensionSwaps = map[string]string{
	".js":  ".ts",
	".jsx": ".tsx",
}

var extensionOrder = []string{".ts", ".tsx", ".js", ".jsx"}
var indexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// candidates generates the ordered list of file-set membership checks for
// one relative specifier, already joined against the importing file's
// directory and normalized.
func candidates(joined string) []string {
	ext := path.Ext(joined)
	if ext != "" {
		if swapped, ok := extensionSwaps[ext]; ok {
			base := strings.TrimSuffix(joined, ext)
			return []string{base + swapped, joined}
		}
		return []string{joined}
	}

	out := make([]string, 0, len(extensionOrder)+len(indexFiles))
	for _, e := range extensionOrder {
		out = append(out, joined+e)
	}
	for _, idx := range indexFiles {
		out = append(out, joined+"/"+idx)
	}
	return out
}

// resolveOne resolves a single relative specifier imported from
// currentFile against the set of discovered files, returning "" if no
// candidate is a member.
func resolveOne(specifier, currentFile string, fileSet map[string]struct{}) string {
	dir := path.Dir(currentFile)
	joined := strings.TrimPrefix(path.Clean(path.Join(dir, specifier)), "/")
	for _, c := range candidates(joined) {
		if _, ok := fileSet[c]; ok {
			return c
		}
	}
	return ""
}

// ResolveImports returns the sorted, deduplicated set of specifiers from
// imports that resolve to a member of allFiles, given the file they were
// imported from. Unresolvable and non-relative specifiers are dropped
// silently.
func ResolveImports(imports []types.ImportInfo, currentFile string, allFiles []string) []string {
	fileSet := make(map[string]struct{}, len(allFiles))
	for _, f := range allFiles {
		fileSet[f] = struct{}{}
	}
	return resolveImportsWithSet(imports, currentFile, fileSet)
}

func resolveImportsWithSet(imports []types.ImportInfo, currentFile string, fileSet map[string]struct{}) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, imp := range imports {
		if !IsRelative(imp.From) {
			continue
		}
		resolved := resolveOne(imp.From, currentFile, fileSet)
		if resolved == "" {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	sort.Strings(out)
	return out
}

// BuildGraph resolves every file's imports against allFiles and emits one
// edge per (file, dependency) pair. Runs in O(N·K): membership checks are
// constant-time hash-set lookups shared across all files.
func BuildGraph(filesToImports map[string][]types.ImportInfo, allFiles []string) []types.Edge {
	fileSet := make(map[string]struct{}, len(allFiles))
	for _, f := range allFiles {
		fileSet[f] = struct{}{}
	}

	var edges []types.Edge
	for _, f := range allFiles {
		deps := resolveImportsWithSet(filesToImports[f], f, fileSet)
		for _, d := range deps {
			edges = append(edges, types.Edge{From: f, To: d})
		}
	}
	return edges
}

// DependencyCounts returns the out-degree and in-degree of every node
// touched by edges.
func DependencyCounts(edges []types.Edge) (outDegree, inDegree map[string]int) {
	outDegree = make(map[string]int)
	inDegree = make(map[string]int)
	for _, e := range edges {
		outDegree[e.From]++
		inDegree[e.To]++
	}
	return outDegree, inDegree
}

// EntryPoints returns files with no outgoing edge, in the order given by
// files.
func EntryPoints(edges []types.Edge, files []string) []string {
	outDegree, _ := DependencyCounts(edges)
	var out []string
	for _, f := range files {
		if outDegree[f] == 0 {
			out = append(out, f)
		}
	}
	return out
}

// LeafFiles returns files with no incoming edge, in the order given by
// files.
func LeafFiles(edges []types.Edge, files []string) []string {
	_, inDegree := DependencyCounts(edges)
	var out []string
	for _, f := range files {
		if inDegree[f] == 0 {
			out = append(out, f)
		}
	}
	return out
}

// adjacency builds an ordered adjacency list from edges, preserving
// insertion order per source node — cycle detection's neighbor order must
// follow edge insertion order, per spec.md §4.F.
func adjacency(edges []types.Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

type frame struct {
	node    string
	nextIdx int
}

// FindCycles runs an iterative DFS over the edge adjacency list, recording
// every cycle encountered without aborting the traversal once one is
// found. A self-loop a→a is reported as [a, a].
func FindCycles(edges []types.Edge, files []string) [][]string {
	adj := adjacency(edges)
	visited := make(map[string]bool, len(files))
	onStack := make(map[string]bool, len(files))
	var cycles [][]string

	for _, start := range files {
		if visited[start] {
			continue
		}
		var path []string
		stack := []*frame{{node: start}}
		path = append(path, start)
		onStack[start] = true
		visited[start] = true

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			neighbors := adj[top.node]
			if top.nextIdx >= len(neighbors) {
				onStack[top.node] = false
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}
			next := neighbors[top.nextIdx]
			top.nextIdx++

			if onStack[next] {
				idx := indexOf(path, next)
				cycle := append(append([]string{}, path[idx:]...), next)
				cycles = append(cycles, cycle)
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			onStack[next] = true
			path = append(path, next)
			stack = append(stack, &frame{node: next})
		}
	}
	return cycles
}

func indexOf(path []string, node string) int {
	for i, p := range path {
		if p == node {
			return i
		}
	}
	return 0
}
