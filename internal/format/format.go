// Package format implements Component J (Compact Formatters) of
// spec.md §4.J: three deterministic, token-efficient textual renderings
// of a ProjectIndex (DSL, Graph, Markdown) plus auto-selection and a
// compression-stats helper. Grounded on the teacher's own compact output
// renderers (internal/output's terse per-symbol line format), generalized
// from the teacher's per-language symbol kinds down to this module's
// fixed function/class/constant declaration shape.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/codebasemap/codebasemap/internal/types"
)

// autoThreshold is spec.md §4.J's single DSL/Graph selection cutoff.
const autoThreshold = 2000

// DSL renders one line per file ("path > dep1,dep2,…") followed by
// indented signature lines. Files with no declarations and no
// dependencies are omitted entirely.
func DSL(idx *types.ProjectIndex) string {
	var b strings.Builder
	for _, path := range sortedNodes(idx) {
		info := idx.Files[path]
		if len(info.Dependencies) == 0 && len(info.Functions) == 0 && len(info.Classes) == 0 && len(info.Constants) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s > %s\n", path, strings.Join(info.Dependencies, ","))
		for _, fn := range info.Functions {
			b.WriteString("  " + dslFunc(fn) + "\n")
		}
		for _, cl := range info.Classes {
			b.WriteString("  " + dslClass(cl) + "\n")
		}
		for _, c := range info.Constants {
			fmt.Fprintf(&b, "  cn %s:%s\n", c.Name, orPlaceholder(c.Type))
		}
	}
	return b.String()
}

func dslFunc(fn types.FuncSig) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ":" + orPlaceholder(p.Type)
	}
	line := fmt.Sprintf("fn %s(%s):%s", fn.Name, strings.Join(params, ","), orPlaceholder(fn.Returns))
	if fn.Async {
		line += " async"
	}
	return line
}

func dslClass(cl types.ClassInfo) string {
	line := fmt.Sprintf("cl %s(%s,%s)", cl.Name, strings.Join(cl.Methods, ","), strings.Join(cl.Properties, ","))
	if cl.Extends != "" {
		line += " extends " + cl.Extends
	}
	return line
}

func orPlaceholder(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// shortenPath strips a leading "src/" segment and any supported extension,
// per spec.md §4.J's Graph format.
func shortenPath(path string) string {
	path = strings.TrimPrefix(path, "src/")
	for _, ext := range types.SupportedExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

// Graph renders a DEPS: block of shortened from→to lines, then a SIGS:
// block listing each file's declaration names, omitting files with none.
func Graph(idx *types.ProjectIndex) string {
	var b strings.Builder
	b.WriteString("DEPS:\n")
	for _, e := range idx.Edges {
		fmt.Fprintf(&b, "%s→%s\n", shortenPath(e.From), shortenPath(e.To))
	}

	b.WriteString("SIGS:\n")
	for _, path := range sortedNodes(idx) {
		info := idx.Files[path]
		var sigs []string
		for _, fn := range info.Functions {
			sigs = append(sigs, "fn:"+fn.Name)
		}
		for _, cl := range info.Classes {
			sigs = append(sigs, fmt.Sprintf("cl:%s(%s,%s)", cl.Name, strings.Join(cl.Methods, ","), strings.Join(cl.Properties, ",")))
		}
		for _, c := range info.Constants {
			sigs = append(sigs, "cn:"+c.Name)
		}
		if len(sigs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", shortenPath(path), strings.Join(sigs, ","))
	}
	return b.String()
}

// Markdown groups files under their directory as "## dir/", each file
// under "### file", with bulleted dependency/declaration sections, and a
// trailing totals summary.
func Markdown(idx *types.ProjectIndex) string {
	var b strings.Builder
	byDir := map[string][]string{}
	for _, path := range sortedNodes(idx) {
		dir := dirOf(path)
		byDir[dir] = append(byDir[dir], path)
	}
	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		fmt.Fprintf(&b, "## %s/\n\n", dir)
		for _, path := range byDir[dir] {
			info := idx.Files[path]
			fmt.Fprintf(&b, "### %s\n\n", path)
			writeMDList(&b, "Dependencies", info.Dependencies)
			var fns []string
			for _, fn := range info.Functions {
				fns = append(fns, fn.Name)
			}
			writeMDList(&b, "Functions", fns)
			var classes []string
			for _, cl := range info.Classes {
				classes = append(classes, cl.Name)
			}
			writeMDList(&b, "Classes", classes)
			var consts []string
			for _, c := range info.Constants {
				consts = append(consts, c.Name)
			}
			writeMDList(&b, "Constants", consts)
		}
	}

	fmt.Fprintf(&b, "## Dependencies\n\n")
	fmt.Fprintf(&b, "- Total files: %d\n", len(idx.Nodes))
	fmt.Fprintf(&b, "- Total edges: %d\n", len(idx.Edges))
	return b.String()
}

func writeMDList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:** %s\n\n", label, strings.Join(items, ", "))
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func sortedNodes(idx *types.ProjectIndex) []string {
	nodes := append([]string(nil), idx.Nodes...)
	sort.Strings(nodes)
	return nodes
}

// Auto selects DSL for indexes of at most 2000 files, Graph otherwise.
func Auto(idx *types.ProjectIndex) string {
	if len(idx.Nodes) <= autoThreshold {
		return DSL(idx)
	}
	return Graph(idx)
}

// CompactJSON renders the index as the canonical JSON persisted form
// (no indentation), used as the "original size" baseline for
// CompressionStats.
func CompactJSON(idx *types.ProjectIndex) (string, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompressionStats compares a formatted rendering against the index's
// compact JSON form.
type CompressionStats struct {
	OriginalSize     int
	CompressedSize   int
	ReductionPercent float64
	EstimatedTokens  int
}

// ComputeCompressionStats implements spec.md §4.J's compression-stats
// helper: {originalSize, compressedSize, reduction%, estimatedTokens}.
func ComputeCompressionStats(idx *types.ProjectIndex, formatted string) (CompressionStats, error) {
	original, err := CompactJSON(idx)
	if err != nil {
		return CompressionStats{}, err
	}
	orig := len(original)
	compressed := len(formatted)
	reduction := 0.0
	if orig > 0 {
		reduction = 100 * (1 - float64(compressed)/float64(orig))
	}
	return CompressionStats{
		OriginalSize:     orig,
		CompressedSize:   compressed,
		ReductionPercent: reduction,
		EstimatedTokens:  int(math.Round(float64(compressed) / 3.5)),
	}, nil
}
