// Package discovery implements Component D (File Discovery) of spec.md
// §4.D: walks a project root, applies include → exclude → ignore, and
// returns a sorted, deduplicated, forward-slash-normalized file list.
//
// The walker is grounded on the teacher's internal/scanner walk (built-in
// directory pruning, symlinks not followed, dotfiles excluded unless a
// pattern explicitly selects them); the glob composition is grounded on
// spec.md §4.D directly since the teacher scans for a different fixed set
// of source languages.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/ignore"
	"github.com/codebasemap/codebasemap/internal/patterncache"
	"github.com/codebasemap/codebasemap/internal/patternvalidate"
	"github.com/codebasemap/codebasemap/internal/types"
	"github.com/codebasemap/codebasemap/pkg/pathutil"
)

// FilterOptions is spec.md §4.D's include/exclude configuration.
// DisableGitignore mirrors Config.Index.RespectGitignore inverted, so the
// zero value (false) keeps the long-standing "always honor .gitignore"
// default for every caller that doesn't set it explicitly.
type FilterOptions struct {
	Include          []string
	Exclude          []string
	DisableGitignore bool
}

// compiledGlob adapts a set of OR'd doublestar patterns to
// patterncache.CompiledGlob.
type compiledGlob struct {
	patterns []string
}

func (g compiledGlob) Match(path string) bool {
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

var metacharRe = regexp.MustCompile(`[*?\[{]`)

// normalizeIncludePattern rewrites a bare directory-shorthand pattern
// ("src") into "src/**", per spec.md §4.D step 3. The rewrite is
// idempotent: a pattern already containing a glob metacharacter, a
// leading "!", a trailing "/", or a "." is left untouched.
func normalizeIncludePattern(p string) string {
	if metacharRe.MatchString(p) || strings.HasPrefix(p, "!") || strings.HasSuffix(p, "/") || strings.Contains(p, ".") {
		return p
	}
	return p + "/**"
}

// includesDotPath reports whether any normalized include pattern explicitly
// names a dotfile or dot-directory path segment (e.g. ".github/**",
// ".env"), per spec.md §4.D step 2's "unless a pattern explicitly selects
// them" clause.
func includesDotPath(normalizedIncludes []string) bool {
	for _, p := range normalizedIncludes {
		for _, seg := range strings.Split(p, "/") {
			if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
				return true
			}
		}
	}
	return false
}

// walk enumerates every regular file under root matching the fixed
// supported-extension set, pruning built-in ignored directories and never
// following symlinks. Dotfiles (and dot-directories) are skipped unless
// allowDotPaths is set, which the caller derives from the include patterns
// actually in effect for this discovery pass.
func walk(root string, allowDotPaths bool) ([]string, error) {
	pruned := make(map[string]struct{}, len(ignore.BuiltinPrunedDirs))
	for _, d := range ignore.BuiltinPrunedDirs {
		pruned[d] = struct{}{}
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel := pathutil.ToRelative(path, root)
		if !pathutil.IsWithinRoot(rel) {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, isPruned := pruned[name]; isPruned {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && !allowDotPaths {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") && !allowDotPaths {
			return nil
		}
		if !types.IsSupportedExtension(filepath.Ext(name)) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, lciserrors.NewFilesystemError("walk", root, err)
	}
	return out, nil
}

// Discover implements D(root, options) -> [path].
func Discover(root string, opts FilterOptions) ([]string, error) {
	paths, _, err := discover(root, opts)
	return paths, err
}

// discover returns the final paths plus the raw candidate count, so
// discover_with_analysis can compute its advisory statistics from the same
// pass without re-walking the filesystem.
func discover(root string, opts FilterOptions) (result []string, candidateCount int, err error) {
	if err := patternvalidate.ValidateList(opts.Include, lciserrors.RoleInclude); err != nil {
		return nil, 0, err
	}
	if err := patternvalidate.ValidateList(opts.Exclude, lciserrors.RoleExclude); err != nil {
		return nil, 0, err
	}

	normalizedIncludes := make([]string, len(opts.Include))
	for i, p := range opts.Include {
		normalizedIncludes[i] = normalizeIncludePattern(p)
	}

	candidates, err := walk(root, includesDotPath(normalizedIncludes))
	if err != nil {
		return nil, 0, err
	}
	candidateCount = len(candidates)

	included := candidates
	if len(normalizedIncludes) > 0 {
		cache := patterncache.Singleton()
		glob, gerr := cache.GetGlob(normalizedIncludes, nil, func() (patterncache.CompiledGlob, error) {
			return compiledGlob{patterns: normalizedIncludes}, nil
		})
		if gerr != nil {
			return nil, 0, gerr
		}
		included = included[:0:0]
		for _, p := range candidates {
			if glob.Match(p) {
				included = append(included, p)
			}
		}
	}

	var ignoreMatcher patterncache.CompiledIgnore
	if !opts.DisableGitignore {
		ignoreMatcher, err = ignore.Load(root, patterncache.Singleton())
		if err != nil {
			return nil, 0, err
		}
	}

	var excludeMatcher patterncache.CompiledIgnore
	if len(opts.Exclude) > 0 {
		cache := patterncache.Singleton()
		excludeMatcher, err = cache.GetIgnore(opts.Exclude, func() (patterncache.CompiledIgnore, error) {
			return ignore.Compile(opts.Exclude), nil
		})
		if err != nil {
			return nil, 0, err
		}
	}

	final := make([]string, 0, len(included))
	seen := make(map[string]struct{}, len(included))
	for _, p := range included {
		if excludeMatcher != nil && excludeMatcher.Matches(p) {
			continue
		}
		if ignoreMatcher != nil && ignoreMatcher.Matches(p) {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		final = append(final, p)
	}
	sort.Strings(final)

	if len(final) == 0 && candidateCount > 0 && (len(opts.Include) > 0 || len(opts.Exclude) > 0) {
		return nil, candidateCount, lciserrors.NewPatternConflict(
			lciserrors.ConflictAllExcluded, opts.Include, opts.Exclude, candidateCount, 0)
	}

	return final, candidateCount, nil
}

// ProjectRootMarkers are the files/directories whose presence in an
// ancestor directory stops the CLI's project-root ascent.
var ProjectRootMarkers = []string{
	".codebasemap", "PROJECT_INDEX.json", "package.json", ".git",
	"tsconfig.json", "pyproject.toml", "Cargo.toml", "go.mod",
}

// FindProjectRoot ascends from start looking for the first ancestor
// containing any ProjectRootMarkers entry, per spec.md's project-root
// discovery rule. Returns start unchanged if no marker is found before
// reaching the filesystem root.
func FindProjectRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		for _, marker := range ProjectRootMarkers {
			if _, statErr := os.Stat(filepath.Join(dir, marker)); statErr == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
