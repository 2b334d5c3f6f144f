// Package ignore implements Component C (Ignore Engine) of spec.md §4.C:
// a composite matcher over a project's .gitignore file, a fixed set of
// built-in default ignore lines, and (at the walker level, see
// internal/discovery) a fixed set of always-pruned directory names.
//
// The pattern compiler is grounded on the teacher's
// internal/config/gitignore.go (GitignorePattern fields: Negate, Directory,
// Absolute; later patterns override earlier ones; "!" re-includes), adapted
// to compile each line down to a doublestar pattern instead of a bespoke
// regex, since doublestar is this module's one glob engine throughout.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codebasemap/codebasemap/internal/patterncache"
)

// BuiltinPrunedDirs are never descended into by Component D's walker,
// regardless of .gitignore contents.
var BuiltinPrunedDirs = []string{
	"node_modules", "dist", "build", ".next", ".turbo", ".git", "coverage", ".nyc_output",
}

// BuiltinDefaultLines are appended after the user's .gitignore, per
// spec.md §4.C.2: editor junk, logs, environment files, temp dirs, and
// dependency lockfiles.
var BuiltinDefaultLines = []string{
	"*.swp", "*.swo", "*~",
	"*.log",
	".env", ".env.*",
	"*.tmp", "tmp/", ".tmp/",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
}

// compiledPattern is one parsed .gitignore line.
type compiledPattern struct {
	globPattern string
	negate      bool
	directory   bool
}

// Matcher is the composed CompiledIgnore: spec.md's CompiledIgnore
// interface, implemented so Component B's cache can hold it opaquely.
type Matcher struct {
	patterns []compiledPattern
}

var _ patterncache.CompiledIgnore = (*Matcher)(nil)

// Compile parses gitignore-grammar lines (blank lines, # comments, !
// negation, trailing / for directory-only, leading / for root-anchored,
// glob wildcards) into a Matcher.
func Compile(lines []string) *Matcher {
	m := &Matcher{}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, compilePattern(line))
	}
	return m
}

func compilePattern(line string) compiledPattern {
	p := compiledPattern{}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.directory = true
		line = strings.TrimSuffix(line, "/")
	}
	anchored := strings.HasPrefix(line, "/")
	if anchored {
		line = strings.TrimPrefix(line, "/")
	}
	if !anchored && !strings.Contains(line, "/") {
		// No separator: matches at every depth (gitignore semantics).
		p.globPattern = "**/" + line
	} else {
		p.globPattern = line
	}
	return p
}

// Matches reports whether the project-relative, forward-slash path is
// ignored after applying every pattern in order (later patterns, including
// negations, override earlier ones — standard gitignore precedence).
func (m *Matcher) Matches(path string) bool {
	ignored := false
	for _, p := range m.patterns {
		if patternMatches(p, path) {
			ignored = !p.negate
		}
	}
	return ignored
}

func patternMatches(p compiledPattern, path string) bool {
	// A directory-only pattern ("build/") can never match a file whose
	// full name equals the pattern — only files nested underneath a
	// directory of that name, so only the path's ancestor directories are
	// tested against it.
	if p.directory {
		for i := strings.LastIndex(path, "/"); i > 0; i = strings.LastIndex(path[:i], "/") {
			if ok, _ := doublestar.Match(p.globPattern, path[:i]); ok {
				return true
			}
		}
		return false
	}
	if ok, _ := doublestar.Match(p.globPattern, path); ok {
		return true
	}
	// A bare name, which gitignore treats as matching both a file and a
	// directory of that name, also ignores everything nested under a
	// matching directory component.
	if ok, _ := doublestar.Match(p.globPattern+"/**", path); ok {
		return true
	}
	return false
}

// LoadGitignoreLines reads root/.gitignore and returns its raw lines.
// Read errors (missing file, permission denied) are swallowed — discovery
// continues with built-ins only, per spec.md §4.C.3 and §7.
func LoadGitignoreLines(root string) []string {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Load composes a project's .gitignore with the built-in defaults and
// returns the cached, compiled Matcher (Component B's ignore sub-cache).
func Load(root string, cache *patterncache.Cache) (*Matcher, error) {
	lines := append(append([]string{}, LoadGitignoreLines(root)...), BuiltinDefaultLines...)
	compiled, err := cache.GetIgnore(lines, func() (patterncache.CompiledIgnore, error) {
		return Compile(lines), nil
	})
	if err != nil {
		return nil, err
	}
	return compiled.(*Matcher), nil
}
