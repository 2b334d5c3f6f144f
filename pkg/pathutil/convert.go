// Package pathutil converts between absolute filesystem paths and the
// slash-separated, root-relative paths every ProjectIndex stores and
// every glob pattern is matched against. Grounded on the teacher's
// pkg/pathutil/convert.go (ToRelative's fallback-to-absolute-on-error and
// escapes-the-root handling), adapted from the teacher's grep/search
// result converters to this module's plain path values.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to a slash-separated path relative
// to rootDir. It falls back to the original (cleaned) path when the
// conversion fails or when the result would escape rootDir via "..",
// since a ProjectIndex has no representation for paths outside its root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return filepath.ToSlash(absPath)
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	rel, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return filepath.ToSlash(absPath)
	}

	return filepath.ToSlash(rel)
}

// ToAbsolute joins a stored slash-separated relative path back onto
// rootDir, translating to the host's native separator. A path that is
// already absolute is returned unchanged.
func ToAbsolute(relPath, rootDir string) string {
	if relPath == "" {
		return rootDir
	}
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(rootDir, filepath.FromSlash(relPath))
}

// IsWithinRoot reports whether relPath (as produced by ToRelative) stays
// inside rootDir rather than having fallen back to an absolute path.
func IsWithinRoot(relPath string) bool {
	return relPath != "" && !filepath.IsAbs(relPath)
}
