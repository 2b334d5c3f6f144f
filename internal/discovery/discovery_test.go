package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/patterncache"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func newTestCache(t *testing.T) {
	t.Helper()
	patterncache.ResetSingleton(patterncache.DefaultConfig())
}

func TestDiscover_AllSupportedFilesWhenNoPatterns(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/index.ts":        "",
		"src/util.tsx":        "",
		"src/legacy.js":       "",
		"README.md":           "",
		"node_modules/x/a.ts": "",
	})
	got, err := Discover(root, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.ts", "src/legacy.js", "src/util.tsx"}, got)
}

func TestDiscover_DotfilesExcludedByDefault(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".hidden.ts":    "",
		"visible.ts":    "",
		".hiddendir/a.ts": "",
	})
	got, err := Discover(root, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.ts"}, got)
}

func TestDiscover_IncludeNormalizationIdempotent(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"examples/a.ts": "",
		"examples/b.ts": "",
		"other/c.ts":    "",
	})
	a, err := Discover(root, FilterOptions{Include: []string{"examples"}})
	require.NoError(t, err)
	b, err := Discover(root, FilterOptions{Include: []string{"examples/**"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"examples/a.ts", "examples/b.ts"}, a)
}

func TestDiscover_ExcludeAppliedAfterInclude(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/keep.ts": "",
		"src/skip.ts": "",
	})
	got, err := Discover(root, FilterOptions{Include: []string{"src/**"}, Exclude: []string{"**/skip.ts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/keep.ts"}, got)
}

func TestDiscover_GitignoreRespected(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/keep.ts":      "",
		"generated/out.ts": "",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0o644))
	got, err := Discover(root, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/keep.ts"}, got)
}

func TestDiscover_DisableGitignoreIgnoresGitignoreFile(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/keep.ts":      "",
		"generated/out.ts": "",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0o644))
	got, err := Discover(root, FilterOptions{DisableGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"generated/out.ts", "src/keep.ts"}, got)
}

func TestDiscover_DotfileSelectedByExplicitIncludePattern(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".config/setup.ts": "",
		"visible.ts":        "",
	})
	got, err := Discover(root, FilterOptions{Include: []string{".config/**"}})
	require.NoError(t, err)
	assert.Equal(t, []string{".config/setup.ts"}, got)
}

func TestDiscover_EmptyWithNoPatternsIsNotAnError(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	got, err := Discover(root, FilterOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_AllExcludedIsPatternConflict(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.ts": ""})
	_, err := Discover(root, FilterOptions{Include: []string{"nope/**"}})
	require.Error(t, err)
	var pc *lciserrors.PatternConflictError
	require.ErrorAs(t, err, &pc)
	assert.Equal(t, lciserrors.ConflictAllExcluded, pc.Reason)
}

func TestDiscover_PropagatesValidationError(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	_, err := Discover(root, FilterOptions{Include: []string{"../escape.ts"}})
	require.Error(t, err)
	var pe *lciserrors.PatternError
	require.ErrorAs(t, err, &pe)
}

func TestDiscoverWithAnalysis_NoMatchWarning(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/index.ts": ""})
	analysis, err := DiscoverWithAnalysis(root, FilterOptions{Include: []string{"src/**", "typo/**"}})
	require.NoError(t, err)
	require.Len(t, analysis.Paths, 1)

	found := false
	for _, w := range analysis.Warnings {
		if w.Kind == WarningNoMatch && w.Pattern == "typo/**" {
			found = true
		}
	}
	assert.True(t, found, "expected a no-match warning for typo/**")
}

func TestDiscoverWithAnalysis_ComplexPatternWarning(t *testing.T) {
	newTestCache(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a/b/c/d/index.ts": ""})
	analysis, err := DiscoverWithAnalysis(root, FilterOptions{Include: []string{"**/**/**/**/*.ts"}})
	require.NoError(t, err)
	found := false
	for _, w := range analysis.Warnings {
		if w.Kind == WarningComplexGlob {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFindProjectRoot_FindsPackageJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))
	sub := filepath.Join(root, "src", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	got := FindProjectRoot(sub)
	assert.Equal(t, root, got)
}

func TestFindProjectRoot_FallsBackToStart(t *testing.T) {
	root := t.TempDir()
	got := FindProjectRoot(root)
	assert.Equal(t, root, got)
}
