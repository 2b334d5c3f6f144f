package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebasemap/codebasemap/internal/config"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
)

type fakeParser struct{}

func (fakeParser) ParseFile(absPath, ext string) (types.FileInfo, error) {
	return types.FileInfo{}, nil
}

func baseIndex(root string, files []string) *types.ProjectIndex {
	return &types.ProjectIndex{
		Metadata: types.IndexMetadata{Version: 1, Root: root, TotalFiles: len(files)},
		Tree:     tree.Build(files, "proj"),
		Nodes:    files,
		Files:    map[string]types.FileInfo{files[0]: {}},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, "condition never became true within timeout")
}

func newWatcher(t *testing.T, root string, idx *types.ProjectIndex) *Watcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Project.Root = root
	cfg.Index.WatchMode = true
	cfg.Index.WatchDebounceMs = 20

	w, err := New(cfg, idx, fakeParser{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(root))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_CreateAddsNodeAndFileInfo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.ts"), []byte("x"), 0o644))
	idx := baseIndex(root, []string{"main.ts"})

	var events []Event
	w := newWatcher(t, root, idx)
	w.SetCallbacks(func(e Event) { events = append(events, e) }, nil)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.ts"), []byte("y"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		_, ok := idx.Files["new.ts"]
		return ok
	})
	assert.Contains(t, idx.Nodes, "new.ts")
}

func TestWatcher_WriteReparsesExistingFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.ts")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	idx := baseIndex(root, []string{"main.ts"})
	idx.Metadata.UpdatedAt = "before"

	w := newWatcher(t, root, idx)
	_ = w

	require.NoError(t, os.WriteFile(target, []byte("changed"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		return idx.Metadata.UpdatedAt != "before"
	})
}

func TestWatcher_RemoveDropsNodeAndFileInfo(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "gone.ts")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	idx := baseIndex(root, []string{"gone.ts"})
	idx.Files["gone.ts"] = types.FileInfo{}

	w := newWatcher(t, root, idx)
	_ = w

	require.NoError(t, os.Remove(target))

	waitFor(t, 2*time.Second, func() bool {
		_, ok := idx.Files["gone.ts"]
		return !ok
	})
	assert.NotContains(t, idx.Nodes, "gone.ts")
}

func TestWatcher_IgnoresUnsupportedExtensions(t *testing.T) {
	root := t.TempDir()
	idx := baseIndex(root, []string{"main.ts"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.ts"), []byte("x"), 0o644))

	w := newWatcher(t, root, idx)
	_ = w

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))
	time.Sleep(100 * time.Millisecond)

	assert.NotContains(t, idx.Nodes, "notes.txt")
}

func TestWatcher_DisabledWhenWatchModeFalse(t *testing.T) {
	root := t.TempDir()
	idx := baseIndex(root, []string{"main.ts"})
	cfg := config.DefaultConfig()
	cfg.Project.Root = root
	cfg.Index.WatchMode = false

	w, err := New(cfg, idx, fakeParser{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.ts"), []byte("y"), 0o644))
	time.Sleep(100 * time.Millisecond)

	_, ok := idx.Files["new.ts"]
	assert.False(t, ok, "Start must not install watches when WatchMode is false")
	require.NoError(t, w.Stop())
}
