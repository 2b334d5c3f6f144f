// Package watch is the fsnotify-driven incremental reindex loop: it
// watches a project root for create/write/remove events and keeps an
// in-memory ProjectIndex current by invoking Component H (internal/update)
// instead of rescanning the whole tree. Grounded on the teacher's
// internal/indexing/watcher.go (FileWatcher struct shape, recursive
// addWatches with symlink-cycle guarding, debounced event dispatch driven
// by cfg.Index.WatchDebounceMs), adapted to this module's flat
// *types.ProjectIndex instead of the teacher's graph-database store.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codebasemap/codebasemap/internal/config"
	"github.com/codebasemap/codebasemap/internal/debug"
	"github.com/codebasemap/codebasemap/internal/ignore"
	"github.com/codebasemap/codebasemap/internal/tree"
	"github.com/codebasemap/codebasemap/internal/types"
	"github.com/codebasemap/codebasemap/internal/update"
	"github.com/codebasemap/codebasemap/pkg/pathutil"
)

// builtinPrunedDirs mirrors discovery's walk pruning so the watcher never
// installs an fsnotify watch under a directory the scanner itself skips.
var builtinPrunedDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".turbo":       true,
	".git":         true,
	"coverage":     true,
	".nyc_output":  true,
}

// EventKind classifies a single filesystem change the watcher acted on.
type EventKind int

const (
	EventCreate EventKind = iota
	EventWrite
	EventRemove
	EventRename
)

// Event is delivered to a Callback after the index has already been
// updated to reflect it.
type Event struct {
	Kind EventKind
	Path string // project-relative, slash-separated
}

// Callback is invoked once per processed event, after the in-memory index
// mutation has completed.
type Callback func(Event)

// Parser is the subset of the external parser contract the updater needs.
type Parser interface {
	ParseFile(absPath, ext string) (types.FileInfo, error)
}

// Watcher watches cfg.Project.Root for changes and keeps idx current.
type Watcher struct {
	cfg     *config.Config
	idx     *types.ProjectIndex
	parser  Parser
	matcher *ignore.Matcher

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	onEvent   Callback
	onError   func(error)
	pending   map[string]fsnotify.Op
	debounce  time.Duration
	timer     *time.Timer
}

// New constructs a Watcher bound to idx. idx is mutated in place as events
// are processed; callers must not read it concurrently without their own
// synchronization (the same constraint the assembler's caller already
// observes for a single in-process index).
func New(cfg *config.Config, idx *types.ProjectIndex, parser Parser, matcher *ignore.Matcher) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:      cfg,
		idx:      idx,
		parser:   parser,
		matcher:  matcher,
		fsw:      fsw,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]fsnotify.Op),
		debounce: debounce,
	}, nil
}

// SetCallbacks installs the per-event and per-error hooks. Both may be
// nil.
func (w *Watcher) SetCallbacks(onEvent Callback, onError func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvent = onEvent
	w.onError = onError
}

// Start installs recursive watches under root and begins processing
// events in background goroutines. It returns once the initial watch
// tree has been installed; event processing continues until Stop.
func (w *Watcher) Start(root string) error {
	if !w.cfg.Index.WatchMode {
		return nil
	}
	if err := w.addWatches(root); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.runDebouncer()

	debug.Logf("watch: started on %s (debounce=%s)", root, w.debounce)
	return nil
}

// Stop cancels background goroutines and closes the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldSkipDir(root, path) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			debug.Warn("watch_add", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldSkipDir(root, path string) bool {
	base := filepath.Base(path)
	if base != "." && strings.HasPrefix(base, ".") && path != root {
		return true
	}
	if builtinPrunedDirs[base] {
		return true
	}
	if w.matcher != nil {
		rel := pathutil.ToRelative(path, root)
		if pathutil.IsWithinRoot(rel) && w.matcher.Matches(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.queue(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			onError := w.onError
			w.mu.Unlock()
			if onError != nil {
				onError(err)
			} else {
				debug.Warn("watch_fsnotify", "", err)
			}
		}
	}
}

// queue coalesces rapid-fire events per path, keeping the most recent op,
// and (re)starts the debounce timer.
func (w *Watcher) queue(ev fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[ev.Name] = ev.Op
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) runDebouncer() {
	defer w.wg.Done()
	<-w.ctx.Done()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	onEvent := w.onEvent
	w.mu.Unlock()

	for absPath, op := range batch {
		w.applyEvent(absPath, op, onEvent)
	}
}

func (w *Watcher) applyEvent(absPath string, op fsnotify.Op, onEvent Callback) {
	ext := filepath.Ext(absPath)
	if !types.IsSupportedExtension(ext) {
		if info, err := os.Stat(absPath); err == nil && info.IsDir() {
			if op&fsnotify.Create != 0 {
				if err := w.fsw.Add(absPath); err != nil {
					debug.Warn("watch_add", absPath, err)
				}
			}
		}
		return
	}

	rel := pathutil.ToRelative(absPath, w.idx.Metadata.Root)
	if !pathutil.IsWithinRoot(rel) {
		return
	}

	switch {
	case op&fsnotify.Remove != 0 || op&fsnotify.Rename != 0:
		if _, exists := w.idx.Files[rel]; !exists {
			return
		}
		update.RemoveFile(rel, w.idx)
		if onEvent != nil {
			kind := EventRemove
			if op&fsnotify.Rename != 0 {
				kind = EventRename
			}
			onEvent(Event{Kind: kind, Path: rel})
		}

	case op&fsnotify.Create != 0 || op&fsnotify.Write != 0:
		_, existed := w.idx.Files[rel]
		if !existed {
			w.idx.Nodes = append(w.idx.Nodes, rel)
			w.idx.Metadata.TotalFiles = len(w.idx.Nodes)
			w.idx.Tree = tree.Build(w.idx.Nodes, w.idx.Tree.Name)
		}
		if _, err := update.UpdateFile(rel, w.idx, w.parser); err != nil {
			debug.Warn("watch_update", rel, err)
			return
		}
		if onEvent != nil {
			kind := EventWrite
			if !existed {
				kind = EventCreate
			}
			onEvent(Event{Kind: kind, Path: rel})
		}
	}
}
