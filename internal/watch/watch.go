// Package watch ingests file saves from a directory tree as code snapshots,
// turning editor activity into evolution history.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// Ingestor receives snapshot content read from changed files.
type Ingestor interface {
	TrackEvolution(code, language string, ctx types.ConversationContext) (*types.EvolutionResult, error)
}

// languageByExt maps watched file extensions to snapshot languages.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".swift": "swift",
	".kt":    "kotlin",
	".java":  "java",
	".rs":    "rust",
	".rb":    "ruby",
	".c":     "c",
	".cpp":   "cpp",
}

// maxFileSize bounds how large a saved file is still worth ingesting.
const maxFileSize = 1 << 20

// Watcher feeds file writes under a directory into an Ingestor, debouncing
// rapid save bursts per file.
type Watcher struct {
	ingestor   Ingestor
	extensions map[string]bool
	debounce   time.Duration
}

// New builds a watcher for the given extensions (leading dot). An empty
// extension list watches everything languageByExt knows.
func New(ingestor Ingestor, extensions []string, debounce time.Duration) *Watcher {
	exts := make(map[string]bool)
	if len(extensions) == 0 {
		for ext := range languageByExt {
			exts[ext] = true
		}
	}
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{ingestor: ingestor, extensions: exts, debounce: debounce}
}

// Run watches dir and all its subdirectories until the context is canceled.
// Hidden directories are skipped.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := addRecursive(fw, dir); err != nil {
		return err
	}
	logging.Watch("Watching %s (debounce=%v)", dir, w.debounce)

	convCtx := types.ConversationContext{
		ConversationID: "watch:" + dir,
		WorkspaceType:  types.WorkspaceProject,
	}

	changed := make(chan string, 64)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				w.handleEvent(fw, ev, changed)
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				logging.Watch("Watcher error: %v", err)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.debounce)
		defer ticker.Stop()
		pending := make(map[string]time.Time)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case path := <-changed:
				pending[path] = time.Now()
			case <-ticker.C:
				for path, seen := range pending {
					if time.Since(seen) < w.debounce {
						continue
					}
					delete(pending, path)
					w.ingest(path, convCtx)
				}
			}
		}
	})

	return g.Wait()
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, changed chan<- string) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// New directories join the watch set.
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 && !hidden(filepath.Base(ev.Name)) {
			if err := fw.Add(ev.Name); err != nil {
				logging.Watch("Failed to watch new directory %s: %v", ev.Name, err)
			}
		}
		return
	}

	if !w.extensions[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}
	select {
	case changed <- ev.Name:
	default:
		logging.Watch("Event backlog full, dropping %s", ev.Name)
	}
}

func (w *Watcher) ingest(path string, convCtx types.ConversationContext) {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 || info.Size() > maxFileSize {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Watch("Failed to read %s: %v", path, err)
		return
	}

	language := languageByExt[strings.ToLower(filepath.Ext(path))]
	result, err := w.ingestor.TrackEvolution(string(data), language, convCtx)
	if err != nil {
		logging.Watch("Failed to ingest %s: %v", path, err)
		return
	}
	logging.Watch("Ingested %s: %s -> v%s", path, result.Evolution.Type, result.Version.String())
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "."
}
