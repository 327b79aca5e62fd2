package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"subcon/internal/logging"
)

const watchDebounce = 200 * time.Millisecond

// Watch reloads the index whenever a corpus document is created, written,
// removed or renamed. Rapid changes are batched. It blocks until ctx is done.
func (ix *Index) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, ix.opts.Dir); err != nil {
		return err
	}
	logging.Retrieval("Watching corpus %s", ix.opts.Dir)

	ticker := time.NewTicker(watchDebounce / 2)
	defer ticker.Stop()

	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				_ = addDirs(watcher, event.Name)
			}
			if !isCorpusFile(event.Name) && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.RetrievalDebug("corpus event %s on %s", event.Op, event.Name)
			lastEvent = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.RetrievalWarn("corpus watcher error: %v", err)

		case <-ticker.C:
			if lastEvent.IsZero() || time.Since(lastEvent) < watchDebounce {
				continue
			}
			lastEvent = time.Time{}
			if err := ix.Load(ctx); err != nil {
				logging.RetrievalWarn("corpus reload failed: %v", err)
			}
		}
	}
}

func addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}
