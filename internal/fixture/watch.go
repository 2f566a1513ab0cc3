package fixture

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/khanglvm/afm-viewer/internal/debounce"
)

const reloadDelay = 100 * time.Millisecond

// watchFiles invalidates cached catalogs when a catalog.json changes.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.store.Dir()); err != nil {
		// Serving still works without reloads.
		s.logger.Error("failed to watch fixture directory", "error", err)
	}

	reload := debounce.NewTask(clockwork.NewRealClock(), reloadDelay, s.store.Reload)
	defer reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// New tool directories need their own watch.
				_ = watchDirRecursive(watcher, event.Name)
			}
			if !isCatalogEvent(event) {
				continue
			}
			s.logger.Debug("catalog changed", "file", event.Name, "op", event.Op.String())
			reload.Arm()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func isCatalogEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != catalogFile {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
