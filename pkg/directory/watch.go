package directory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/peertrack/internal/logger"
)

// WatchCatalog re-seeds dir from the catalog at path whenever the file is
// written or replaced. New file IDs are appended; existing entries are left
// untouched, so paging clients keep stable indices.
//
// The parent directory is watched rather than the file so that editors which
// save by rename are still observed. WatchCatalog blocks until ctx is done.
func WatchCatalog(ctx context.Context, dir Directory, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	logger.Info("Watching catalog for changes", logger.KeyPath, abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			files, err := LoadCatalog(abs)
			if err != nil {
				// A writer may still be mid-save; the next event retries.
				logger.Warn("Catalog reload failed", logger.KeyPath, abs, logger.KeyError, err)
				continue
			}
			if _, err := SeedCatalog(ctx, dir, files); err != nil {
				logger.Warn("Catalog reseed failed", logger.KeyPath, abs, logger.KeyError, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Catalog watcher error", logger.KeyError, err)
		}
	}
}
