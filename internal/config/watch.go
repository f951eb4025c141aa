package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

// WatchSpeedTable calls apply with a freshly loaded table every time the file
// at path is written, created or moved into place. A table that fails to load
// is logged and skipped, leaving the previous one in effect.
// It blocks until ctx is cancelled.
func WatchSpeedTable(ctx context.Context, path string, apply func(*fan.SpeedTable)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	path = filepath.Clean(path)

	// Editors replace files with a rename, which drops a watch on the file itself.
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	logger.InfoKV(ctx, "Watching speed table", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			reload(ctx, path, apply)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Speed table watcher error", "error", watchErr)
		}
	}
}

func reload(ctx context.Context, path string, apply func(*fan.SpeedTable)) {
	table, err := LoadSpeedTable(path)
	if err != nil {
		logger.WarnKV(ctx, "Keeping previous speed table", "path", path, "error", err)
		return
	}

	lowest, highest := table.Range()
	logger.InfoKV(ctx, "Speed table reloaded", "entries", table.Len(), "lowest", lowest, "highest", highest)

	apply(table)
}
