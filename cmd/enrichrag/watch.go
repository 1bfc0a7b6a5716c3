package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchPaths re-indexes files under paths as they change until ctx is done.
func watchPaths(ctx context.Context, index documentIndex, paths []string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, root := range paths {
		if err := addWatchDirs(w, root); err != nil {
			return err
		}
	}
	logger.Info("watching for changes", "paths", paths)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, err := handleFsEvent(ctx, index, w.Add, ev); err != nil {
				logger.Warn("re-index failed", "path", ev.Name, "op", ev.Op.String(), "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// addWatchDirs watches root and every non-hidden directory below it. A file
// root is watched through its parent directory.
func addWatchDirs(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// handleFsEvent applies one event to the index and reports whether the index
// changed. Creates and writes re-index the file, removes and renames delete
// its chunks; chmod, directories and hidden files are ignored.
func handleFsEvent(ctx context.Context, index documentIndex, watchDir func(string) error, ev fsnotify.Event) (bool, error) {
	if isHidden(filepath.Base(ev.Name)) {
		return false, nil
	}
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return false, nil
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && watchDir != nil {
				return false, watchDir(ev.Name)
			}
			return false, nil
		}
		n, _, err := ingestFile(ctx, index, ev.Name)
		return n > 0, err
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		n, err := index.DeleteSource(ctx, documentID(ev.Name))
		return n > 0, err
	default:
		return false, nil
	}
}
