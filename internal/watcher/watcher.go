// Package watcher provides the debounced filesystem watch behind
// `arena watch`: it observes a workspace and fires a callback when source
// files settle after a burst of changes.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ignoredDirs are never watched; they churn constantly and never hold the
// files a validation command cares about.
var ignoredDirs = map[string]bool{
	".git":         true,
	".agentarena":  true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
}

// ignoredExts are editor droppings and build noise.
var ignoredExts = map[string]bool{
	".swp": true, ".swo": true, ".swn": true,
	".tmp": true, ".bak": true,
	".log": true,
}

// Watcher watches a workspace tree for source changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	onSettle func()
	logger   *slog.Logger
}

// New returns a Watcher over dir that calls onSettle once changes have been
// quiet for the debounce interval.
func New(dir string, debounce time.Duration, onSettle func(), logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		onSettle: onSettle,
		logger:   logger,
	}
}

// Watch blocks until ctx is cancelled, firing the callback after each
// debounced burst of relevant events. Directories created while watching are
// added to the watch set.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	if err := w.addTree(fsw, w.dir); err != nil {
		w.logger.Warn("could not watch some subdirectories", "dir", w.dir, "error", err)
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())

			// A new directory needs watching too; its contents may arrive
			// before we see further events for it.
			if event.Has(fsnotify.Create) {
				if err := w.addTree(fsw, event.Name); err != nil {
					w.logger.Debug("could not extend watch", "path", event.Name, "error", err)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onSettle)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// relevant filters the event stream down to meaningful source edits.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(event.Name), "/") {
		if ignoredDirs[part] {
			return false
		}
	}
	return !ignoredExts[filepath.Ext(event.Name)]
}

// addTree watches root and every non-ignored directory beneath it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || ignoredDirs[d.Name()]) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Debug("could not watch directory", "path", path, "error", err)
		}
		return nil
	})
}
