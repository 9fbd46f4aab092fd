package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses bursts of file events into one reload.
const watchDebounce = 100 * time.Millisecond

// Watch reloads dir whenever a resource under it changes and hands every
// result to fn: a freshly loaded registry, or the load error. Registries
// already handed out are never modified. Watch blocks until ctx is done.
//
// Directories created after Watch starts are watched as well.
func Watch(ctx context.Context, dir string, fn func(*Registry, error), opts ...Option) error {
	o := newOptions(opts)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: watch: %w", err)
	}
	defer w.Close()
	if err := addTree(w, dir); err != nil {
		return fmt.Errorf("registry: watch %s: %w", dir, err)
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if err := addTree(w, ev.Name); err != nil {
					o.logger.WarnContext(ctx, "cannot watch directory", "path", ev.Name, "error", err)
				}
			}
			if !relevant(ev) {
				continue
			}
			o.logger.DebugContext(ctx, "statement resource changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.logger.WarnContext(ctx, "watch error", "dir", dir, "error", err)
		case <-timer.C:
			r, err := Load(ctx, dir, opts...)
			fn(r, err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	return Supported(ev.Name)
}

// addTree watches root and every directory below it. Files are ignored.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
