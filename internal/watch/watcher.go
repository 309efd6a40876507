// Package watch drives revalidation from filesystem events on the corpus.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for each relevant file change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// SettleCallback is called once after a burst of changes has quieted down.
// The paths slice holds every file touched since the previous settle.
type SettleCallback func(paths []string)

// Watcher observes a corpus root with fsnotify and coalesces bursts of
// events into settle callbacks. Editors write files several times per save,
// so per-event revalidation would thrash; the debounce window batches them.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Logger   *slog.Logger

	// Extra absolute paths watched besides the root tree, typically the
	// exception registry and secret allowlist.
	ExtraFiles []string
}

// New builds a watcher over root with the default 500ms debounce.
func New(root string, logger *slog.Logger) *Watcher {
	return &Watcher{Root: root, Debounce: 500 * time.Millisecond, Logger: logger}
}

// Run starts the watcher and processes events until ctx is cancelled. It
// calls onEvent (if non-nil) per change and onSettle (if non-nil) after each
// debounced burst. New directories created at runtime are added to the watch
// list automatically.
func (wt *Watcher) Run(ctx context.Context, onEvent EventCallback, onSettle SettleCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, wt.Root); err != nil {
		return err
	}
	for _, p := range wt.ExtraFiles {
		if p == "" {
			continue
		}
		if dir := filepath.Dir(p); dir != "" {
			if addErr := w.Add(dir); addErr != nil {
				wt.Logger.Warn("watcher: add extra dir failed",
					slog.String("path", dir), slog.String("error", addErr.Error()))
			}
		}
	}

	wt.Logger.Info("watcher: started", slog.String("root", wt.Root))

	var settleTimer *time.Timer
	var settleCh <-chan time.Time
	dirty := make(map[string]struct{})

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(wt.Debounce)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(wt.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			wt.Logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			if onSettle != nil && len(dirty) > 0 {
				paths := make([]string, 0, len(dirty))
				for p := range dirty {
					paths = append(paths, p)
				}
				onSettle(paths)
			}
			dirty = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						wt.Logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						wt.Logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					continue
				}
			}

			if !wt.relevant(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(wt.Root, absPath)
			if relErr != nil {
				rel = absPath
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				wt.Logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
				if onEvent != nil {
					onEvent(kind, rel)
				}
				dirty[rel] = struct{}{}
				scheduleSettle()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; a Create for the new
				// path follows if it lands inside the watched tree.
				wt.Logger.Debug("watcher: removed", slog.String("path", rel))
				if onEvent != nil {
					onEvent("deleted", rel)
				}
				dirty[rel] = struct{}{}
				scheduleSettle()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			wt.Logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant reports whether a changed file can affect validation results.
// Markdown entries always do; attachments are referenced by hash so any
// sibling file counts; temporary write artifacts do not.
func (wt *Watcher) relevant(absPath string) bool {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".raido-tmp-") || strings.HasPrefix(base, ".") {
		for _, extra := range wt.ExtraFiles {
			if absPath == extra {
				return true
			}
		}
		return false
	}
	return true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Base(path) == ".git" {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
