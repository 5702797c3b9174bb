// Package watch re-runs a callback when files under a directory change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"uiverify/internal/logging"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore lists directories whose changes never trigger a run, such as
	// the artifact directory when it lives inside the watched tree.
	Ignore []string
	Logger *slog.Logger
}

// Watcher watches a directory tree.
type Watcher struct {
	dir      string
	debounce time.Duration
	ignore   []string
	log      *slog.Logger
	fw       *fsnotify.Watcher
}

// New starts watching dir and every directory below it. Watches are in
// place when New returns.
func New(dir string, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		dir:      dir,
		debounce: opts.Debounce,
		log:      opts.Logger,
		fw:       fw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = logging.New("watch")
	}
	for _, p := range opts.Ignore {
		abs, err := filepath.Abs(p)
		if err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ig := range w.ignore {
		if abs == ig || strings.HasPrefix(abs, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run calls fn with the sorted set of changed paths each time the tree has
// been quiet for the debounce period. fn runs on Run's goroutine; changes
// made while it runs are batched into the next call. Run returns when ctx
// is done.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Warn("watch new directory", slog.String("path", ev.Name), slog.Any("err", err))
					}
				}
			}
			w.log.Debug("change", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.Any("err", err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			fn(ctx, changed)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
