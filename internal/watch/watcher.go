package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/logfields"
)

// Rebuilder runs one build cycle.
type Rebuilder interface {
	Run(ctx context.Context) (build.Outcome, error)
}

// Invalidator drops a cached derived artifact.
type Invalidator interface {
	Invalidate()
}

// Batch is a group of changes that arrived within one batch window.
type Batch struct {
	Paths      []string
	Stylesheet bool
}

// Options configures a Watcher.
type Options struct {
	Roots      []string
	Classifier Classifier
	Window     time.Duration
	Rebuilder  Rebuilder
	// Invalidator is reset before the rebuild of a batch with stylesheet changes.
	Invalidator Invalidator
	Logger      *slog.Logger
}

// Watcher observes source roots and triggers a rebuild per batch of changes.
type Watcher struct {
	fs   *fsnotify.Watcher
	opts Options

	wg sync.WaitGroup
}

// New creates a watcher over opts.Roots, adding subdirectories recursively.
func New(opts Options) (*Watcher, error) {
	if opts.Rebuilder == nil {
		return nil, fmt.Errorf("watch: rebuilder is required")
	}
	if opts.Window <= 0 {
		opts.Window = 300 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{fs: fw, opts: opts}
	for _, root := range opts.Roots {
		if _, err := os.Stat(root); err != nil {
			opts.Logger.Warn("Watch root unavailable", logfields.Path(root), logfields.Error(err))
			continue
		}
		if err := w.addDirsRecursive(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run consumes filesystem events until ctx is done. Rebuilds run on their own
// goroutines; a failed rebuild is logged and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	var timerC <-chan time.Time
	var pending Batch

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			w.wg.Wait()
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			if !w.accept(ev, &pending) {
				continue
			}
			if !timer.Stop() && timerC != nil {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.opts.Window)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			batch := pending
			pending = Batch{}
			w.dispatch(ctx, batch)
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.opts.Logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) accept(ev fsnotify.Event, pending *Batch) bool {
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if !w.opts.Classifier.IgnoresDir(ev.Name) {
				_ = w.addDirsRecursive(ev.Name)
			}
			return false
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	cat := w.opts.Classifier.Classify(ev.Name)
	if cat == Ignored {
		return false
	}
	w.opts.Logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()), slog.String("category", cat.String()))
	pending.Paths = append(pending.Paths, ev.Name)
	if cat == Stylesheet {
		pending.Stylesheet = true
	}
	return true
}

func (w *Watcher) dispatch(ctx context.Context, batch Batch) {
	if len(batch.Paths) == 0 {
		return
	}
	if batch.Stylesheet && w.opts.Invalidator != nil {
		w.opts.Logger.Info("Stylesheet change detected, invalidating critical CSS cache")
		w.opts.Invalidator.Invalidate()
	}
	w.opts.Logger.Info("Change detected; rebuilding site", slog.Int("files", len(batch.Paths)))
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		outcome, err := w.opts.Rebuilder.Run(ctx)
		if err != nil {
			w.opts.Logger.Error("Rebuild failed", logfields.Error(err))
			return
		}
		w.opts.Logger.Debug("Rebuild finished", slog.String("outcome", outcome.String()))
	}()
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.Classifier.IgnoresDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.opts.Logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}
