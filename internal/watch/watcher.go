// Package watch notices artifacts that change or disappear without going
// through the queue, such as a user deleting a file by hand.
package watch

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/logging"
)

// DefaultDebounce coalesces the bursts of events a single write produces.
const DefaultDebounce = 50 * time.Millisecond

// Handler reacts to filesystem changes under the watched directories.
// Calls are made from the watcher goroutine, one at a time.
type Handler interface {
	// Removed is called when a file is gone, whether deleted or renamed away.
	Removed(path string)
	// Changed is called when a file still exists but its content was written.
	Changed(path string)
}

// Watcher watches a set of directories (non-recursively) and reports
// per-file changes to a Handler.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	logger   *logging.Logger
	debounce time.Duration

	mu   sync.Mutex
	dirs map[string]struct{}

	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopOnce sync.Once
}

// New creates a Watcher. A nil logger discards output.
func New(handler Handler, logger *logging.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, gerrors.NewValidationError("watch handler must not be nil").WithField("handler")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, gerrors.NewIOError("watch", "", err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{
		watcher:  fw,
		handler:  handler,
		logger:   logger.WithComponent("watch"),
		debounce: DefaultDebounce,
		dirs:     make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the coalescing window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Add starts watching dir. Adding the same directory twice is a no-op.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return gerrors.NewIOError("watch", dir, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[abs]; ok {
		return nil
	}
	if err := w.watcher.Add(abs); err != nil {
		return gerrors.NewIOError("watch", abs, err)
	}
	w.dirs[abs] = struct{}{}
	return nil
}

// Remove stops watching dir.
func (w *Watcher) Remove(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[abs]; !ok {
		return
	}
	_ = w.watcher.Remove(abs)
	delete(w.dirs, abs)
}

// Dirs returns the watched directories in sorted order.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// Start begins processing events in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.watchLoop()
}

// Stop ends event processing and releases the underlying watcher. It is
// safe to call more than once, and waits for a started loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()

		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.doneCh
		}
	})
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[ev.Name] |= ev.Op
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			batch := pending
			pending = make(map[string]fsnotify.Op)
			w.flush(batch)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// flush dispatches a coalesced batch in path order. The file's presence
// decides between Removed and Changed, so a remove followed by a recreate
// within one window counts as a change.
func (w *Watcher) flush(batch map[string]fsnotify.Op) {
	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, path := range paths {
		op := batch[path]
		_, err := os.Stat(path)
		switch {
		case gerrors.Is(err, os.ErrNotExist):
			w.logger.Debug("artifact removed externally", "path", path, "op", op.String())
			w.handler.Removed(path)
		case err == nil && op.Has(fsnotify.Write):
			w.logger.Debug("artifact changed", "path", path)
			w.handler.Changed(path)
		}
	}
}
