package vault

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/glimpse/internal/capture"
	"github.com/Iron-Ham/glimpse/internal/derive"
	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/event"
	"github.com/Iron-Ham/glimpse/internal/logging"
	"github.com/Iron-Ham/glimpse/internal/metrics"
	"github.com/Iron-Ham/glimpse/internal/queue"
	"github.com/Iron-Ham/glimpse/internal/watch"
)

// Config configures a Vault.
type Config struct {
	// Root is the storage root. Required.
	Root     string
	MaxLen   int
	DirMode  os.FileMode
	FileMode os.FileMode
	Hide     bool
	Persist  bool

	Source capture.Source
	Eraser queue.Eraser

	Policy            derive.Policy
	FullCapacity      int
	ThumbnailCapacity int
	Dedupe            bool

	// Watch starts a filesystem watcher on the sequence directories.
	Watch bool

	Logger  *logging.Logger
	Bus     *event.Bus
	Metrics *metrics.Metrics
}

// Vault ties the capture queue to the derivative cache.
type Vault struct {
	queue   *queue.Queue
	cache   *derive.Cache
	bus     *event.Bus
	metrics *metrics.Metrics
	logger  *logging.Logger
	watcher *watch.Watcher

	closeOnce sync.Once
}

// New creates a Vault. When cfg.Watch is set the sequence directories are
// created immediately so they can be watched.
func New(cfg Config) (*Vault, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.Bus == nil {
		cfg.Bus = event.NewBus(cfg.Logger)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	v := &Vault{
		bus:     cfg.Bus,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.WithComponent("vault"),
	}

	q, err := queue.New(queue.Config{
		Root:     cfg.Root,
		MaxLen:   cfg.MaxLen,
		DirMode:  cfg.DirMode,
		FileMode: cfg.FileMode,
		Hide:     cfg.Hide,
		Persist:  cfg.Persist,
		Source:   cfg.Source,
		Eraser:   cfg.Eraser,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	v.queue = q

	v.cache = derive.New(derive.Config{
		Policy:            cfg.Policy,
		FullCapacity:      cfg.FullCapacity,
		ThumbnailCapacity: cfg.ThumbnailCapacity,
		Dedupe:            cfg.Dedupe,
		Logger:            cfg.Logger,
		Observer:          &cacheObserver{metrics: cfg.Metrics, bus: cfg.Bus},
	})

	if cfg.Watch {
		if err := v.startWatcher(cfg.Logger); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Vault) startWatcher(logger *logging.Logger) error {
	dirs, err := v.queue.EnsureDirs()
	if err != nil {
		return err
	}
	w, err := watch.New(watchHandler{v}, logger)
	if err != nil {
		return err
	}
	for _, view := range queue.Views() {
		if err := w.Add(dirs[view]); err != nil {
			w.Stop()
			return err
		}
	}
	w.Start()
	v.watcher = w
	return nil
}

// Close stops the watcher, if any. The vault stays usable.
func (v *Vault) Close() error {
	v.closeOnce.Do(func() {
		if v.watcher != nil {
			v.watcher.Stop()
		}
	})
	return nil
}

// Bus returns the event bus lifecycle events are published on.
func (v *Vault) Bus() *event.Bus { return v.bus }

// Metrics returns the vault's collectors.
func (v *Vault) Metrics() *metrics.Metrics { return v.metrics }

// Root returns the absolute storage root.
func (v *Vault) Root() string { return v.queue.Root() }

// Prepare creates both sequence directories ahead of the first capture and
// returns their paths.
func (v *Vault) Prepare() (map[queue.View]string, error) {
	return v.queue.EnsureDirs()
}

// MaxLen returns the per-view queue cap.
func (v *Vault) MaxLen() int { return v.queue.MaxLen() }

// Capture grabs the screen into view's sequence and returns the new
// artifact's path. Overflowed artifacts are erased and their derivatives
// invalidated. A failed capture returns the *errors.CaptureError unchanged.
func (v *Vault) Capture(ctx context.Context, view queue.View, hooks queue.Hooks) (string, error) {
	entry, evicted, err := v.queue.Capture(ctx, view, hooks)
	if err != nil {
		v.captureFailed(view, err)
		return "", err
	}

	for _, ev := range evicted {
		v.dropped(ev)
		v.bus.Publish(event.NewArtifactEvictedEvent(string(ev.View), ev.Path, ev.Seq, ev.Err == nil))
	}

	v.metrics.CaptureSucceeded(string(view))
	v.recordLength(view)
	v.bus.Publish(event.NewArtifactCapturedEvent(string(view), entry.Path, entry.Seq))
	v.logger.WithView(string(view)).Info("captured", "path", entry.Path, "evicted", len(evicted))
	return entry.Path, nil
}

// CaptureActive captures into the active view.
func (v *Vault) CaptureActive(ctx context.Context, hooks queue.Hooks) (string, error) {
	return v.Capture(ctx, v.queue.View(), hooks)
}

func (v *Vault) captureFailed(view queue.View, err error) {
	v.metrics.CaptureFailed(string(view))

	var remediation string
	var ce *gerrors.CaptureError
	if gerrors.As(err, &ce) {
		remediation = ce.Remediation
	}
	v.bus.Publish(event.NewCaptureFailedEvent(string(view), err.Error(), remediation))
	v.logger.WithView(string(view)).Error("capture failed", "error", err)
}

// dropped finishes an artifact leaving a sequence by overflow or clear.
func (v *Vault) dropped(ev queue.Eviction) {
	v.cache.Invalidate(ev.Path)
	v.metrics.Evicted(string(ev.View))
	if ev.Err != nil {
		v.eraseFailed(ev.Path, ev.Err)
	}
}

func (v *Vault) eraseFailed(path string, err error) {
	v.metrics.EraseFailed()
	v.bus.Publish(event.NewEraseFailedEvent(path, err.Error()))
}

func (v *Vault) recordLength(view queue.View) {
	if n, err := v.queue.Len(view); err == nil {
		v.metrics.QueueLength(string(view), n)
	}
}

// ListQueue returns view's artifact paths, oldest first.
func (v *Vault) ListQueue(view queue.View) ([]string, error) {
	return v.queue.List(view)
}

// Entries returns view's entries, oldest first.
func (v *Vault) Entries(view queue.View) ([]queue.Entry, error) {
	return v.queue.Entries(view)
}

// GetDerivative returns the kind derivative of the artifact at path. Only
// an unreadable or missing artifact is an error; a transform failure yields
// the raw bytes with Fallback set.
func (v *Vault) GetDerivative(kind derive.Kind, path string) (derive.Derivative, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return derive.Derivative{}, gerrors.NewIOError("resolve path", path, err)
	}
	return v.cache.Get(kind, abs)
}

// DeleteArtifact erases the artifact at path, drops it from its sequence and
// invalidates its derivatives. Deleting a path that is no longer queued is
// not an error. If the erase fails the artifact is still dropped and the
// *errors.EraseError is returned, since the file may remain on disk.
func (v *Vault) DeleteArtifact(path string) error {
	entry, found, err := v.queue.Delete(path)
	if err != nil && !found {
		var ee *gerrors.EraseError
		if !gerrors.As(err, &ee) {
			return err
		}
	}

	abs := entry.Path
	if !found {
		abs, _ = filepath.Abs(path)
	}
	v.cache.Invalidate(abs)

	if found {
		v.metrics.Deleted()
		v.recordLength(entry.View)
	}
	v.bus.Publish(event.NewArtifactDeletedEvent(string(entry.View), abs, found))

	if err != nil {
		v.eraseFailed(abs, err)
		return err
	}
	return nil
}

// ClearQueue erases every artifact in view's sequence. Erase failures are
// logged and published but not returned.
func (v *Vault) ClearQueue(view queue.View) error {
	evicted, err := v.queue.Clear(view)
	if err != nil {
		return err
	}
	for _, ev := range evicted {
		v.dropped(ev)
	}
	v.recordLength(view)
	v.bus.Publish(event.NewQueueClearedEvent(string(view), len(evicted)))
	v.logger.WithView(string(view)).Info("cleared", "count", len(evicted))
	return nil
}

// Reset clears both views and empties the derivative cache.
func (v *Vault) Reset() error {
	for _, view := range queue.Views() {
		if err := v.ClearQueue(view); err != nil {
			return err
		}
	}
	v.cache.Purge()
	return nil
}

// Orphans lists untracked files under the root that are older than minAge.
func (v *Vault) Orphans(minAge time.Duration) ([]queue.Orphan, error) {
	return v.queue.Orphans(time.Now().Add(-minAge))
}

// Prune erases untracked files older than minAge. Failures are recorded on
// the returned orphans and published like any other erase failure.
func (v *Vault) Prune(minAge time.Duration) ([]queue.Orphan, error) {
	pruned, err := v.queue.Prune(time.Now().Add(-minAge))
	for _, o := range pruned {
		v.cache.Invalidate(o.Path)
		if o.Err != nil {
			v.eraseFailed(o.Path, o.Err)
		}
	}
	if len(pruned) > 0 {
		v.logger.Info("pruned orphans", "count", len(pruned))
	}
	return pruned, err
}

// View returns the active view.
func (v *Vault) View() queue.View { return v.queue.View() }

// SetView changes the active view.
func (v *Vault) SetView(view queue.View) error {
	if err := v.queue.SetView(view); err != nil {
		return err
	}
	v.logger.Debug("view switched", "view", string(view))
	return nil
}

// Stats is a point-in-time summary of the vault.
type Stats struct {
	Root   string
	View   queue.View
	MaxLen int
	Queue  map[queue.View]int
	Cache  map[derive.Kind]CacheStats
}

// CacheStats describes one derivative cache.
type CacheStats struct {
	Entries  int
	Capacity int
}

// Stats returns current queue lengths and cache occupancy.
func (v *Vault) Stats() (Stats, error) {
	s := Stats{
		Root:   v.queue.Root(),
		View:   v.queue.View(),
		MaxLen: v.queue.MaxLen(),
		Queue:  make(map[queue.View]int),
		Cache:  make(map[derive.Kind]CacheStats),
	}
	for _, view := range queue.Views() {
		n, err := v.queue.Len(view)
		if err != nil {
			return Stats{}, err
		}
		s.Queue[view] = n
	}
	for _, kind := range derive.Kinds() {
		s.Cache[kind] = CacheStats{Entries: v.cache.Len(kind), Capacity: v.cache.Capacity(kind)}
	}
	return s, nil
}
