package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/glimpse/internal/capture"
	"github.com/Iron-Ham/glimpse/internal/erase"
	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/logging"
	"github.com/Iron-Ham/glimpse/internal/obfuscate"
)

// DefaultMaxLen is the default cap on each sequence.
const DefaultMaxLen = 5

// Eraser securely removes a file. *erase.Eraser satisfies it.
type Eraser interface {
	Erase(path string) error
}

// Hooks bracket a capture. Before typically hides the caller's own UI so it
// does not appear in the image; After restores it. Either may be nil.
type Hooks struct {
	Before func()
	After  func()
}

// Eviction is an artifact removed by overflow or Clear, with the result of
// erasing its file. The artifact is gone from the sequence regardless of Err.
type Eviction struct {
	Entry
	Err error
}

// Config configures a Queue.
type Config struct {
	// Root is the storage root holding both sequence directories. Required.
	Root string
	// MaxLen caps each sequence. Defaults to DefaultMaxLen.
	MaxLen int
	// DirMode and FileMode default to 0700 and 0600.
	DirMode  os.FileMode
	FileMode os.FileMode
	// Hide applies platform hidden-file attributes where supported.
	Hide bool
	// Persist mirrors the sequences to a manifest in Root.
	Persist bool
	// Source produces the raw capture. Required for Capture.
	Source capture.Source
	// Eraser removes evicted and deleted files. Defaults to erase.New().
	Eraser Eraser
	Logger *logging.Logger
	// Now is the clock used for file names. Defaults to time.Now.
	Now func() time.Time
}

type sequence struct {
	mu      sync.Mutex
	view    View
	dirName string
	ring    *ring
}

// Queue is the pair of bounded artifact sequences. It is safe for
// concurrent use.
type Queue struct {
	root     string
	maxLen   int
	dirMode  os.FileMode
	fileMode os.FileMode
	hide     bool
	source   capture.Source
	eraser   Eraser
	logger   *logging.Logger
	now      func() time.Time
	store    *manifestStore

	seqs map[View]*sequence
	next atomic.Uint64

	viewMu sync.Mutex
	view   View

	captureMu sync.Mutex
}

// New creates a Queue. Nothing is written to disk until the first mutation.
func New(cfg Config) (*Queue, error) {
	if cfg.Root == "" {
		return nil, gerrors.NewValidationError("storage root is required").WithField("root")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, gerrors.NewIOError("resolve root", cfg.Root, err)
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o700
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o600
	}
	if cfg.Eraser == nil {
		cfg.Eraser = erase.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	q := &Queue{
		root:     root,
		maxLen:   cfg.MaxLen,
		dirMode:  cfg.DirMode.Perm(),
		fileMode: cfg.FileMode.Perm(),
		hide:     cfg.Hide,
		source:   cfg.Source,
		eraser:   cfg.Eraser,
		logger:   cfg.Logger.WithComponent("queue"),
		now:      cfg.Now,
		seqs:     make(map[View]*sequence, 2),
		view:     Primary,
	}
	if cfg.Persist {
		q.store = &manifestStore{root: root, fileMode: q.fileMode}
	}
	for _, v := range Views() {
		q.seqs[v] = &sequence{view: v, ring: newRing()}
	}
	return q, nil
}

// Root returns the absolute storage root.
func (q *Queue) Root() string { return q.root }

// MaxLen returns the per-sequence cap.
func (q *Queue) MaxLen() int { return q.maxLen }

// Capture grabs the screen into the given view's sequence and returns the
// new entry together with any artifacts evicted to keep the sequence within
// its cap. Capture failures are returned as *errors.CaptureError.
//
// hooks.Before runs before the capture source; hooks.After runs exactly
// once afterwards, whether or not the capture succeeded. Concurrent calls
// are serialized so hook pairs never interleave.
func (q *Queue) Capture(ctx context.Context, view View, hooks Hooks) (Entry, []Eviction, error) {
	if !view.Valid() {
		return Entry{}, nil, unknownView(view)
	}
	if q.source == nil {
		return Entry{}, nil, gerrors.NewCaptureError("no capture source configured", gerrors.ErrCaptureToolMissing)
	}

	q.captureMu.Lock()
	defer q.captureMu.Unlock()

	var dir string
	if err := q.withSequence(view, func(s *sequence) (bool, error) {
		var created bool
		var err error
		dir, created, err = q.ensureDir(s)
		return created, err
	}); err != nil {
		return Entry{}, nil, err
	}

	final, err := q.produce(ctx, dir, hooks)
	if err != nil {
		return Entry{}, nil, err
	}

	var entry Entry
	var evicted []Eviction
	err = q.withSequence(view, func(s *sequence) (bool, error) {
		entry = Entry{Seq: q.next.Add(1), Path: final, View: view}
		s.ring.push(entry.Seq, final)
		for s.ring.len() > q.maxLen {
			seq, path, _ := s.ring.popOldest()
			ev := Eviction{Entry: Entry{Seq: seq, Path: path, View: view}}
			if ev.Err = q.eraser.Erase(path); ev.Err != nil {
				q.logger.WithView(string(view)).Warn("erase of evicted artifact failed", "path", path, "error", ev.Err)
			}
			evicted = append(evicted, ev)
		}
		return true, nil
	})
	if err != nil {
		_ = q.eraser.Erase(final)
		return Entry{}, nil, err
	}

	q.logger.WithView(string(view)).Info("captured", "path", final, "seq", entry.Seq, "evicted", len(evicted))
	return entry, evicted, nil
}

// produce runs the capture source into a temporary file, renames it to a
// fresh artifact name and wraps its contents.
func (q *Queue) produce(ctx context.Context, dir string, hooks Hooks) (string, error) {
	tmp := filepath.Join(dir, "."+uuid.NewString()+".png")

	if hooks.Before != nil {
		hooks.Before()
	}
	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		if hooks.After != nil {
			hooks.After()
		}
	}
	defer restore()

	if err := q.source.Capture(ctx, tmp); err != nil {
		_ = q.eraser.Erase(tmp)
		var ce *gerrors.CaptureError
		if !gerrors.As(err, &ce) {
			err = gerrors.NewCaptureError("screen capture failed", err)
		}
		q.logger.Error("capture failed", "error", err)
		return "", err
	}

	raw, err := os.ReadFile(tmp)
	if err != nil || len(raw) == 0 {
		_ = q.eraser.Erase(tmp)
		if err == nil {
			err = gerrors.New("empty output")
		}
		cerr := gerrors.NewCaptureError("capture produced no image", err)
		q.logger.Error("capture failed", "error", cerr)
		return "", cerr
	}

	final := filepath.Join(dir, artifactName(q.now()))
	if err := os.Rename(tmp, final); err != nil {
		_ = q.eraser.Erase(tmp)
		return "", gerrors.NewIOError("rename capture", tmp, err)
	}
	if err := q.wrapInPlace(final, raw); err != nil {
		_ = q.eraser.Erase(final)
		return "", err
	}

	restore()
	return final, nil
}

// wrapInPlace rewrites path with the obfuscated form of raw.
func (q *Queue) wrapInPlace(path string, raw []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, q.fileMode)
	if err != nil {
		return gerrors.NewIOError("open artifact", path, err)
	}
	if _, err := f.Write(obfuscate.Wrap(raw)); err != nil {
		_ = f.Close()
		return gerrors.NewIOError("write artifact", path, err)
	}
	if err := f.Close(); err != nil {
		return gerrors.NewIOError("close artifact", path, err)
	}
	if err := os.Chmod(path, q.fileMode); err != nil {
		return gerrors.NewIOError("chmod artifact", path, err)
	}
	if q.hide {
		if err := hide(path); err != nil {
			q.logger.Debug("hide artifact failed", "path", path, "error", err)
		}
	}
	return nil
}

// ensureDir assigns and creates the sequence directory. The caller holds s.mu.
func (q *Queue) ensureDir(s *sequence) (string, bool, error) {
	created := false
	if s.dirName == "" {
		s.dirName = dirName(s.view)
		created = true
	}
	dir := filepath.Join(q.root, s.dirName)

	if err := os.MkdirAll(dir, q.dirMode); err != nil {
		return "", created, gerrors.NewIOError("create directory", dir, err)
	}
	// MkdirAll is subject to umask
	if err := os.Chmod(dir, q.dirMode); err != nil {
		return "", created, gerrors.NewIOError("chmod directory", dir, err)
	}
	if q.hide {
		if err := hide(dir); err != nil {
			q.logger.Debug("hide directory failed", "path", dir, "error", err)
		}
	}
	return dir, created, nil
}

// EnsureDirs creates both sequence directories and returns their paths.
func (q *Queue) EnsureDirs() (map[View]string, error) {
	dirs := make(map[View]string, 2)
	for _, v := range Views() {
		err := q.withSequence(v, func(s *sequence) (bool, error) {
			dir, created, err := q.ensureDir(s)
			dirs[v] = dir
			return created, err
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}

// Delete erases path and removes it from whichever sequence holds it.
// Deleting a path that is not queued is not an error, but only paths inside
// the storage root's sequence directories are ever erased. found reports
// whether the path was queued; the returned error is an erase failure, in
// which case the entry has still been removed.
func (q *Queue) Delete(path string) (entry Entry, found bool, err error) {
	path, err = q.normalize(path)
	if err != nil {
		return Entry{}, false, err
	}

	for _, v := range Views() {
		var eraseErr error
		werr := q.withSequence(v, func(s *sequence) (bool, error) {
			seq, ok := s.ring.index[path]
			if !ok {
				return false, nil
			}
			found = true
			entry = Entry{Seq: seq, Path: path, View: v}
			eraseErr = q.eraser.Erase(path)
			s.ring.remove(path)
			return true, nil
		})
		if werr != nil {
			return Entry{}, false, werr
		}
		if found {
			if eraseErr != nil {
				q.logger.WithView(string(v)).Warn("erase failed", "path", path, "error", eraseErr)
			} else {
				q.logger.WithView(string(v)).Debug("deleted", "path", path)
			}
			return entry, true, eraseErr
		}
	}

	if !q.owns(path) {
		return Entry{}, false, gerrors.NewValidationError("path is not managed by this queue").
			WithField("path").
			WithValue(path)
	}
	return Entry{}, false, q.eraser.Erase(path)
}

// Forget drops path from its sequence without touching the file. It is
// used when the file has already disappeared.
func (q *Queue) Forget(path string) (Entry, bool, error) {
	path, err := q.normalize(path)
	if err != nil {
		return Entry{}, false, err
	}
	for _, v := range Views() {
		var entry Entry
		var found bool
		werr := q.withSequence(v, func(s *sequence) (bool, error) {
			seq, ok := s.ring.index[path]
			if !ok {
				return false, nil
			}
			entry, found = Entry{Seq: seq, Path: path, View: v}, true
			s.ring.remove(path)
			return true, nil
		})
		if werr != nil || found {
			return entry, found, werr
		}
	}
	return Entry{}, false, nil
}

// Lookup returns the entry for path if it is queued.
func (q *Queue) Lookup(path string) (Entry, bool, error) {
	path, err := q.normalize(path)
	if err != nil {
		return Entry{}, false, err
	}
	for _, v := range Views() {
		var entry Entry
		var found bool
		werr := q.withSequence(v, func(s *sequence) (bool, error) {
			if seq, ok := s.ring.index[path]; ok {
				entry, found = Entry{Seq: seq, Path: path, View: v}, true
			}
			return false, nil
		})
		if werr != nil || found {
			return entry, found, werr
		}
	}
	return Entry{}, false, nil
}

// Clear erases and removes every entry in view's sequence.
func (q *Queue) Clear(view View) ([]Eviction, error) {
	var evicted []Eviction
	err := q.withSequence(view, func(s *sequence) (bool, error) {
		if s.ring.len() == 0 {
			return false, nil
		}
		s.ring.each(func(seq uint64, path string) {
			ev := Eviction{Entry: Entry{Seq: seq, Path: path, View: view}}
			if ev.Err = q.eraser.Erase(path); ev.Err != nil {
				q.logger.WithView(string(view)).Warn("erase failed during clear", "path", path, "error", ev.Err)
			}
			evicted = append(evicted, ev)
		})
		s.ring.reset()
		return true, nil
	})
	return evicted, err
}

// Entries returns view's entries, oldest first.
func (q *Queue) Entries(view View) ([]Entry, error) {
	var out []Entry
	err := q.withSequence(view, func(s *sequence) (bool, error) {
		out = make([]Entry, 0, s.ring.len())
		s.ring.each(func(seq uint64, path string) {
			out = append(out, Entry{Seq: seq, Path: path, View: view})
		})
		return false, nil
	})
	return out, err
}

// List returns view's artifact paths, oldest first.
func (q *Queue) List(view View) ([]string, error) {
	entries, err := q.Entries(view)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

// Len returns the number of entries in view's sequence.
func (q *Queue) Len(view View) (int, error) {
	n := 0
	err := q.withSequence(view, func(s *sequence) (bool, error) {
		n = s.ring.len()
		return false, nil
	})
	return n, err
}

// View returns the active view.
func (q *Queue) View() View {
	q.viewMu.Lock()
	defer q.viewMu.Unlock()

	if q.store != nil {
		_ = q.store.locked(q.dirMode, func(m *manifest) (bool, error) {
			if m.View.Valid() {
				q.view = m.View
			}
			return false, nil
		})
	}
	return q.view
}

// SetView changes the active view.
func (q *Queue) SetView(view View) error {
	if !view.Valid() {
		return unknownView(view)
	}
	q.viewMu.Lock()
	defer q.viewMu.Unlock()

	q.view = view
	if q.store == nil {
		return nil
	}
	return q.store.locked(q.dirMode, func(m *manifest) (bool, error) {
		m.View = view
		return true, nil
	})
}

// withSequence runs fn with view's sequence locked. With persistence the
// sequence is first refreshed from the manifest, and written back if the
// refresh or fn changed it.
func (q *Queue) withSequence(view View, fn func(s *sequence) (bool, error)) error {
	s, ok := q.seqs[view]
	if !ok {
		return unknownView(view)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.store == nil {
		_, err := fn(s)
		return err
	}
	return q.store.locked(q.dirMode, func(m *manifest) (bool, error) {
		refreshed := q.refresh(s, m)
		changed, err := fn(s)
		if refreshed || changed {
			q.persist(s, m)
			return true, err
		}
		return false, err
	})
}

// refresh replaces s with the manifest's copy, dropping entries whose files
// are gone. It reports whether the manifest needs rewriting.
func (q *Queue) refresh(s *sequence, m *manifest) bool {
	q.bumpNext(m.Next)

	ps, ok := m.Sequences[s.view]
	if !ok {
		return s.dirName != ""
	}

	s.dirName = ps.Dir
	s.ring.reset()
	dir := filepath.Join(q.root, ps.Dir)

	entries := slices.Clone(ps.Entries)
	slices.SortFunc(entries, func(a, b persistedEntry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	dropped := false
	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		if _, err := os.Lstat(path); err != nil {
			dropped = true
			continue
		}
		s.ring.push(e.Seq, path)
		q.bumpNext(e.Seq)
	}
	if dropped {
		q.logger.WithView(string(s.view)).Debug("dropped missing entries from manifest")
	}
	return dropped
}

func (q *Queue) persist(s *sequence, m *manifest) {
	ps := &persistedSequence{Dir: s.dirName, Entries: make([]persistedEntry, 0, s.ring.len())}
	s.ring.each(func(seq uint64, path string) {
		ps.Entries = append(ps.Entries, persistedEntry{Seq: seq, Name: filepath.Base(path)})
	})
	m.Sequences[s.view] = ps
	if n := q.next.Load(); n > m.Next {
		m.Next = n
	}
}

// bumpNext raises the sequence counter to at least n.
func (q *Queue) bumpNext(n uint64) {
	for {
		cur := q.next.Load()
		if cur >= n || q.next.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (q *Queue) normalize(path string) (string, error) {
	if path == "" {
		return "", gerrors.NewValidationError("path is required").WithField("path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", gerrors.NewIOError("resolve path", path, err)
	}
	return abs, nil
}

// owns reports whether path sits directly inside a sequence directory
// under the root.
func (q *Queue) owns(path string) bool {
	rel, err := filepath.Rel(q.root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return false
	}
	for _, v := range Views() {
		if strings.HasPrefix(parts[0], v.dirPrefix()+"_") {
			return true
		}
	}
	return false
}

// String is used in log output.
func (e Entry) String() string {
	return fmt.Sprintf("%s#%d:%s", e.View, e.Seq, filepath.Base(e.Path))
}
