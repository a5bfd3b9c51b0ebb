package derive

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/logging"
	"github.com/Iron-Ham/glimpse/internal/obfuscate"
)

// Default capacities per kind.
const (
	DefaultFullCapacity      = 10
	DefaultThumbnailCapacity = 20
)

// Observer receives cache activity. Implementations must be safe for
// concurrent use and should not block.
type Observer interface {
	Hit(kind Kind)
	Miss(kind Kind)
	Fallback(kind Kind, path string, err error)
	Evicted(kind Kind, path string)
	Size(kind Kind, n int)
}

type nopObserver struct{}

func (nopObserver) Hit(Kind)                     {}
func (nopObserver) Miss(Kind)                    {}
func (nopObserver) Fallback(Kind, string, error) {}
func (nopObserver) Evicted(Kind, string)         {}
func (nopObserver) Size(Kind, int)               {}

// Config configures a Cache.
type Config struct {
	Policy            Policy
	FullCapacity      int
	ThumbnailCapacity int
	// Dedupe collapses concurrent misses on one key into a single transform.
	Dedupe   bool
	Logger   *logging.Logger
	Observer Observer
}

// key identifies one version of a source file.
type key struct {
	path  string
	mtime int64
}

// store is one kind's bounded mapping with insertion-order eviction.
type store struct {
	mu       sync.Mutex
	capacity int
	entries  map[key]Derivative
	order    []key
}

func newStore(capacity int) *store {
	return &store{
		capacity: capacity,
		entries:  make(map[key]Derivative, capacity),
	}
}

func (s *store) get(k key) (Derivative, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.entries[k]
	return d, ok
}

// put inserts d and returns the keys evicted to stay within capacity.
func (s *store) put(k key, d Derivative) (evicted []key, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[k]; ok {
		// A concurrent miss already stored this key; keep its position.
		s.entries[k] = d
		return nil, len(s.entries)
	}
	s.entries[k] = d
	s.order = append(s.order, k)
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted, len(s.entries)
}

// removeIf drops every key matching fn, preserving the order of the rest.
func (s *store) removeIf(fn func(key) bool) (removed, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, k := range s.order {
		if fn(k) {
			delete(s.entries, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	clear(s.order[len(kept):])
	s.order = kept
	return removed, len(s.entries)
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cache serves derivatives of artifact files. It is safe for concurrent use;
// lookups on different keys run in parallel.
type Cache struct {
	policy   Policy
	stores   map[Kind]*store
	group    *singleflight.Group
	logger   *logging.Logger
	observer Observer
}

// New creates a Cache. Zero capacities take the defaults.
func New(cfg Config) *Cache {
	if cfg.FullCapacity <= 0 {
		cfg.FullCapacity = DefaultFullCapacity
	}
	if cfg.ThumbnailCapacity <= 0 {
		cfg.ThumbnailCapacity = DefaultThumbnailCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	c := &Cache{
		policy: cfg.Policy.withDefaults(),
		stores: map[Kind]*store{
			Full:      newStore(cfg.FullCapacity),
			Thumbnail: newStore(cfg.ThumbnailCapacity),
		},
		logger:   cfg.Logger.WithComponent("derive"),
		observer: cfg.Observer,
	}
	if cfg.Dedupe {
		c.group = &singleflight.Group{}
	}
	return c
}

// Policy returns the transform constants in effect.
func (c *Cache) Policy() Policy {
	return c.policy
}

// Get returns the kind derivative of the artifact at path.
//
// A cached entry is returned when the file's modification time matches the
// one it was computed from. On a miss the file is read, unwrapped and
// transformed; if the transform fails the unwrapped bytes are returned with
// Fallback set and nothing is cached. Get fails only when kind is unknown
// or the file cannot be read, with a *errors.NotFoundError or
// *errors.IOError.
func (c *Cache) Get(kind Kind, path string) (Derivative, error) {
	s, ok := c.stores[kind]
	if !ok {
		return Derivative{}, unknownKind(kind)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Derivative{}, readError("stat artifact", path, err)
	}
	k := key{path: path, mtime: info.ModTime().UnixNano()}

	if d, ok := s.get(k); ok {
		c.observer.Hit(kind)
		c.logger.Debug("cache hit", "kind", string(kind), "path", path)
		return d, nil
	}
	c.observer.Miss(kind)
	c.logger.Debug("cache miss", "kind", string(kind), "path", path)

	if c.group == nil {
		return c.compute(kind, s, k)
	}
	flight := string(kind) + "\x00" + strconv.FormatInt(k.mtime, 10) + "\x00" + path
	v, err, _ := c.group.Do(flight, func() (any, error) {
		return c.compute(kind, s, k)
	})
	if err != nil {
		return Derivative{}, err
	}
	return v.(Derivative), nil
}

// compute reads and transforms the source for k, caching successes.
func (c *Cache) compute(kind Kind, s *store, k key) (Derivative, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return Derivative{}, readError("read artifact", k.path, err)
	}
	raw := obfuscate.Unwrap(data)

	out, err := c.policy.Transform(kind, raw)
	if err != nil {
		c.observer.Fallback(kind, k.path, err)
		c.logger.Warn("derivative fallback", "kind", string(kind), "path", k.path, "error", err)
		return Derivative{Data: raw, MIME: sniffRaw(raw), Fallback: true}, nil
	}
	d := Derivative{Data: out, MIME: MIMEJPEG}

	// The file may have been rewritten while it was being read; only cache
	// when the version is unchanged.
	if info, err := os.Stat(k.path); err != nil || info.ModTime().UnixNano() != k.mtime {
		return d, nil
	}

	evicted, size := s.put(k, d)
	for _, e := range evicted {
		c.observer.Evicted(kind, e.path)
	}
	c.observer.Size(kind, size)
	return d, nil
}

// Invalidate removes every entry, of both kinds, whose source path starts
// with prefix. It returns the number of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	total := 0
	for _, kind := range Kinds() {
		removed, size := c.stores[kind].removeIf(func(k key) bool {
			return strings.HasPrefix(k.path, prefix)
		})
		if removed > 0 {
			c.observer.Size(kind, size)
		}
		total += removed
	}
	if total > 0 {
		c.logger.Debug("invalidated derivatives", "prefix", prefix, "count", total)
	}
	return total
}

// Purge empties both caches.
func (c *Cache) Purge() {
	for _, kind := range Kinds() {
		c.stores[kind].removeIf(func(key) bool { return true })
		c.observer.Size(kind, 0)
	}
}

// Len returns the number of cached entries for kind.
func (c *Cache) Len(kind Kind) int {
	s, ok := c.stores[kind]
	if !ok {
		return 0
	}
	return s.len()
}

// Capacity returns the configured bound for kind.
func (c *Cache) Capacity(kind Kind) int {
	s, ok := c.stores[kind]
	if !ok {
		return 0
	}
	return s.capacity
}

func readError(op, path string, err error) error {
	if gerrors.Is(err, fs.ErrNotExist) {
		return gerrors.NewNotFoundError("artifact", path).WithCause(err)
	}
	return gerrors.NewIOError(op, path, fmt.Errorf("%w: %w", gerrors.ErrUnreadable, err))
}
