package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Iron-Ham/glimpse/internal/capture"
	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
	"github.com/Iron-Ham/glimpse/internal/obfuscate"
)

// countingSource writes "capture-N" to dest for the Nth call.
type countingSource struct {
	n atomic.Int64
}

func (s *countingSource) Capture(_ context.Context, dest string) error {
	n := s.n.Add(1)
	return os.WriteFile(dest, fmt.Appendf(nil, "capture-%d", n), 0o600)
}

type stubEraser struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (e *stubEraser) Erase(path string) error {
	e.mu.Lock()
	e.calls = append(e.calls, path)
	e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newTestQueue(t *testing.T, mutate ...func(*Config)) *Queue {
	t.Helper()
	cfg := Config{
		Root:   t.TempDir(),
		Source: &countingSource{},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	q, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return q
}

func mustCapture(t *testing.T, q *Queue, view View) Entry {
	t.Helper()
	entry, _, err := q.Capture(context.Background(), view, Hooks{})
	if err != nil {
		t.Fatalf("Capture(%s) error: %v", view, err)
	}
	return entry
}

func mustList(t *testing.T, q *Queue, view View) []string {
	t.Helper()
	paths, err := q.List(view)
	if err != nil {
		t.Fatalf("List(%s) error: %v", view, err)
	}
	return paths
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, gerrors.ErrInvalidInput) {
		t.Errorf("New() error = %v, want ErrInvalidInput", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	q := newTestQueue(t)
	if q.MaxLen() != DefaultMaxLen {
		t.Errorf("MaxLen() = %d, want %d", q.MaxLen(), DefaultMaxLen)
	}
	if !filepath.IsAbs(q.Root()) {
		t.Errorf("Root() = %q, want absolute", q.Root())
	}
	if q.View() != Primary {
		t.Errorf("View() = %q, want primary", q.View())
	}
	entries, err := os.ReadDir(q.Root())
	if err != nil || len(entries) != 0 {
		t.Errorf("root should be untouched before first capture, got %v (%v)", entries, err)
	}
}

func TestCapture_StoresWrappedArtifact(t *testing.T) {
	q := newTestQueue(t)
	entry := mustCapture(t, q, Primary)

	if entry.View != Primary || entry.Seq == 0 {
		t.Errorf("entry = %+v", entry)
	}
	if !artifactNamePattern.MatchString(filepath.Base(entry.Path)) {
		t.Errorf("artifact name %q does not follow naming policy", filepath.Base(entry.Path))
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, obfuscate.Marker()) {
		t.Errorf("artifact does not start with marker: %x", data[:min(len(data), 8)])
	}
	if got := string(obfuscate.Unwrap(data)); got != "capture-1" {
		t.Errorf("unwrapped = %q, want capture-1", got)
	}

	dir := filepath.Dir(entry.Path)
	if !strings.HasPrefix(filepath.Base(dir), ".sys_") {
		t.Errorf("primary dir = %q, want .sys_ prefix", filepath.Base(dir))
	}
	if filepath.Dir(dir) != q.Root() {
		t.Errorf("sequence dir %q not directly under root %q", dir, q.Root())
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(entry.Path)
		if info.Mode().Perm() != 0o600 {
			t.Errorf("artifact mode = %o, want 600", info.Mode().Perm())
		}
		dinfo, _ := os.Stat(dir)
		if dinfo.Mode().Perm() != 0o700 {
			t.Errorf("dir mode = %o, want 700", dinfo.Mode().Perm())
		}
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		t.Errorf("expected exactly one file in sequence dir, got %d", len(files))
	}
}

func TestCapture_OverflowEviction(t *testing.T) {
	q := newTestQueue(t)

	var captured []Entry
	for range 5 {
		captured = append(captured, mustCapture(t, q, Primary))
	}

	sixth, evicted, err := q.Capture(context.Background(), Primary, Hooks{})
	if err != nil {
		t.Fatalf("Capture() error: %v", err)
	}

	paths := mustList(t, q, Primary)
	if len(paths) != 5 {
		t.Fatalf("len = %d, want 5", len(paths))
	}
	if paths[0] != captured[1].Path {
		t.Errorf("first element = %q, want second capture %q", paths[0], captured[1].Path)
	}
	if paths[4] != sixth.Path {
		t.Errorf("last element = %q, want newest capture", paths[4])
	}
	if len(evicted) != 1 || evicted[0].Path != captured[0].Path || evicted[0].Err != nil {
		t.Errorf("evicted = %+v, want first capture", evicted)
	}
	if exists(captured[0].Path) {
		t.Error("evicted artifact still on disk")
	}
}

func TestCapture_BoundedLength(t *testing.T) {
	q := newTestQueue(t, func(c *Config) { c.MaxLen = 3 })

	for i := range 10 {
		mustCapture(t, q, Secondary)
		n, err := q.Len(Secondary)
		if err != nil {
			t.Fatal(err)
		}
		if want := min(i+1, 3); n != want {
			t.Fatalf("after capture %d len = %d, want %d", i+1, n, want)
		}
	}

	files, _ := os.ReadDir(filepath.Dir(mustList(t, q, Secondary)[0]))
	if len(files) != 3 {
		t.Errorf("sequence dir holds %d files, want 3", len(files))
	}
}

func TestCapture_ViewsAreIndependent(t *testing.T) {
	q := newTestQueue(t, func(c *Config) { c.MaxLen = 2 })

	p := mustCapture(t, q, Primary)
	for range 3 {
		mustCapture(t, q, Secondary)
	}

	if got := mustList(t, q, Primary); len(got) != 1 || got[0] != p.Path {
		t.Errorf("primary = %v, want [%s]", got, p.Path)
	}
	sec := mustList(t, q, Secondary)
	if len(sec) != 2 {
		t.Errorf("secondary len = %d, want 2", len(sec))
	}
	if filepath.Dir(sec[0]) == filepath.Dir(p.Path) {
		t.Error("views should use separate directories")
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(sec[0])), ".tmp_") {
		t.Errorf("secondary dir = %q, want .tmp_ prefix", filepath.Dir(sec[0]))
	}
}

func TestCapture_Hooks(t *testing.T) {
	tests := []struct {
		name    string
		source  capture.Source
		wantErr bool
	}{
		{
			name:   "success",
			source: &countingSource{},
		},
		{
			name: "source failure",
			source: capture.Func(func(context.Context, string) error {
				return errors.New("boom")
			}),
			wantErr: true,
		},
		{
			name:    "empty output",
			source:  capture.Func(func(_ context.Context, dest string) error { return os.WriteFile(dest, nil, 0o600) }),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueue(t, func(c *Config) { c.Source = tt.source })

			var before, after int
			var order []string
			hooks := Hooks{
				Before: func() { before++; order = append(order, "before") },
				After:  func() { after++; order = append(order, "after") },
			}

			_, _, err := q.Capture(context.Background(), Primary, hooks)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Capture() error = %v, wantErr %v", err, tt.wantErr)
			}
			if before != 1 || after != 1 {
				t.Errorf("before=%d after=%d, want 1 each", before, after)
			}
			if len(order) == 2 && order[0] != "before" {
				t.Errorf("hook order = %v", order)
			}
			if tt.wantErr {
				if !errors.Is(err, gerrors.ErrCaptureFailed) {
					t.Errorf("error %v does not match ErrCaptureFailed", err)
				}
				if n, _ := q.Len(Primary); n != 0 {
					t.Errorf("failed capture left %d entries", n)
				}
				dirs, _ := os.ReadDir(q.Root())
				for _, d := range dirs {
					files, _ := os.ReadDir(filepath.Join(q.Root(), d.Name()))
					if len(files) != 0 {
						t.Errorf("failed capture left files in %s", d.Name())
					}
				}
			}
		})
	}
}

func TestCapture_PassesCaptureErrorThrough(t *testing.T) {
	want := gerrors.NewCaptureError("could not create image from display", gerrors.ErrPermissionDenied).
		WithRemediation("grant permission")
	q := newTestQueue(t, func(c *Config) {
		c.Source = capture.Func(func(context.Context, string) error { return want })
	})

	_, _, err := q.Capture(context.Background(), Primary, Hooks{})
	var got *gerrors.CaptureError
	if !errors.As(err, &got) || got != want {
		t.Fatalf("error = %v, want the source's CaptureError untouched", err)
	}
	if !errors.Is(err, gerrors.ErrPermissionDenied) {
		t.Error("expected ErrPermissionDenied in chain")
	}
}

func TestCapture_NoSource(t *testing.T) {
	q := newTestQueue(t, func(c *Config) { c.Source = nil })
	_, _, err := q.Capture(context.Background(), Primary, Hooks{})
	if !errors.Is(err, gerrors.ErrCaptureToolMissing) {
		t.Errorf("error = %v, want ErrCaptureToolMissing", err)
	}
}

func TestCapture_UnknownView(t *testing.T) {
	q := newTestQueue(t)
	_, _, err := q.Capture(context.Background(), View("tertiary"), Hooks{})
	if !errors.Is(err, gerrors.ErrUnknownView) {
		t.Errorf("error = %v, want ErrUnknownView", err)
	}
}

func TestCapture_Serialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var hookMu sync.Mutex
	var hookLog []string

	src := capture.Func(func(_ context.Context, dest string) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		return os.WriteFile(dest, []byte("img"), 0o600)
	})
	q := newTestQueue(t, func(c *Config) { c.Source = src })

	hooks := Hooks{
		Before: func() { hookMu.Lock(); hookLog = append(hookLog, "b"); hookMu.Unlock() },
		After:  func() { hookMu.Lock(); hookLog = append(hookLog, "a"); hookMu.Unlock() },
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := q.Capture(context.Background(), Primary, hooks); err != nil {
				t.Errorf("Capture() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent captures = %d, want 1", maxInFlight.Load())
	}
	for i := 0; i < len(hookLog); i += 2 {
		if hookLog[i] != "b" || hookLog[i+1] != "a" {
			t.Fatalf("hooks interleaved: %v", hookLog)
		}
	}
	if n, _ := q.Len(Primary); n != DefaultMaxLen {
		t.Errorf("len = %d, want %d", n, DefaultMaxLen)
	}
}

func TestDelete(t *testing.T) {
	q := newTestQueue(t)
	a := mustCapture(t, q, Primary)
	b := mustCapture(t, q, Primary)

	entry, found, err := q.Delete(a.Path)
	if err != nil || !found {
		t.Fatalf("Delete() = %v, %v", found, err)
	}
	if entry.Seq != a.Seq || entry.View != Primary {
		t.Errorf("deleted entry = %+v, want %+v", entry, a)
	}
	if exists(a.Path) {
		t.Error("deleted artifact still on disk")
	}
	if _, err := os.ReadFile(a.Path); !os.IsNotExist(err) {
		t.Errorf("reading deleted artifact: %v, want not-exist", err)
	}
	if got := mustList(t, q, Primary); len(got) != 1 || got[0] != b.Path {
		t.Errorf("list after delete = %v", got)
	}

	// Idempotent
	_, found, err = q.Delete(a.Path)
	if err != nil || found {
		t.Errorf("second Delete() = %v, %v; want false, nil", found, err)
	}
}

func TestDelete_OutsideRoot(t *testing.T) {
	q := newTestQueue(t)
	victim := filepath.Join(t.TempDir(), "keep.txt")
	if err := os.WriteFile(victim, []byte("keep"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, found, err := q.Delete(victim)
	if found || !errors.Is(err, gerrors.ErrInvalidInput) {
		t.Errorf("Delete() = %v, %v; want validation error", found, err)
	}
	if !exists(victim) {
		t.Error("file outside the queue was removed")
	}
}

func TestDelete_EraseFailureStillRemoves(t *testing.T) {
	eraser := &stubEraser{}
	q := newTestQueue(t, func(c *Config) { c.Eraser = eraser })
	a := mustCapture(t, q, Primary)

	eraser.err = gerrors.NewEraseError(a.Path, gerrors.StageDelete, errors.New("busy"))
	_, found, err := q.Delete(a.Path)
	if !found || !errors.Is(err, gerrors.ErrDeleteFailed) {
		t.Errorf("Delete() = %v, %v; want found with ErrDeleteFailed", found, err)
	}
	if n, _ := q.Len(Primary); n != 0 {
		t.Errorf("entry should be dropped despite erase failure, len = %d", n)
	}
}

func TestEviction_EraseFailureStillDrops(t *testing.T) {
	eraser := &stubEraser{}
	q := newTestQueue(t, func(c *Config) { c.Eraser = eraser; c.MaxLen = 2 })
	mustCapture(t, q, Primary)
	mustCapture(t, q, Primary)

	eraser.err = errors.New("erase broke")
	_, evicted, err := q.Capture(context.Background(), Primary, Hooks{})
	if err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	if len(evicted) != 1 || evicted[0].Err == nil {
		t.Errorf("evicted = %+v, want one failed eviction", evicted)
	}
	if n, _ := q.Len(Primary); n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
}

func TestClear(t *testing.T) {
	q := newTestQueue(t)
	var primary []Entry
	for range 3 {
		primary = append(primary, mustCapture(t, q, Primary))
	}
	sec := mustCapture(t, q, Secondary)

	evicted, err := q.Clear(Primary)
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if len(evicted) != 3 {
		t.Errorf("cleared %d entries, want 3", len(evicted))
	}
	for _, e := range primary {
		if exists(e.Path) {
			t.Errorf("%s still on disk after clear", e.Path)
		}
	}
	if n, _ := q.Len(Primary); n != 0 {
		t.Errorf("primary len = %d after clear", n)
	}
	if got := mustList(t, q, Secondary); len(got) != 1 || got[0] != sec.Path {
		t.Errorf("secondary affected by clear: %v", got)
	}

	evicted, err = q.Clear(Primary)
	if err != nil || len(evicted) != 0 {
		t.Errorf("clearing empty view = %v, %v", evicted, err)
	}
}

func TestForgetAndLookup(t *testing.T) {
	q := newTestQueue(t)
	a := mustCapture(t, q, Secondary)

	got, found, err := q.Lookup(a.Path)
	if err != nil || !found || got.View != Secondary {
		t.Fatalf("Lookup() = %+v, %v, %v", got, found, err)
	}

	if _, found, _ := q.Forget(a.Path); !found {
		t.Fatal("Forget() did not find entry")
	}
	if !exists(a.Path) {
		t.Error("Forget must not remove the file")
	}
	if _, found, _ := q.Lookup(a.Path); found {
		t.Error("entry still present after Forget")
	}
}

func TestSetView(t *testing.T) {
	q := newTestQueue(t)
	if err := q.SetView(Secondary); err != nil {
		t.Fatalf("SetView() error: %v", err)
	}
	if q.View() != Secondary {
		t.Errorf("View() = %q, want secondary", q.View())
	}
	if err := q.SetView("bogus"); !errors.Is(err, gerrors.ErrUnknownView) {
		t.Errorf("SetView(bogus) = %v, want ErrUnknownView", err)
	}
}

func TestEnsureDirs(t *testing.T) {
	q := newTestQueue(t)
	dirs, err := q.EnsureDirs()
	if err != nil {
		t.Fatalf("EnsureDirs() error: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("dirs = %v", dirs)
	}
	for v, d := range dirs {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s dir %q not created: %v", v, d, err)
		}
	}

	// Stable across calls
	again, _ := q.EnsureDirs()
	if again[Primary] != dirs[Primary] {
		t.Error("sequence directory changed between calls")
	}
}

func TestConcurrentCaptureAndDelete(t *testing.T) {
	q := newTestQueue(t)
	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				e, _, err := q.Capture(context.Background(), Primary, Hooks{})
				if err != nil {
					t.Errorf("Capture() error: %v", err)
					return
				}
				if _, _, err := q.Delete(e.Path); err != nil {
					t.Errorf("Delete() error: %v", err)
				}
			}
		}()
	}
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				if n, _ := q.Len(Primary); n > DefaultMaxLen {
					t.Errorf("len %d exceeds max", n)
				}
			}
		}()
	}
	wg.Wait()

	if n, _ := q.Len(Primary); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
}
