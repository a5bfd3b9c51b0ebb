package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

type change struct {
	kind string
	path string
}

// recordingHandler forwards every callback on a channel.
type recordingHandler struct {
	ch chan change
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{ch: make(chan change, 64)}
}

func (h *recordingHandler) Removed(path string) { h.ch <- change{"removed", path} }
func (h *recordingHandler) Changed(path string) { h.ch <- change{"changed", path} }

func (h *recordingHandler) wait(t *testing.T, want change) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-h.ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func (h *recordingHandler) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-h.ch:
		t.Fatalf("unexpected callback %+v", got)
	case <-time.After(d):
	}
}

func startWatcher(t *testing.T, dirs ...string) (*Watcher, *recordingHandler) {
	t.Helper()
	h := newRecordingHandler()
	w, err := New(h, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.SetDebounce(10 * time.Millisecond)
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			t.Fatalf("Add(%s) error = %v", d, err)
		}
	}
	w.Start()
	t.Cleanup(w.Stop)
	return w, h
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_NewRequiresHandler(t *testing.T) {
	_, err := New(nil, nil)
	if !gerrors.Is(err, gerrors.ErrInvalidInput) {
		t.Errorf("New(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(newRecordingHandler(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := New(newRecordingHandler(), nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Stop()
}

func TestWatcher_AddNonExistent(t *testing.T) {
	w, err := New(newRecordingHandler(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	err = w.Add(filepath.Join(t.TempDir(), "missing"))
	var ioErr *gerrors.IOError
	if !gerrors.As(err, &ioErr) {
		t.Fatalf("Add(missing) error = %v, want IOError", err)
	}
}

func TestWatcher_Dirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	w, _ := startWatcher(t, b, a, a)

	got := w.Dirs()
	if len(got) != 2 {
		t.Fatalf("Dirs() = %v, want two entries", got)
	}
	w.Remove(a)
	if got := w.Dirs(); len(got) != 1 || got[0] != b {
		t.Errorf("Dirs() after Remove = %v, want [%s]", got, b)
	}
}

func TestWatcher_RemoveReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sys_a.png")
	writeFile(t, path, "x")

	_, h := startWatcher(t, dir)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	h.wait(t, change{"removed", path})
}

func TestWatcher_RenameReported(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	path := filepath.Join(dir, ".sys_a.png")
	writeFile(t, path, "x")

	_, h := startWatcher(t, dir)

	if err := os.Rename(path, filepath.Join(other, "moved.png")); err != nil {
		t.Fatal(err)
	}
	h.wait(t, change{"removed", path})
}

func TestWatcher_WriteReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sys_a.png")
	writeFile(t, path, "x")

	_, h := startWatcher(t, dir)

	writeFile(t, path, "rewritten")
	h.wait(t, change{"changed", path})
}

func TestWatcher_UnwatchedDirIgnored(t *testing.T) {
	watched := t.TempDir()
	other := t.TempDir()
	path := filepath.Join(other, "a.png")
	writeFile(t, path, "x")

	_, h := startWatcher(t, watched)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	h.none(t, 200*time.Millisecond)
}

func TestWatcher_CreateAloneIgnored(t *testing.T) {
	dir := t.TempDir()
	_, h := startWatcher(t, dir)

	f, err := os.Create(filepath.Join(dir, "empty.png"))
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	h.none(t, 200*time.Millisecond)
}

func TestWatcher_HandlerCallsSerialized(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 10 {
		p := filepath.Join(dir, string(rune('a'+i))+".png")
		writeFile(t, p, "x")
		paths = append(paths, p)
	}

	h := &serialHandler{}
	w, err := New(h, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(10 * time.Millisecond)
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}
	w.Start()
	defer w.Stop()

	for _, p := range paths {
		_ = os.Remove(p)
	}

	deadline := time.Now().Add(3 * time.Second)
	for h.count() < len(paths) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.count(); got != len(paths) {
		t.Fatalf("handler saw %d removals, want %d", got, len(paths))
	}
	if h.overlapped {
		t.Error("handler calls overlapped")
	}
}

type serialHandler struct {
	mu         sync.Mutex
	active     bool
	overlapped bool
	n          int
}

func (h *serialHandler) Removed(string) {
	h.mu.Lock()
	if h.active {
		h.overlapped = true
	}
	h.active = true
	h.n++
	h.mu.Unlock()

	time.Sleep(time.Millisecond)

	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

func (h *serialHandler) Changed(string) {}

func (h *serialHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}
