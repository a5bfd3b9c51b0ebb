package queue

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/Iron-Ham/glimpse/internal/obfuscate"
)

func persistentPair(t *testing.T) (*Queue, *Queue) {
	t.Helper()
	root := t.TempDir()
	src := &countingSource{}
	open := func() *Queue {
		q, err := New(Config{Root: root, Persist: true, Source: src})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		return q
	}
	return open(), open()
}

func TestPersist_SharedAcrossInstances(t *testing.T) {
	q1, q2 := persistentPair(t)

	a := mustCapture(t, q1, Primary)
	b := mustCapture(t, q1, Primary)

	if got := mustList(t, q2, Primary); !slices.Equal(got, []string{a.Path, b.Path}) {
		t.Errorf("second instance sees %v, want [%s %s]", got, a.Path, b.Path)
	}

	c := mustCapture(t, q2, Primary)
	if filepath.Dir(c.Path) != filepath.Dir(a.Path) {
		t.Error("instances disagree on sequence directory")
	}
	if c.Seq <= b.Seq {
		t.Errorf("sequence numbers not monotonic across instances: %d after %d", c.Seq, b.Seq)
	}
	if got := mustList(t, q1, Primary); len(got) != 3 || got[2] != c.Path {
		t.Errorf("first instance sees %v", got)
	}
}

func TestPersist_OverflowAcrossInstances(t *testing.T) {
	q1, q2 := persistentPair(t)

	var first Entry
	for i := range 6 {
		q := q1
		if i%2 == 1 {
			q = q2
		}
		e := mustCapture(t, q, Secondary)
		if i == 0 {
			first = e
		}
	}

	paths := mustList(t, q1, Secondary)
	if len(paths) != 5 {
		t.Fatalf("len = %d, want 5", len(paths))
	}
	if slices.Contains(paths, first.Path) || exists(first.Path) {
		t.Error("oldest artifact not evicted")
	}
}

func TestPersist_ManifestIsWrapped(t *testing.T) {
	q1, _ := persistentPair(t)
	mustCapture(t, q1, Primary)

	data, err := os.ReadFile(filepath.Join(q1.Root(), manifestFileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !bytes.HasPrefix(data, obfuscate.Marker()) {
		t.Error("manifest not wrapped")
	}
	if !bytes.Contains(obfuscate.Unwrap(data), []byte(`"entries"`)) {
		t.Errorf("unwrapped manifest = %q", obfuscate.Unwrap(data))
	}
}

func TestPersist_DropsMissingFiles(t *testing.T) {
	q1, q2 := persistentPair(t)
	a := mustCapture(t, q1, Primary)
	b := mustCapture(t, q1, Primary)

	if err := os.Remove(a.Path); err != nil {
		t.Fatal(err)
	}

	if got := mustList(t, q2, Primary); !slices.Equal(got, []string{b.Path}) {
		t.Errorf("list = %v, want [%s]", got, b.Path)
	}
}

func TestPersist_CorruptManifest(t *testing.T) {
	q1, _ := persistentPair(t)
	if err := os.WriteFile(filepath.Join(q1.Root(), manifestFileName), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := mustList(t, q1, Primary); len(got) != 0 {
		t.Errorf("list = %v, want empty", got)
	}
	mustCapture(t, q1, Primary)
	if got := mustList(t, q1, Primary); len(got) != 1 {
		t.Errorf("list after recovery = %v", got)
	}
}

func TestPersist_View(t *testing.T) {
	q1, q2 := persistentPair(t)
	if err := q1.SetView(Secondary); err != nil {
		t.Fatalf("SetView() error: %v", err)
	}
	if q2.View() != Secondary {
		t.Errorf("second instance View() = %q, want secondary", q2.View())
	}
}

func TestPersist_ConcurrentInstances(t *testing.T) {
	q1, q2 := persistentPair(t)

	var wg sync.WaitGroup
	for _, q := range []*Queue{q1, q2} {
		for _, v := range Views() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 4 {
					if _, _, err := q.Capture(context.Background(), v, Hooks{}); err != nil {
						t.Errorf("Capture(%s) error: %v", v, err)
					}
				}
			}()
		}
	}
	wg.Wait()

	for _, v := range Views() {
		paths := mustList(t, q1, v)
		if len(paths) != DefaultMaxLen {
			t.Errorf("%s len = %d, want %d", v, len(paths), DefaultMaxLen)
		}
		files, _ := os.ReadDir(filepath.Dir(paths[0]))
		if len(files) != DefaultMaxLen {
			t.Errorf("%s dir holds %d files, want %d", v, len(files), DefaultMaxLen)
		}
	}
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	fl := newFileLock(path)

	if err := fl.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Errorf("second Unlock() error: %v", err)
	}
}
