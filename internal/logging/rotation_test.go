package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestNewRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.log")

	rw, err := NewRotatingWriter(path, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if rw.FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", rw.FilePath(), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("log file mode = %o, want 600", perm)
	}
}

func TestRotatingWriterAppendsToExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rw, err := NewRotatingWriter(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	if rw.CurrentSize() != int64(len("existing\n")) {
		t.Errorf("CurrentSize() = %d, want %d", rw.CurrentSize(), len("existing\n"))
	}
	if _, err := rw.Write([]byte("more\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	_ = rw.Close()

	content, _ := os.ReadFile(path)
	if string(content) != "existing\nmore\n" {
		t.Errorf("content = %q", content)
	}
}

func TestRotatingWriterRotation(t *testing.T) {
	tests := []struct {
		name       string
		maxBackups int
		writes     int
		wantFiles  []string
		noFiles    []string
	}{
		{
			name:       "single rotation",
			maxBackups: 3,
			writes:     2,
			wantFiles:  []string{"test.log", "test.log.1"},
			noFiles:    []string{"test.log.2"},
		},
		{
			name:       "backups capped",
			maxBackups: 2,
			writes:     5,
			wantFiles:  []string{"test.log", "test.log.1", "test.log.2"},
			noFiles:    []string{"test.log.3"},
		},
		{
			name:       "no backups kept",
			maxBackups: 0,
			writes:     3,
			wantFiles:  []string{"test.log"},
			noFiles:    []string{"test.log.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "test.log")

			rw, err := NewRotatingWriter(path, RotationConfig{MaxBackups: tt.maxBackups})
			if err != nil {
				t.Fatalf("NewRotatingWriter failed: %v", err)
			}
			rw.maxSizeB = 50

			line := []byte(strings.Repeat("x", 40) + "\n")
			for range tt.writes {
				if _, err := rw.Write(line); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}
			_ = rw.Close()

			for _, name := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
					t.Errorf("expected %s to exist: %v", name, err)
				}
			}
			for _, name := range tt.noFiles {
				if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
					t.Errorf("expected %s not to exist", name)
				}
			}
		})
	}
}

func TestRotatingWriterCompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(path, RotationConfig{MaxBackups: 3, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxSizeB = 50

	first := strings.Repeat("a", 40) + "\n"
	_, _ = rw.Write([]byte(first))
	_, _ = rw.Write([]byte(strings.Repeat("b", 40) + "\n"))
	// Close waits for background compression.
	_ = rw.Close()

	gzPath := path + ".1.gz"
	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader failed: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read compressed data: %v", err)
	}
	if string(data) != first {
		t.Errorf("decompressed = %q, want %q", data, first)
	}
	if _, err := os.Stat(path + ".1"); err == nil {
		t.Error("uncompressed backup should be removed after compression")
	}
}

func TestRotatingWriterConcurrency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(path, RotationConfig{MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxSizeB = 1024

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = rw.Write([]byte("concurrent line\n"))
			}
		}()
	}
	wg.Wait()

	if rw.CurrentSize() > 1024 {
		t.Errorf("CurrentSize() = %d exceeds limit", rw.CurrentSize())
	}
	_ = rw.Close()
}

func TestRotatingWriterClose(t *testing.T) {
	rw, err := NewRotatingWriter(filepath.Join(t.TempDir(), "test.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("expected Write after Close to fail")
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync after Close should be a no-op, got %v", err)
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	t.Run("writes through rotating writer", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLoggerWithRotation(dir, LevelDebug, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		if _, ok := logger.closer.(*RotatingWriter); !ok {
			t.Fatalf("closer = %T, want *RotatingWriter", logger.closer)
		}

		child := logger.WithComponent("queue")
		if child.closer != logger.closer {
			t.Error("child logger should share parent's writer")
		}

		logger.Info("test message", "key", "value")
		_ = logger.Close()

		entries := readEntries(t, filepath.Join(dir, LogFileName))
		if len(entries) != 1 || entries[0]["key"] != "value" {
			t.Errorf("unexpected entries: %v", entries)
		}
	})

	t.Run("requires directory", func(t *testing.T) {
		if _, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig()); err == nil {
			t.Error("expected error for empty directory")
		}
	})
}

func TestDefaultRotationConfig(t *testing.T) {
	config := DefaultRotationConfig()

	if config.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB=10, got %d", config.MaxSizeMB)
	}
	if config.MaxBackups != 3 {
		t.Errorf("expected MaxBackups=3, got %d", config.MaxBackups)
	}
	if config.Compress {
		t.Error("expected Compress=false")
	}
}
