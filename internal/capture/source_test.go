package capture

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

func TestFunc(t *testing.T) {
	var got string
	src := Func(func(_ context.Context, dest string) error {
		got = dest
		return nil
	})

	if err := src.Capture(context.Background(), "/tmp/out.png"); err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	if got != "/tmp/out.png" {
		t.Errorf("dest = %q, want /tmp/out.png", got)
	}
}

func TestDefaultTools(t *testing.T) {
	tests := []struct {
		goos      string
		wantFirst string
		wantNone  bool
	}{
		{goos: "darwin", wantFirst: "screencapture"},
		{goos: "linux", wantFirst: "grim"},
		{goos: "windows", wantNone: true},
		{goos: "plan9", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			tools := DefaultTools(tt.goos)
			if tt.wantNone {
				if len(tools) != 0 {
					t.Errorf("expected no tools, got %v", tools)
				}
				return
			}
			if len(tools) == 0 || tools[0].Name != tt.wantFirst {
				t.Errorf("first tool = %v, want %s", tools, tt.wantFirst)
			}
		})
	}
}

func TestNewCommandSource(t *testing.T) {
	t.Run("explicit command", func(t *testing.T) {
		args := []string{"-a"}
		s := NewCommandSource("shot", args, 0)
		args[0] = "mutated"

		tools := s.Tools()
		if len(tools) != 1 || tools[0].Name != "shot" || tools[0].Args[0] != "-a" {
			t.Errorf("Tools() = %v", tools)
		}
		if s.timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want %v", s.timeout, DefaultTimeout)
		}
	})

	t.Run("platform defaults", func(t *testing.T) {
		s := NewCommandSource("", nil, time.Second)
		if len(s.Tools()) != len(DefaultTools(runtime.GOOS)) {
			t.Errorf("Tools() = %v, want platform defaults", s.Tools())
		}
	})
}

func TestCommandSource_NoTool(t *testing.T) {
	s := NewCommandSource("definitely-not-a-real-screenshot-tool", nil, time.Second)

	err := s.Capture(context.Background(), filepath.Join(t.TempDir(), "out.png"))
	if err == nil {
		t.Fatal("expected error for missing tool")
	}
	if !errors.Is(err, gerrors.ErrCaptureToolMissing) {
		t.Errorf("expected ErrCaptureToolMissing, got %v", err)
	}
	if !errors.Is(err, gerrors.ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
	var ce *gerrors.CaptureError
	if !errors.As(err, &ce) || ce.Remediation != ToolRemediation {
		t.Errorf("expected tool remediation, got %v", err)
	}
}

func TestCommandSource_EmptyToolList(t *testing.T) {
	s := &CommandSource{timeout: time.Second, lookPath: exec.LookPath}
	err := s.Capture(context.Background(), "/dev/null")
	if !errors.Is(err, gerrors.ErrCaptureToolMissing) {
		t.Errorf("expected ErrCaptureToolMissing, got %v", err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "shot.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandSource_Success(t *testing.T) {
	script := writeScript(t, `printf 'png' > "$1"`)
	s := NewCommandSource(script, nil, time.Second)

	dest := filepath.Join(t.TempDir(), "out.png")
	if err := s.Capture(context.Background(), dest); err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "png" {
		t.Errorf("dest content = %q, err = %v", data, err)
	}
}

func TestCommandSource_PermissionFailure(t *testing.T) {
	script := writeScript(t, `echo "could not create image from display" >&2; exit 1`)
	s := NewCommandSource(script, nil, time.Second)

	err := s.Capture(context.Background(), filepath.Join(t.TempDir(), "out.png"))
	if !errors.Is(err, gerrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if !gerrors.IsUserFacing(err) {
		t.Error("capture errors should be user-facing")
	}
	if msg := gerrors.UserMessage(err); !strings.Contains(msg, "Screen Recording") {
		t.Errorf("UserMessage() = %q, want remediation", msg)
	}
}

func TestCommandSource_Timeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)
	s := NewCommandSource(script, nil, 50*time.Millisecond)

	err := s.Capture(context.Background(), filepath.Join(t.TempDir(), "out.png"))
	if !errors.Is(err, gerrors.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %q, want timeout", err)
	}
}

func TestClassify(t *testing.T) {
	cause := errors.New("exit status 1")

	tests := []struct {
		name        string
		output      string
		sentinel    error
		remediation string
	}{
		{"mac permission", "screencapture: could not create image from display", gerrors.ErrPermissionDenied, PermissionRemediation},
		{"x11 display", "import: unable to open X server `'", gerrors.ErrNoDisplay, DisplayRemediation},
		{"wayland", "failed to connect to Wayland display", gerrors.ErrNoDisplay, DisplayRemediation},
		{"generic", "segmentation fault", nil, ""},
		{"empty output", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("tool", tt.output, cause)
			if err.Tool != "tool" {
				t.Errorf("Tool = %q, want tool", err.Tool)
			}
			if err.Remediation != tt.remediation {
				t.Errorf("Remediation = %q, want %q", err.Remediation, tt.remediation)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(%v)", tt.sentinel)
			}
			if !errors.Is(err, cause) {
				t.Error("cause should remain in chain")
			}
		})
	}
}
