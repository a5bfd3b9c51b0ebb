package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

// Source produces a single screen capture as a PNG file at dest.
type Source interface {
	Capture(ctx context.Context, dest string) error
}

// Func adapts an ordinary function to the Source interface.
type Func func(ctx context.Context, dest string) error

// Capture calls f(ctx, dest).
func (f Func) Capture(ctx context.Context, dest string) error {
	return f(ctx, dest)
}

// DefaultTimeout bounds one invocation of the screenshot tool.
const DefaultTimeout = 15 * time.Second

// Remediation hints attached to classified failures.
const (
	PermissionRemediation = "grant Screen Recording permission in System Settings > Privacy & Security > Screen Recording, then restart the application"
	DisplayRemediation    = "run inside a graphical session (set DISPLAY or WAYLAND_DISPLAY)"
	ToolRemediation       = "install a screenshot tool or set capture.command in the config file"
)

// Tool is one screenshot command. The destination path is appended after Args.
type Tool struct {
	Name string
	Args []string
}

// DefaultTools returns the candidate tools for goos in preference order.
func DefaultTools(goos string) []Tool {
	switch goos {
	case "darwin":
		return []Tool{{Name: "screencapture", Args: []string{"-x", "-t", "png"}}}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []Tool{
			{Name: "grim", Args: []string{"-t", "png"}},
			{Name: "import", Args: []string{"-window", "root"}},
			{Name: "gnome-screenshot", Args: []string{"-f"}},
		}
	default:
		return nil
	}
}

// CommandSource captures the screen by running an external tool.
type CommandSource struct {
	tools   []Tool
	timeout time.Duration
	// lookPath resolves a tool name; replaced in tests.
	lookPath func(string) (string, error)
}

// NewCommandSource returns a Source for the given command. An empty command
// selects the platform defaults.
func NewCommandSource(command string, args []string, timeout time.Duration) *CommandSource {
	var tools []Tool
	if command != "" {
		tools = []Tool{{Name: command, Args: append([]string(nil), args...)}}
	} else {
		tools = DefaultTools(runtime.GOOS)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandSource{
		tools:    tools,
		timeout:  timeout,
		lookPath: exec.LookPath,
	}
}

// Tools returns the configured candidate tools.
func (s *CommandSource) Tools() []Tool {
	return append([]Tool(nil), s.tools...)
}

// Capture runs the first available tool, writing a PNG to dest.
func (s *CommandSource) Capture(ctx context.Context, dest string) error {
	tool, path, err := s.resolve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string(nil), tool.Args...), dest)
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return gerrors.NewCaptureError(
				fmt.Sprintf("timed out after %s", s.timeout), ctx.Err(),
			).WithTool(tool.Name)
		}
		return Classify(tool.Name, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// resolve picks the first tool present on PATH.
func (s *CommandSource) resolve() (Tool, string, error) {
	if len(s.tools) == 0 {
		return Tool{}, "", gerrors.NewCaptureError(
			fmt.Sprintf("no screenshot tool known for %s", runtime.GOOS),
			gerrors.ErrCaptureToolMissing,
		).WithRemediation(ToolRemediation)
	}

	var names []string
	for _, tool := range s.tools {
		if path, err := s.lookPath(tool.Name); err == nil {
			return tool, path, nil
		}
		names = append(names, tool.Name)
	}
	return Tool{}, "", gerrors.NewCaptureError(
		fmt.Sprintf("none of %s found on PATH", strings.Join(names, ", ")),
		gerrors.ErrCaptureToolMissing,
	).WithTool(names[0]).WithRemediation(ToolRemediation)
}

// permissionMarkers are tool output substrings that indicate missing
// screen recording permission.
var permissionMarkers = []string{
	"could not create image from display",
	"not authorized",
	"permission denied",
}

// displayMarkers indicate there is no graphical session to capture.
var displayMarkers = []string{
	"unable to open x server",
	"cannot open display",
	"can't open display",
	"failed to connect to wayland",
	"compositor doesn't support",
}

// Classify converts a failed tool run into a *errors.CaptureError, attaching
// a remediation hint when output identifies a permission or display problem.
func Classify(tool, output string, cause error) *gerrors.CaptureError {
	lower := strings.ToLower(output)
	msg := "screenshot command failed"
	if output != "" {
		msg = output
	}

	for _, m := range permissionMarkers {
		if strings.Contains(lower, m) {
			return gerrors.NewCaptureError(msg, fmt.Errorf("%w: %w", gerrors.ErrPermissionDenied, cause)).
				WithTool(tool).
				WithRemediation(PermissionRemediation)
		}
	}
	for _, m := range displayMarkers {
		if strings.Contains(lower, m) {
			return gerrors.NewCaptureError(msg, fmt.Errorf("%w: %w", gerrors.ErrNoDisplay, cause)).
				WithTool(tool).
				WithRemediation(DisplayRemediation)
		}
	}
	return gerrors.NewCaptureError(msg, cause).WithTool(tool)
}
