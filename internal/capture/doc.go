// Package capture wraps the operating system's screen-grab primitive.
//
// A [Source] writes one full-screen PNG to a destination path. The
// production implementation, [CommandSource], shells out to the platform's
// screenshot tool:
//
//   - darwin: screencapture -x -t png
//   - linux: grim (Wayland), then import (ImageMagick), then gnome-screenshot
//   - other platforms: none; a command must be configured
//
// Failures are returned as *errors.CaptureError. When the tool's output
// indicates a permission or display problem the error carries a
// Remediation string the UI can show verbatim, and matches
// errors.ErrPermissionDenied or errors.ErrNoDisplay respectively.
//
// Tests substitute a [Func].
package capture
