// Package logging provides structured logging for glimpse.
//
// This package wraps Go's log/slog. By default it writes JSON lines to
// the debug.log file in the state directory, so capture and cache
// activity can be inspected after the fact. A text format renders through
// github.com/lmittmann/tint for interactive terminal use.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/state", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	queueLog := logger.WithComponent("queue").WithView("primary")
//	queueLog.Warn("erase failed", "path", p, "error", err)
//
// # Log Rotation
//
//	cfg := logging.RotationConfig{MaxSizeMB: 10, MaxBackups: 3, Compress: true}
//	logger, err := logging.NewLoggerWithRotation("/path/to/state", "INFO", cfg)
//
// Rotated files are named debug.log.1, debug.log.2 and so on, where .1 is
// the most recent backup. With compression enabled they become
// debug.log.1.gz and so on, compressed with github.com/klauspost/compress.
//
// # Testing
//
// Use [NopLogger] to discard all output.
package logging
