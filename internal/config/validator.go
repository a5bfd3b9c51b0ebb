package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "cache.full_capacity")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log output formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateTransform()...)
	errors = append(errors, c.validateCapture()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if c.Storage.MaxQueue < 1 {
		errors = append(errors, ValidationError{
			Field:   "storage.max_queue",
			Value:   c.Storage.MaxQueue,
			Message: "must be at least 1",
		})
	}

	// Owner must keep write access or the queue cannot erase its own files
	if c.Storage.DirMode > 0o777 || c.Storage.DirMode&0o700 != 0o700 {
		errors = append(errors, ValidationError{
			Field:   "storage.dir_mode",
			Value:   fmt.Sprintf("%#o", c.Storage.DirMode),
			Message: "must be a permission mode granting the owner rwx",
		})
	}
	if c.Storage.FileMode > 0o777 || c.Storage.FileMode&0o600 != 0o600 {
		errors = append(errors, ValidationError{
			Field:   "storage.file_mode",
			Value:   fmt.Sprintf("%#o", c.Storage.FileMode),
			Message: "must be a permission mode granting the owner rw",
		})
	}

	return errors
}

func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError

	if c.Cache.FullCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "cache.full_capacity",
			Value:   c.Cache.FullCapacity,
			Message: "must be at least 1",
		})
	}
	if c.Cache.ThumbnailCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "cache.thumbnail_capacity",
			Value:   c.Cache.ThumbnailCapacity,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateTransform() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"transform.max_width", c.Transform.MaxWidth},
		{"transform.thumb_width", c.Transform.ThumbWidth},
		{"transform.thumb_height", c.Transform.ThumbHeight},
	}
	for _, p := range positive {
		if p.value < 1 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be positive",
			})
		}
	}

	quality := []struct {
		field string
		value int
	}{
		{"transform.full_quality", c.Transform.FullQuality},
		{"transform.thumb_quality", c.Transform.ThumbQuality},
	}
	for _, q := range quality {
		if q.value < 1 || q.value > 100 {
			errors = append(errors, ValidationError{
				Field:   q.field,
				Value:   q.value,
				Message: "must be between 1 and 100",
			})
		}
	}

	return errors
}

func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	if c.Capture.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "capture.timeout_seconds",
			Value:   c.Capture.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Capture.Command == "" && len(c.Capture.Args) > 0 {
		errors = append(errors, ValidationError{
			Field:   "capture.args",
			Value:   c.Capture.Args,
			Message: "requires capture.command to be set",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
