package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete glimpse configuration
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// StorageConfig controls where and how artifacts are kept on disk
type StorageConfig struct {
	// Root is the stealth root holding both sequence directories.
	// Empty resolves to the platform state directory (see StateDir).
	Root string `mapstructure:"root" yaml:"root"`
	// MaxQueue bounds the length of each sequence (default: 5)
	MaxQueue int `mapstructure:"max_queue" yaml:"max_queue"`
	// DirMode is the permission mode for sequence directories (default: 0700)
	DirMode uint32 `mapstructure:"dir_mode" yaml:"dir_mode"`
	// FileMode is the permission mode for artifact files (default: 0600)
	FileMode uint32 `mapstructure:"file_mode" yaml:"file_mode"`
	// HideFiles applies platform hidden-file attributes where supported
	HideFiles bool `mapstructure:"hide_files" yaml:"hide_files"`
	// PersistManifest mirrors the sequences to disk so separate processes
	// share one queue. When false the queue lives only in memory.
	PersistManifest bool `mapstructure:"persist_manifest" yaml:"persist_manifest"`
}

// CacheConfig controls the derivative caches
type CacheConfig struct {
	// FullCapacity is the number of full-size derivatives kept (default: 10)
	FullCapacity int `mapstructure:"full_capacity" yaml:"full_capacity"`
	// ThumbnailCapacity is the number of thumbnails kept (default: 20)
	ThumbnailCapacity int `mapstructure:"thumbnail_capacity" yaml:"thumbnail_capacity"`
	// Dedupe collapses concurrent misses on the same key into one transform
	Dedupe bool `mapstructure:"dedupe" yaml:"dedupe"`
}

// TransformConfig holds the per-kind transform constants
type TransformConfig struct {
	MaxWidth     int `mapstructure:"max_width" yaml:"max_width"`
	FullQuality  int `mapstructure:"full_quality" yaml:"full_quality"`
	ThumbWidth   int `mapstructure:"thumb_width" yaml:"thumb_width"`
	ThumbHeight  int `mapstructure:"thumb_height" yaml:"thumb_height"`
	ThumbQuality int `mapstructure:"thumb_quality" yaml:"thumb_quality"`
}

// CaptureConfig selects the OS screenshot tool
type CaptureConfig struct {
	// Command overrides the platform default screenshot tool
	Command string `mapstructure:"command" yaml:"command"`
	// Args are passed before the destination path
	Args []string `mapstructure:"args" yaml:"args"`
	// TimeoutSeconds bounds a single capture (default: 15)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// WatchConfig controls the filesystem watcher
type WatchConfig struct {
	// Enabled starts an fsnotify watcher on the sequence directories
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "json" (file, default) or "text" (colorized stderr)
	Format string `mapstructure:"format" yaml:"format"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:            "",
			MaxQueue:        5,
			DirMode:         0o700,
			FileMode:        0o600,
			HideFiles:       true,
			PersistManifest: true,
		},
		Cache: CacheConfig{
			FullCapacity:      10,
			ThumbnailCapacity: 20,
			Dedupe:            true,
		},
		Transform: TransformConfig{
			MaxWidth:     2048,
			FullQuality:  92,
			ThumbWidth:   400,
			ThumbHeight:  300,
			ThumbQuality: 75,
		},
		Capture: CaptureConfig{
			Command:        "",
			Args:           []string{},
			TimeoutSeconds: 15,
		},
		Watch: WatchConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// Timeout returns the capture timeout as a time.Duration
func (c *CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveRoot returns the storage root, expanding ~ and falling back to StateDir.
func (s *StorageConfig) ResolveRoot() string {
	path := s.Root
	if path == "" {
		return StateDir()
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return path
}

// DirPerm returns DirMode as an os.FileMode
func (s *StorageConfig) DirPerm() os.FileMode {
	return os.FileMode(s.DirMode).Perm()
}

// FilePerm returns FileMode as an os.FileMode
func (s *StorageConfig) FilePerm() os.FileMode {
	return os.FileMode(s.FileMode).Perm()
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Storage defaults
	viper.SetDefault("storage.root", defaults.Storage.Root)
	viper.SetDefault("storage.max_queue", defaults.Storage.MaxQueue)
	viper.SetDefault("storage.dir_mode", defaults.Storage.DirMode)
	viper.SetDefault("storage.file_mode", defaults.Storage.FileMode)
	viper.SetDefault("storage.hide_files", defaults.Storage.HideFiles)
	viper.SetDefault("storage.persist_manifest", defaults.Storage.PersistManifest)

	// Cache defaults
	viper.SetDefault("cache.full_capacity", defaults.Cache.FullCapacity)
	viper.SetDefault("cache.thumbnail_capacity", defaults.Cache.ThumbnailCapacity)
	viper.SetDefault("cache.dedupe", defaults.Cache.Dedupe)

	// Transform defaults
	viper.SetDefault("transform.max_width", defaults.Transform.MaxWidth)
	viper.SetDefault("transform.full_quality", defaults.Transform.FullQuality)
	viper.SetDefault("transform.thumb_width", defaults.Transform.ThumbWidth)
	viper.SetDefault("transform.thumb_height", defaults.Transform.ThumbHeight)
	viper.SetDefault("transform.thumb_quality", defaults.Transform.ThumbQuality)

	// Capture defaults
	viper.SetDefault("capture.command", defaults.Capture.Command)
	viper.SetDefault("capture.args", defaults.Capture.Args)
	viper.SetDefault("capture.timeout_seconds", defaults.Capture.TimeoutSeconds)

	// Watch defaults
	viper.SetDefault("watch.enabled", defaults.Watch.Enabled)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "glimpse")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".glimpse"
	}
	return filepath.Join(home, ".config", "glimpse")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the default storage root
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "glimpse")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".glimpse-state"
	}
	return filepath.Join(home, ".local", "state", "glimpse")
}
