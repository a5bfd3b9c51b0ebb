// Package config provides CLI commands for managing glimpse configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/glimpse/internal/config"
)

// Wrapper functions for exec to allow testing
var execLookPath = exec.LookPath
var execCommand = exec.Command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify glimpse configuration",
	Long: `View or modify glimpse configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  glimpse config set storage.max_queue 8
  glimpse config set cache.dedupe false
  glimpse config set storage.dir_mode 0750

Run 'glimpse config init' for a commented file listing every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/glimpse/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in your editor",
	Long: `Open the config file in your preferred editor.

Uses $EDITOR environment variable, or falls back to common editors (vim, nano, vi).
If no config file exists, creates one with default values first.`,
	RunE: runConfigEdit,
}

var configResetCmd = &cobra.Command{
	Use:   "reset [key]",
	Short: "Reset configuration to defaults",
	Long: `Reset configuration values to their defaults.

Without arguments, resets all configuration to defaults.
With a key argument, resets only that specific key.

Examples:
  glimpse config reset                    # Reset all to defaults
  glimpse config reset storage.max_queue  # Reset only storage.max_queue`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigReset,
}

var initForce bool

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configResetCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyKind describes how a settable key's value is parsed.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindMode
)

// settableKeys lists every key accepted by set and reset.
var settableKeys = map[string]keyKind{
	"storage.root":             kindString,
	"storage.max_queue":        kindInt,
	"storage.dir_mode":         kindMode,
	"storage.file_mode":        kindMode,
	"storage.hide_files":       kindBool,
	"storage.persist_manifest": kindBool,
	"cache.full_capacity":      kindInt,
	"cache.thumbnail_capacity": kindInt,
	"cache.dedupe":             kindBool,
	"transform.max_width":      kindInt,
	"transform.full_quality":   kindInt,
	"transform.thumb_width":    kindInt,
	"transform.thumb_height":   kindInt,
	"transform.thumb_quality":  kindInt,
	"capture.command":          kindString,
	"capture.timeout_seconds":  kindInt,
	"watch.enabled":            kindBool,
	"logging.enabled":          kindBool,
	"logging.level":            kindString,
	"logging.format":           kindString,
	"logging.max_size_mb":      kindInt,
	"logging.max_backups":      kindInt,
	"logging.compress":         kindBool,
}

func validKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := appconfig.Get()
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}
	_, _ = fmt.Fprintf(out, "# Storage root: %s\n\n", cfg.Storage.ResolveRoot())

	data, err := renderConfig(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func parseValue(key, value string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(validKeys(), ", "))
	}

	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	case kindMode:
		m, err := strconv.ParseUint(value, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected an octal mode such as 0700", key)
		}
		return uint32(m), nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	viper.Set(key, typedValue)

	// Refuse to write a file that would fail to load.
	if _, err := appconfig.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile, err := writeConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	_, _ = fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// writeConfig writes viper's current settings to the user config file.
func writeConfig() (string, error) {
	if err := os.MkdirAll(appconfig.ConfigDir(), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

// sectionComments head each top-level section of the generated file.
var sectionComments = map[string]string{
	"storage":   "Where captures are kept. An empty root uses the platform state directory.",
	"cache":     "Number of derivatives kept in memory per kind.",
	"transform": "Full derivatives are capped at max_width; thumbnails fit thumb_width x thumb_height.",
	"capture":   "Screenshot tool. An empty command picks the platform default.\nargs are passed before the destination path.",
	"watch":     "Drop captures from their queue when they are removed by hand.",
	"logging":   "Format json writes a rotating file; text writes colorized logs to stderr.",
}

// renderConfig renders cfg as YAML with permission modes in octal. With
// annotate set, each top-level section is headed by a comment.
func renderConfig(cfg *appconfig.Config, annotate bool) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	if annotate {
		doc.HeadComment = "glimpse configuration"
	}

	// doc is a mapping of alternating key and value nodes.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		if c, ok := sectionComments[key.Value]; ok && annotate {
			key.HeadComment = c
		}
		if key.Value == "storage" {
			octalModes(value)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// octalModes rewrites the *_mode values of a storage mapping as 0o-prefixed
// octal, which YAML 1.2 reads back as the same integer.
func octalModes(storage *yaml.Node) {
	for i := 0; i+1 < len(storage.Content); i += 2 {
		if !strings.HasSuffix(storage.Content[i].Value, "_mode") {
			continue
		}
		v := storage.Content[i+1]
		if n, err := strconv.ParseUint(v.Value, 10, 32); err == nil {
			v.Value = fmt.Sprintf("0o%o", n)
		}
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s\nUse 'glimpse config set' to modify values, or --force to overwrite", configFile)
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := renderConfig(appconfig.Default(), true)
	if err != nil {
		return fmt.Errorf("failed to render default config: %w", err)
	}
	if err := os.WriteFile(configFile, content, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Created config file at %s\n", configFile)
	_, _ = fmt.Fprintln(out, "Edit this file to customize glimpse's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	_, _ = fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	_, _ = fmt.Fprintln(out, "\nEnvironment variables: GLIMPSE_* (e.g., GLIMPSE_STORAGE_MAX_QUEUE)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	// Check if config file exists, if not create it
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Config file doesn't exist, creating with defaults...")
		if err := runConfigInit(cmd, args); err != nil {
			return err
		}
	}

	// Find an editor
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		// Try common editors
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config file saved: %s\n", configFile)
	return nil
}

// defaultValue returns key's default from the viper-free Default config.
func defaultValue(key string) any {
	v := viper.New()
	d := appconfig.Default()
	data, _ := yaml.Marshal(d)
	v.SetConfigType("yaml")
	_ = v.ReadConfig(bytes.NewReader(data))
	return v.Get(key)
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, key := range validKeys() {
			viper.Set(key, defaultValue(key))
		}
		_, _ = fmt.Fprintln(out, "Reset all configuration to defaults.")
	} else {
		key := args[0]
		if _, ok := settableKeys[key]; !ok {
			return fmt.Errorf("unknown configuration key: %s\nRun 'glimpse config set --help' to see valid keys", key)
		}
		value := defaultValue(key)
		viper.Set(key, value)
		_, _ = fmt.Fprintf(out, "Reset %s to default: %v\n", key, value)
	}

	configFile, err := writeConfig()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}
