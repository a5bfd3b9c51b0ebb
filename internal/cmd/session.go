package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/config"
	"github.com/Iron-Ham/glimpse/internal/logging"
	"github.com/Iron-Ham/glimpse/internal/queue"
	"github.com/Iron-Ham/glimpse/internal/vault"
)

// session is one CLI invocation's vault plus the logger it writes to.
type session struct {
	cfg    *config.Config
	vault  *vault.Vault
	logger *logging.Logger
}

// openSession loads the configuration and opens the vault it describes.
// watch overrides watch.enabled.
func openSession(cmd *cobra.Command, watch bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	vcfg := vault.FromConfig(cfg)
	vcfg.Watch = vcfg.Watch || watch
	vcfg.Logger = logger

	v, err := vault.New(vcfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &session{cfg: cfg, vault: v, logger: logger}, nil
}

func (s *session) Close() {
	_ = s.vault.Close()
	_ = s.logger.Close()
}

// newLogger builds the logger described by the logging section: a rotating
// JSON file in the state directory, or tinted text on stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Logging
	if !lc.Enabled {
		return logging.NopLogger(), nil
	}
	if lc.Format == logging.FormatText {
		return logging.NewTextLogger(cmd.ErrOrStderr(), lc.Level), nil
	}

	dir := filepath.Join(config.StateDir(), "logs")
	logger, err := logging.NewLoggerWithRotation(dir, lc.Level, logging.RotationConfig{
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		Compress:   lc.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// viewFlag resolves a --view value; empty means the active view.
func viewFlag(s *session, value string) (queue.View, error) {
	if value == "" {
		return s.vault.View(), nil
	}
	return queue.ParseView(value)
}
