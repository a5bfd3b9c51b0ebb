package vault

import (
	"github.com/Iron-Ham/glimpse/internal/capture"
	"github.com/Iron-Ham/glimpse/internal/config"
	"github.com/Iron-Ham/glimpse/internal/derive"
)

// FromConfig translates the user configuration into a vault Config using
// the OS screenshot tool as the capture source. Logger, Bus and Metrics are
// left for the caller to set.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Root:     cfg.Storage.ResolveRoot(),
		MaxLen:   cfg.Storage.MaxQueue,
		DirMode:  cfg.Storage.DirPerm(),
		FileMode: cfg.Storage.FilePerm(),
		Hide:     cfg.Storage.HideFiles,
		Persist:  cfg.Storage.PersistManifest,
		Source:   capture.NewCommandSource(cfg.Capture.Command, cfg.Capture.Args, cfg.Capture.Timeout()),
		Policy: derive.Policy{
			MaxWidth:     cfg.Transform.MaxWidth,
			FullQuality:  cfg.Transform.FullQuality,
			ThumbWidth:   cfg.Transform.ThumbWidth,
			ThumbHeight:  cfg.Transform.ThumbHeight,
			ThumbQuality: cfg.Transform.ThumbQuality,
		},
		FullCapacity:      cfg.Cache.FullCapacity,
		ThumbnailCapacity: cfg.Cache.ThumbnailCapacity,
		Dedupe:            cfg.Cache.Dedupe,
		Watch:             cfg.Watch.Enabled,
	}
}
