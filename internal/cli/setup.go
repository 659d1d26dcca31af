package cli

import (
	"fmt"

	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/config"
	"github.com/avandam/datasweep/pkg/logging"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/output"
	"github.com/avandam/datasweep/pkg/ratelimit"
	"github.com/avandam/datasweep/pkg/store"
)

// loadConfig loads the configuration honoring the --config flag
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// createLogger creates a logger from the logging configuration. --verbose
// lowers the level to debug.
func createLogger(cfg *config.Config) (logging.Logger, error) {
	if !cfg.Logging.Enabled || cfg.Logging.File == "" {
		return logging.NewNullLogger(), nil
	}

	var format logging.Format
	switch cfg.Logging.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if globalFlags.Verbose {
		level = logging.DebugLevel
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      level,
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
}

// openStore opens the checksum database configured in cfg, falling back to
// the default data path.
func openStore(cfg *config.Config) (*store.SQLite, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		path, err = config.DefaultStorePath()
		if err != nil {
			return nil, err
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checksum store: %w", err)
	}
	return s, nil
}

// createBuilder wires the checksum builder from the configuration
func createBuilder(cfg *config.Config) *checksum.Builder {
	return checksum.NewBuilder(
		checksum.DefaultRegistry(),
		checksum.WithAlgorithm(cfg.Checksum.Algorithm),
		checksum.WithAutoThreshold(cfg.Checksum.AutoThresholdBytes),
		checksum.WithLimiter(ratelimit.NewLimiter(cfg.Checksum.BandwidthLimit)),
	)
}

// createLocator maps the configured roots onto the tier hierarchy
func createLocator(cfg *config.Config) backup.Locator {
	var roots []backup.TierRoot
	if cfg.Tiers.ArchiveRoot != "" {
		roots = append(roots, backup.TierRoot{Tier: models.TierArchive, Root: cfg.Tiers.ArchiveRoot})
	}
	for _, r := range cfg.Tiers.StagingRoots {
		roots = append(roots, backup.TierRoot{Tier: models.TierStaging, Root: r})
	}
	for _, r := range cfg.Tiers.LocalRoots {
		roots = append(roots, backup.TierRoot{Tier: models.TierLocal, Root: r})
	}
	return backup.NewTreeLocator(roots)
}

// createFormatter picks the output formatter for a command. --quiet disables
// per-file output entirely.
func createFormatter(cfg *config.Config, formatFlag string) output.Formatter {
	if globalFlags.Quiet || cfg.Output.Quiet {
		return nil
	}
	format := cfg.Output.Format
	if formatFlag != "" {
		format = formatFlag
	}
	switch format {
	case "json":
		return output.NewJSONFormatter()
	default:
		if cfg.Output.Progress {
			return output.NewProgressFormatter()
		}
		return output.NewHumanFormatter()
	}
}
