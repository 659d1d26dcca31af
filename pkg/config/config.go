// Package config defines the application configuration and its YAML
// persistence.
package config

import (
	"github.com/avandam/datasweep/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Tiers    TiersConfig    `yaml:"tiers"`
	Store    StoreConfig    `yaml:"store"`
	Checksum ChecksumConfig `yaml:"checksum"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TiersConfig maps directory roots onto the backup tier hierarchy
type TiersConfig struct {
	// ArchiveRoot is the destination of record
	ArchiveRoot string `yaml:"archive_root"`

	// StagingRoots hold data awaiting archive ingest
	StagingRoots []string `yaml:"staging_roots"`

	// LocalRoots are acquisition-machine directories
	LocalRoots []string `yaml:"local_roots"`
}

// StoreConfig holds checksum store settings
type StoreConfig struct {
	// Path to the SQLite database file
	Path string `yaml:"path"`
}

// ChecksumConfig holds checksum generation settings
type ChecksumConfig struct {
	// Algorithm used when generating checksums: "crc32", "sha256", "sha3_256"
	Algorithm string `yaml:"algorithm"`

	// AutoThresholdBytes is the file size up to which checksums are generated
	// eagerly at scan time; 0 disables eager generation, -1 means no ceiling
	AutoThresholdBytes int64 `yaml:"auto_threshold_bytes"`

	// BandwidthLimit caps checksum read throughput in bytes/second; 0 = unlimited
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
}

// SweepConfig holds clearing and scanning settings
type SweepConfig struct {
	MaxWorkers int  `yaml:"max_workers"`
	MinAgeDays int  `yaml:"min_age_days"`
	Recursive  bool `yaml:"recursive"`

	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// SkipDerivedCheck disables the raw-capture guard
	SkipDerivedCheck bool `yaml:"skip_derived_check"`

	// RegenerateThresholdBytes is the size at or below which scans re-hash
	// files the store already knows
	RegenerateThresholdBytes int64 `yaml:"regenerate_threshold_bytes"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = stderr)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Tiers: TiersConfig{},
		Store: StoreConfig{
			Path: "", // resolved to the default data path when empty
		},
		Checksum: ChecksumConfig{
			Algorithm:          "crc32",
			AutoThresholdBytes: 10 * 1024 * 1024 * 1024,
			BandwidthLimit:     0,
		},
		Sweep: SweepConfig{
			MaxWorkers:               5,
			MinAgeDays:               0,
			Recursive:                true,
			RegenerateThresholdBytes: 1024 * 1024,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "json",
			Level:   "info",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validAlgorithms := map[string]bool{"crc32": true, "sha256": true, "sha3_256": true}
	if !validAlgorithms[c.Checksum.Algorithm] {
		return &models.ValidationError{
			Field:   "checksum.algorithm",
			Message: "must be 'crc32', 'sha256', or 'sha3_256'",
		}
	}

	if c.Checksum.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "checksum.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	if c.Sweep.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "sweep.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Sweep.MinAgeDays < 0 {
		return &models.ValidationError{
			Field:   "sweep.min_age_days",
			Message: "must not be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
