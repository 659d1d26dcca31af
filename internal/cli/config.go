package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify datasweep configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Archive Root: %s\n", cfg.Tiers.ArchiveRoot)
			fmt.Printf("Staging Roots: %s\n", strings.Join(cfg.Tiers.StagingRoots, ", "))
			fmt.Printf("Local Roots: %s\n", strings.Join(cfg.Tiers.LocalRoots, ", "))
			fmt.Printf("Store Path: %s\n", cfg.Store.Path)
			fmt.Printf("Checksum Algorithm: %s\n", cfg.Checksum.Algorithm)
			fmt.Printf("Max Workers: %d\n", cfg.Sweep.MaxWorkers)
			fmt.Printf("Min Age (days): %d\n", cfg.Sweep.MinAgeDays)
			fmt.Printf("Output Format: %s\n", cfg.Output.Format)
			fmt.Printf("Log Format: %s\n", cfg.Logging.Format)
			fmt.Printf("Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}
}
