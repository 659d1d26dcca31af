package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "datasweep",
		Short: "Tiered backup validation and safe clearing for recording data",
		Long: `datasweep manages large recording-session data across a tiered backup
hierarchy. It records file checksums, copies data to backup tiers with
checksum validation, reports the backup status of every file, and clears
acquisition disks of files whose backups have been proven.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(cli.NewScanCommand())
	rootCmd.AddCommand(cli.NewCopyCommand())
	rootCmd.AddCommand(cli.NewStatusCommand())
	rootCmd.AddCommand(cli.NewClearCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	return rootCmd.Execute()
}
