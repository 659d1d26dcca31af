package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/internal/platform"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/sweep"
)

// ScanFlags holds scan command flags
type ScanFlags struct {
	Recursive bool
	Include   []string
	Exclude   []string
	Workers   int
	Output    string
}

var scanFlags ScanFlags

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <folder>...",
		Short: "Record file checksums in the store",
		Long: `Walk one or more folders, compute a checksum for every file and record it
in the checksum store. Later status and clear runs compare against these
records. Files the store already knows with a digest are not re-read
unless they are small.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}

	cmd.Flags().BoolVarP(&scanFlags.Recursive, "recursive", "r", true, "descend into subfolders")
	cmd.Flags().StringSliceVar(&scanFlags.Include, "include", nil, "only scan matching file names (glob or substring)")
	cmd.Flags().StringSliceVar(&scanFlags.Exclude, "exclude", nil, "skip matching file names (glob or substring)")
	cmd.Flags().IntVarP(&scanFlags.Workers, "parallel", "p", 0, "number of parallel workers (default: from config)")
	cmd.Flags().StringVarP(&scanFlags.Output, "output", "o", "", "output format: human, json")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	workers := cfg.Sweep.MaxWorkers
	if scanFlags.Workers > 0 {
		workers = scanFlags.Workers
	}
	recursive := cfg.Sweep.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive = scanFlags.Recursive
	}

	scanner := sweep.NewScanner(
		storage.NewLocal(),
		st,
		createBuilder(cfg),
		logger,
		createFormatter(cfg, scanFlags.Output),
		sweep.ScanConfig{
			Recursive:           recursive,
			Include:             append(scanFlags.Include, cfg.Sweep.Include...),
			Exclude:             append(scanFlags.Exclude, cfg.Sweep.Exclude...),
			Workers:             workers,
			RegenerateThreshold: cfg.Sweep.RegenerateThresholdBytes,
		},
	)

	var failed bool
	for _, arg := range args {
		folder, err := platform.Absolutize(arg)
		if err != nil {
			return err
		}
		report, err := scanner.Scan(ctx, folder)
		if err != nil {
			return fmt.Errorf("scan of %s failed: %w", folder, err)
		}
		if len(report.Errors) > 0 {
			failed = true
		}
		if !globalFlags.Quiet && scanFlags.Output != "json" {
			fmt.Printf("%s: %d files, %d hashed, %d skipped, %d errors\n",
				folder, report.FilesScanned, report.FilesHashed, report.FilesSkipped, len(report.Errors))
		}
	}
	if failed {
		return fmt.Errorf("scan finished with errors")
	}
	return nil
}
