package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/internal/platform"
	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/sweep"
)

// ClearFlags holds clear command flags
type ClearFlags struct {
	DryRun           bool
	Recursive        bool
	MinAgeDays       int
	Workers          int
	Include          []string
	Exclude          []string
	SkipDerivedCheck bool
	Output           string
}

var clearFlags ClearFlags

// NewClearCommand creates the clear command
func NewClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <folder>...",
		Short: "Delete files whose backups are validated",
		Long: `Delete every file in a folder that has a checksum-validated backup on a
higher storage tier. Deletion is fail-closed: a file is removed only when
a valid backup is confirmed on disk immediately beforehand. Everything
uncertain stays, and a single file's failure never aborts the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClear,
	}

	cmd.Flags().BoolVarP(&clearFlags.DryRun, "dry-run", "n", false, "report what would be deleted without deleting")
	cmd.Flags().BoolVarP(&clearFlags.Recursive, "recursive", "r", true, "descend into subfolders")
	cmd.Flags().IntVar(&clearFlags.MinAgeDays, "min-age", -1, "only clear sessions at least this many days old (default: from config)")
	cmd.Flags().IntVarP(&clearFlags.Workers, "parallel", "p", 0, "number of parallel workers (default: from config)")
	cmd.Flags().StringSliceVar(&clearFlags.Include, "include", nil, "only clear matching file names (glob or substring)")
	cmd.Flags().StringSliceVar(&clearFlags.Exclude, "exclude", nil, "never clear matching file names (glob or substring)")
	cmd.Flags().BoolVar(&clearFlags.SkipDerivedCheck, "skip-derived-check", false, "clear raw capture folders even without sorted results on the archive")
	cmd.Flags().StringVarP(&clearFlags.Output, "output", "o", "", "output format: human, json")

	return cmd
}

func runClear(cmd *cobra.Command, args []string) error {
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

	builder := createBuilder(cfg)
	locator := createLocator(cfg)
	eval := backup.NewEvaluator(st, locator, builder, logger)

	workers := cfg.Sweep.MaxWorkers
	if clearFlags.Workers > 0 {
		workers = clearFlags.Workers
	}
	minAge := cfg.Sweep.MinAgeDays
	if clearFlags.MinAgeDays >= 0 {
		minAge = clearFlags.MinAgeDays
	}
	recursive := cfg.Sweep.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive = clearFlags.Recursive
	}

	sweeper := sweep.NewSweeper(
		storage.NewLocal(),
		eval,
		locator,
		builder,
		logger,
		createFormatter(cfg, clearFlags.Output),
		sweep.Config{
			Recursive:        recursive,
			Include:          append(clearFlags.Include, cfg.Sweep.Include...),
			Exclude:          append(clearFlags.Exclude, cfg.Sweep.Exclude...),
			MinAgeDays:       minAge,
			Workers:          workers,
			SkipDerivedCheck: clearFlags.SkipDerivedCheck || cfg.Sweep.SkipDerivedCheck,
			DryRun:           clearFlags.DryRun,
		},
	)

	var failed bool
	for _, arg := range args {
		folder, err := platform.Absolutize(arg)
		if err != nil {
			return err
		}
		report, err := sweeper.Clear(ctx, folder)
		if errors.Is(err, sweep.ErrNoDerivedData) {
			fmt.Printf("refusing to clear %s: %v (use --skip-derived-check to override)\n", folder, err)
			failed = true
			continue
		}
		if err != nil {
			return fmt.Errorf("clear of %s failed: %w", folder, err)
		}
		if len(report.Errors) > 0 {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("clear finished with errors")
	}
	return nil
}
