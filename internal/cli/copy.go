package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/internal/platform"
	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/storage"
	"github.com/avandam/datasweep/pkg/transfer"
)

// CopyFlags holds copy command flags
type CopyFlags struct {
	Validate      bool
	RemoveSource  bool
	AllowRecopy   bool
	SessionSubdir bool
	Workers       int
	MaxAttempts   int
}

var copyFlags CopyFlags

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source> <dest>",
		Short: "Copy files to a backup tier with checksum validation",
		Long: `Copy a file or a folder tree to a destination root and prove every copy
by checksum comparison. The destination path is resolved from the
source's session identity; a destination that encodes a different
session is refused. With --remove-source the original is deleted only
after its copy validates.`,
		Args: cobra.ExactArgs(2),
		RunE: runCopy,
	}

	cmd.Flags().BoolVar(&copyFlags.Validate, "validate", true, "prove each copy by checksum comparison")
	cmd.Flags().BoolVar(&copyFlags.RemoveSource, "remove-source", false, "delete the source after its copy validates (implies --validate)")
	cmd.Flags().BoolVar(&copyFlags.AllowRecopy, "recopy", false, "overwrite existing destination files unconditionally")
	cmd.Flags().BoolVar(&copyFlags.SessionSubdir, "session-subdir", true, "insert the session folder under the destination root")
	cmd.Flags().IntVarP(&copyFlags.Workers, "parallel", "p", 0, "number of parallel workers for tree copies (default: from config)")
	cmd.Flags().IntVar(&copyFlags.MaxAttempts, "max-attempts", 0, "copy-validate attempts per file (default: 3)")

	return cmd
}

func runCopy(cmd *cobra.Command, args []string) error {
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

	source, err := platform.Absolutize(args[0])
	if err != nil {
		return err
	}
	destRoot, err := platform.Absolutize(args[1])
	if err != nil {
		return err
	}

	builder := createBuilder(cfg)
	locator := createLocator(cfg)
	eval := backup.NewEvaluator(st, locator, builder, logger)

	opts := []transfer.CopierOption{transfer.WithExchanger(eval)}
	if copyFlags.MaxAttempts > 0 {
		opts = append(opts, transfer.WithMaxAttempts(copyFlags.MaxAttempts))
	}
	copier := transfer.NewCopier(storage.NewLocal(), st, builder, logger, opts...)

	copyOpts := transfer.Options{
		AddSessionSubdir: copyFlags.SessionSubdir,
		Validate:         copyFlags.Validate,
		AllowRecopy:      copyFlags.AllowRecopy,
		RemoveSource:     copyFlags.RemoveSource,
	}

	info, err := os.Stat(filepath.FromSlash(source))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		outcome, err := copier.Copy(ctx, source, destRoot, copyOpts)
		if err != nil {
			return err
		}
		printOutcome(outcome)
		return nil
	}

	workers := cfg.Sweep.MaxWorkers
	if copyFlags.Workers > 0 {
		workers = copyFlags.Workers
	}
	results, err := copier.CopyTree(ctx, source, destRoot, copyOpts, workers)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  failed  %s: %v\n", r.Path, r.Err)
			continue
		}
		printOutcome(r.Outcome)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d copies failed", failed, len(results))
	}
	return nil
}

func printOutcome(out models.CopyOutcome) {
	if globalFlags.Quiet {
		return
	}
	switch out.Result {
	case models.CopyResultSkipped:
		fmt.Printf("  skipped %s\n", out.Source)
	case models.CopyResultSourceRemoved:
		fmt.Printf("  moved   %s -> %s (%d bytes)\n", out.Source, out.Destination, out.BytesCopied)
	default:
		fmt.Printf("  %-7s %s -> %s (%d bytes)\n", out.Result, out.Source, out.Destination, out.BytesCopied)
	}
}
