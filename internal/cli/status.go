package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avandam/datasweep/internal/platform"
	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/output"
	"github.com/avandam/datasweep/pkg/storage"
)

// StatusFlags holds status command flags
type StatusFlags struct {
	Recursive bool
	Output    string
}

var statusFlags StatusFlags

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <file-or-folder-or-session>",
		Short: "Show backup status of files",
		Long: `Evaluate the backup status of a file, of every file in a folder, or of
every stored record of a session (pass the bare session folder name),
without changing anything. For each file the report shows its known
backups across the tier hierarchy and whether the file could be cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}

	cmd.Flags().BoolVarP(&statusFlags.Recursive, "recursive", "r", true, "descend into subfolders")
	cmd.Flags().StringVarP(&statusFlags.Output, "output", "o", "", "output format: human, json")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	eval := backup.NewEvaluator(st, createLocator(cfg), builder, logger)
	fs := storage.NewLocal()

	var statuses []output.FileStatus

	// a bare session folder name queries the store instead of the filesystem
	if sess, serr := models.ParseSession(args[0]); serr == nil && sess.Folder() == args[0] {
		recs, err := st.BySession(ctx, sess.Folder())
		if err != nil {
			return err
		}
		for _, rec := range recs {
			ev, err := eval.Evaluate(ctx, rec)
			if err != nil {
				return err
			}
			statuses = append(statuses, output.FileStatus{Record: rec, Evaluation: ev})
		}
	} else {
		folder, err := platform.Absolutize(args[0])
		if err != nil {
			return err
		}

		info, err := fs.Stat(ctx, folder)
		if err != nil {
			return err
		}
		files := []storage.FileInfo{info}
		if info.IsDir {
			if files, err = fs.List(ctx, folder, statusFlags.Recursive); err != nil {
				return err
			}
		}

		for _, f := range files {
			rec, err := builder.FromPath(ctx, f.Path)
			if err != nil {
				return err
			}
			ev, err := eval.Evaluate(ctx, rec)
			if err != nil {
				return err
			}
			statuses = append(statuses, output.FileStatus{Record: rec, Evaluation: ev})
		}
	}

	format := cfg.Output.Format
	if statusFlags.Output != "" {
		format = statusFlags.Output
	}
	return output.WriteStatusReport(os.Stdout, statuses, format)
}
