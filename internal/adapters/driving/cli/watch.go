package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var watchSkipInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Index a directory and keep it up to date",
	Long: `Indexes a directory, then watches it and re-indexes files as they are
created or modified. Deleted files are removed from the index.
Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not index existing files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	src := filesystem.New(args[0])
	defer src.Close()

	if !watchSkipInitial {
		bar := newCounter(cmd.ErrOrStderr(), "Indexing "+src.Root(), "files")
		report, err := ingestService.Ingest(ctx, src, func(ev driving.IngestEvent) {
			bar.step(ev.Name)
		})
		bar.finish()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			warnColor.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		if report != nil {
			printReport(out, report)
		}
	}

	headingColor.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", src.Root())
	return ingestService.Watch(ctx, src, func(ev driving.IngestEvent) {
		printEvent(out, ev)
	})
}
