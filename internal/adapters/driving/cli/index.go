package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index files or directories",
	Long: `Reads each file, or every visible file below each directory, and adds
it to the index. Files indexed before are replaced. Unsupported file types
and empty files are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	showEvents := !indexJSON && (verbose || !isTerminal(cmd.ErrOrStderr()))

	total := &driving.IngestReport{}
	for _, path := range args {
		src := filesystem.New(path)
		bar := newCounter(cmd.ErrOrStderr(), "Indexing "+src.Root(), "files")

		report, err := ingestService.Ingest(ctx, src, func(ev driving.IngestEvent) {
			bar.step(ev.Name)
			if showEvents {
				printEvent(out, ev)
			}
		})
		bar.finish()
		_ = src.Close()

		mergeReport(total, report)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			warnColor.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}

	if indexJSON {
		return printJSON(cmd, reportJSON(total))
	}
	printReport(out, total)

	if total.Failed > 0 {
		return fmt.Errorf("%d documents failed to index", total.Failed)
	}
	return nil
}

func mergeReport(dst, src *driving.IngestReport) {
	if src == nil {
		return
	}
	dst.Indexed += src.Indexed
	dst.Replaced += src.Replaced
	dst.Skipped += src.Skipped
	dst.Failed += src.Failed
	dst.Chunks += src.Chunks
	dst.Errors = append(dst.Errors, src.Errors...)
}

func printEvent(w io.Writer, ev driving.IngestEvent) {
	switch ev.Type {
	case driving.IngestIndexed:
		verb := "indexed"
		if ev.Replaced {
			verb = "updated"
		}
		successColor.Fprintf(w, "  %-8s", verb)
		fmt.Fprintf(w, " %s (%d chunks)\n", ev.Name, ev.Chunks)
	case driving.IngestSkipped:
		faintColor.Fprintf(w, "  %-8s %s\n", "skipped", ev.Name)
	case driving.IngestDeleted:
		warnColor.Fprintf(w, "  %-8s", "removed")
		fmt.Fprintf(w, " %s\n", ev.Name)
	case driving.IngestFailed:
		errorColor.Fprintf(w, "  %-8s", "failed")
		fmt.Fprintf(w, " %s: %v\n", ev.Name, ev.Err)
	}
}

func printReport(w io.Writer, r *driving.IngestReport) {
	successColor.Fprintf(w, "Indexed %d documents (%d chunks)", r.Indexed, r.Chunks)
	fmt.Fprintf(w, ": %d replaced, %d skipped, %d failed\n", r.Replaced, r.Skipped, r.Failed)
	for _, err := range r.Errors {
		errorColor.Fprintf(w, "  %v\n", err)
	}
}

type ingestReportJSON struct {
	Indexed  int      `json:"indexed"`
	Replaced int      `json:"replaced"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Chunks   int      `json:"chunks"`
	Errors   []string `json:"errors,omitempty"`
}

func reportJSON(r *driving.IngestReport) ingestReportJSON {
	out := ingestReportJSON{
		Indexed:  r.Indexed,
		Replaced: r.Replaced,
		Skipped:  r.Skipped,
		Failed:   r.Failed,
		Chunks:   r.Chunks,
	}
	for _, err := range r.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}
