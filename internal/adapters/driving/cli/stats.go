package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

type statsOutput struct {
	Documents         int     `json:"total_documents"`
	Chunks            int     `json:"total_chunks"`
	ChunksPerDocument float64 `json:"avg_chunks_per_document"`
	StoredDocuments   int     `json:"stored_documents"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(); err != nil {
		return err
	}

	ctx := cmd.Context()
	stats, err := ragService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	stored := stats.TotalDocuments
	if documentService != nil {
		if docs, err := documentService.List(ctx); err == nil {
			stored = len(docs)
		}
	}

	if statsJSON {
		return printJSON(cmd, statsOutput{
			Documents:         stats.TotalDocuments,
			Chunks:            stats.TotalChunks,
			ChunksPerDocument: stats.AvgChunksPerDocument,
			StoredDocuments:   stored,
		})
	}

	out := cmd.OutOrStdout()
	headingColor.Fprintln(out, "Index")
	fmt.Fprintf(out, "  Documents:           %d\n", stats.TotalDocuments)
	fmt.Fprintf(out, "  Chunks:              %d\n", stats.TotalChunks)
	fmt.Fprintf(out, "  Chunks per document: %.1f\n", stats.AvgChunksPerDocument)
	if stored != stats.TotalDocuments {
		warnColor.Fprintf(out, "  %d stored documents have no chunks\n", stored-stats.TotalDocuments)
	}
	return nil
}
