package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

var (
	searchLimit    int
	searchDocument string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across all indexed documents.
Passages are ranked by the cosine similarity of their embeddings to the
query; no answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchTopK, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "only search this document ID")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireRAG(); err != nil {
		return err
	}

	ctx := cmd.Context()
	results, err := ragService.Search(ctx, args[0], domain.SearchOptions{
		DocumentID: searchDocument,
		TopK:       searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			DocumentID: r.Entry.DocumentID,
			Source:     sourceName(r.Entry),
			ChunkIndex: r.Entry.ChunkIndex,
			Content:    r.Entry.Content,
			Score:      r.Score,
		}
	}
	return printJSON(cmd, out)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return nil
	}

	out := cmd.OutOrStdout()
	headingColor.Fprintln(out, "Results:")
	fmt.Fprintln(out)
	for i, r := range results {
		name := sourceName(r.Entry)
		if name == "" {
			name = r.Entry.DocumentID
		}
		fmt.Fprintf(out, "  [%d] %s #%d ", i+1, name, r.Entry.ChunkIndex)
		faintColor.Fprintf(out, "(%.2f)\n", r.Score)
		fmt.Fprintf(out, "      %s\n\n", oneLine(services.Preview(r.Entry.Content, services.DefaultPreviewLength)))
	}
	return nil
}

func sourceName(e domain.IndexEntry) string {
	if s, ok := e.Metadata["source"].(string); ok {
		return s
	}
	return ""
}
