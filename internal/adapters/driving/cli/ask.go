package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	askTopK     int
	askDocument string
	askJSON     bool
	askNoSource bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most similar to the question and asks the
configured language model to answer from them. The answer lists the
sources it was given, highest relevance first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from settings)")
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "only use passages from this document ID")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askNoSource, "no-sources", false, "do not print sources")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireRAG(); err != nil {
		return err
	}

	ctx := cmd.Context()
	question := strings.Join(args, " ")

	spin := newSpinner(cmd.ErrOrStderr(), "Thinking...")
	answer, err := ragService.Query(ctx, question, domain.QueryOptions{
		DocumentID: askDocument,
		TopK:       askTopK,
	})
	spin.finish()
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answerJSON(ctx, answer))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)

	if !askNoSource && answer.HasSources() {
		fmt.Fprintln(out)
		printSources(ctx, out, answer.Sources)
	}
	if verbose {
		faintColor.Fprintf(out, "\nretrieval %dms, generation %dms, %d tokens (%s)\n",
			answer.RetrievalMs(), answer.GenerationMs(), answer.TokensUsed, answer.Model)
	}
	return nil
}

func printSources(ctx context.Context, w io.Writer, sources []domain.Source) {
	headingColor.Fprintln(w, "Sources:")
	names := documentNames(ctx)
	for i, s := range sources {
		fmt.Fprintf(w, "  [%d] %s #%d ", i+1, nameOr(names, s.DocumentID), s.ChunkIndex)
		faintColor.Fprintf(w, "(%.1f%%)\n", s.Score*100)
		fmt.Fprintf(w, "      %s\n", oneLine(s.Content))
	}
}

// documentNames maps document IDs to names. It is best effort: without a
// document service the map is empty.
func documentNames(ctx context.Context) map[string]string {
	names := make(map[string]string)
	if documentService == nil {
		return names
	}
	docs, err := documentService.List(ctx)
	if err != nil {
		return names
	}
	for i := range docs {
		names[docs[i].ID] = docs[i].Name
	}
	return names
}

func nameOr(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type sourceJSON struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
}

type answerOutput struct {
	Answer       string       `json:"answer"`
	Sources      []sourceJSON `json:"sources"`
	TokensUsed   int          `json:"tokens_used"`
	Model        string       `json:"model,omitempty"`
	RetrievalMs  int64        `json:"retrieval_ms"`
	GenerationMs int64        `json:"generation_ms"`
}

func answerJSON(ctx context.Context, a *domain.Answer) answerOutput {
	names := documentNames(ctx)
	out := answerOutput{
		Answer:       a.Text,
		Sources:      make([]sourceJSON, len(a.Sources)),
		TokensUsed:   a.TokensUsed,
		Model:        a.Model,
		RetrievalMs:  a.RetrievalMs(),
		GenerationMs: a.GenerationMs(),
	}
	for i, s := range a.Sources {
		out.Sources[i] = sourceJSON{
			DocumentID:   s.DocumentID,
			DocumentName: names[s.DocumentID],
			ChunkIndex:   s.ChunkIndex,
			Content:      s.Content,
			Score:        s.Score,
		}
	}
	return out
}
