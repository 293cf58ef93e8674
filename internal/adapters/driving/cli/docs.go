package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"documents"},
	Short:   "Manage indexed documents",
	Long:    `List, inspect, delete, or summarise indexed documents.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print a document's indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsChunks,
}

var docsDeleteCmd = &cobra.Command{
	Use:     "delete [doc-id...]",
	Aliases: []string{"rm"},
	Short:   "Delete documents and their chunks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDocsDelete,
}

var docsSummariseCmd = &cobra.Command{
	Use:     "summarise [doc-id]",
	Aliases: []string{"summarize"},
	Short:   "Summarise a document with the language model",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocsSummarise,
}

var (
	docsJSON          bool
	docsSummaryLength int
)

func init() {
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsShowCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsSummariseCmd.Flags().IntVarP(&docsSummaryLength, "length", "l", 200, "approximate summary length in words")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsChunksCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsSummariseCmd)
	rootCmd.AddCommand(docsCmd)
}

type documentJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      string            `json:"kind"`
	URI       string            `json:"uri,omitempty"`
	MIMEType  string            `json:"mime_type,omitempty"`
	Size      int64             `json:"size"`
	Chunks    int               `json:"chunks"`
	Columns   []string          `json:"columns,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if docsJSON {
		list := make([]documentJSON, 0, len(docs))
		for i := range docs {
			d, err := documentService.GetDetails(ctx, docs[i].ID)
			if err != nil {
				return fmt.Errorf("failed to get details for %s: %w", docs[i].ID, err)
			}
			list = append(list, toDocumentJSON(d))
		}
		return printJSON(cmd, list)
	}

	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents indexed. Run 'docchat index <path>' to add some.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSIZE\tUPDATED")
	for i := range docs {
		d := &docs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Kind, formatSize(d.Size), d.UpdatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	d, err := documentService.GetDetails(cmd.Context(), args[0])
	if err != nil {
		return documentError(args[0], err)
	}

	if docsJSON {
		return printJSON(cmd, toDocumentJSON(d))
	}

	out := cmd.OutOrStdout()
	headingColor.Fprintln(out, d.Name)
	fmt.Fprintf(out, "  ID:       %s\n", d.ID)
	fmt.Fprintf(out, "  Kind:     %s\n", d.Kind)
	if d.URI != "" {
		fmt.Fprintf(out, "  URI:      %s\n", d.URI)
	}
	if d.MIMEType != "" {
		fmt.Fprintf(out, "  Type:     %s\n", d.MIMEType)
	}
	fmt.Fprintf(out, "  Size:     %s\n", formatSize(d.Size))
	fmt.Fprintf(out, "  Chunks:   %d\n", d.ChunkCount)
	if d.Kind == domain.DocumentKindTabular {
		fmt.Fprintf(out, "  Columns:  %s\n", strings.Join(d.Columns, ", "))
		fmt.Fprintf(out, "  Rows:     %d\n", d.RowCount)
	}
	fmt.Fprintf(out, "  Created:  %s\n", d.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Updated:  %s\n", d.UpdatedAt.Local().Format(time.DateTime))

	if len(d.Metadata) > 0 {
		fmt.Fprintln(out, "  Metadata:")
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %s: %s\n", k, d.Metadata[k])
		}
	}
	return nil
}

func runDocsChunks(cmd *cobra.Command, args []string) error {
	if err := requireRAG(); err != nil {
		return err
	}

	entries, err := ragService.ChunksForDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if len(entries) == 0 {
		return documentError(args[0], domain.ErrNotFound)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		headingColor.Fprintf(out, "--- chunk %d ---\n", e.ChunkIndex)
		fmt.Fprintln(out, e.Content)
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var errs []error
	for _, id := range args {
		if err := documentService.Delete(cmd.Context(), id); err != nil {
			errs = append(errs, documentError(id, err))
			continue
		}
		successColor.Fprintf(out, "Deleted %s\n", id)
	}
	return errors.Join(errs...)
}

func runDocsSummarise(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	spin := newSpinner(cmd.ErrOrStderr(), "Summarising...")
	summary, err := documentService.Summarise(cmd.Context(), args[0], docsSummaryLength)
	spin.finish()
	if err != nil {
		return documentError(args[0], err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func documentError(id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document %s not found", id)
	}
	return fmt.Errorf("document %s: %w", id, err)
}

func toDocumentJSON(d *driving.DocumentDetails) documentJSON {
	return documentJSON{
		ID:        d.ID,
		Name:      d.Name,
		Kind:      d.Kind.String(),
		URI:       d.URI,
		MIMEType:  d.MIMEType,
		Size:      d.Size,
		Chunks:    d.ChunkCount,
		Columns:   d.Columns,
		Rows:      d.RowCount,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Metadata:  d.Metadata,
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
