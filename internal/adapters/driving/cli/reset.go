package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetYes bool
	resetAll bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the vector index",
	Long: `Drops every indexed chunk. Stored documents are kept and re-indexed the
next time docchat starts, which is useful after changing the embedding
provider. With --all the stored documents are deleted as well.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also delete stored documents")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(); err != nil {
		return err
	}
	if resetAll {
		if err := requireDocuments(); err != nil {
			return err
		}
	}

	if !resetYes {
		what := "the vector index"
		if resetAll {
			what = "all documents and the vector index"
		}
		warnColor.Fprintf(cmd.ErrOrStderr(), "This will delete %s. Continue? [y/N]: ", what)
		if !confirmed(bufio.NewReader(cmd.InOrStdin())) {
			return errors.New("aborted")
		}
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if resetAll {
		docs, err := documentService.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		var errs []error
		for i := range docs {
			if err := documentService.Delete(ctx, docs[i].ID); err != nil {
				errs = append(errs, documentError(docs[i].ID, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d documents\n", len(docs))
	}

	if err := ragService.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	successColor.Fprintln(out, "Index cleared")
	return nil
}

func confirmed(reader *bufio.Reader) bool {
	switch strings.ToLower(readLine(reader)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
