package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Chat with your documents in the terminal",
	Long: `Opens an interactive chat. Each question is answered from the indexed
documents, and follow-up questions see the earlier turns.

Controls:
  Enter    - Ask
  Tab      - Switch between chat and documents
  Ctrl+S   - Show or hide sources
  Ctrl+L   - Start a new conversation
  F1       - Toggle help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := requireRAG(); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		RAG:      ragService,
		Document: documentService,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
