// Package cli implements the docchat command line.
package cli

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set by SetVersion from build information.
var version = "dev"

// Level selects how much of the application a command needs.
type Level int

const (
	// LevelNone builds nothing.
	LevelNone Level = iota

	// LevelSettings builds the settings service only.
	LevelSettings

	// LevelFull builds every service and restores the index.
	LevelFull
)

// annotationLevel marks commands needing less than LevelFull.
const annotationLevel = "docchat.level"

// Services are the driving ports the commands call.
type Services struct {
	RAG      driving.RAGService
	Document driving.DocumentService
	Ingest   driving.IngestService
	Settings driving.SettingsService

	// Close releases resources. It may be nil.
	Close func() error
}

// Bootstrap builds services for a config home.
type Bootstrap func(ctx context.Context, home string, level Level) (*Services, error)

var (
	ragService      driving.RAGService
	documentService driving.DocumentService
	ingestService   driving.IngestService
	settingsService driving.SettingsService
	closeServices   func() error

	bootstrap Bootstrap

	verbose bool
	noColor bool
	home    string
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Ask questions about your documents",
	Long: `docchat indexes local documents (text, Markdown, HTML, PDF, DOCX, CSV, XLSX)
and answers questions about them with a language model, citing the passages
it used.

Documents are kept in a local database under ~/.docchat and re-indexed when
docchat starts.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().StringVar(&home, "home", "", "config and data directory (default $DOCCHAT_HOME or ~/.docchat)")
}

// SetServices installs services directly, bypassing Bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ragService = s.RAG
	documentService = s.Document
	ingestService = s.Ingest
	settingsService = s.Settings
	closeServices = s.Close
}

// SetBootstrap registers the function used to build services once flags
// are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("close: %v", err)
			}
			closeServices = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if noColor {
		color.NoColor = true
	}

	if bootstrap == nil {
		return nil
	}
	level := commandLevel(cmd)
	if level == LevelNone {
		return nil
	}

	s, err := bootstrap(cmd.Context(), home, level)
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

func commandLevel(cmd *cobra.Command) Level {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Annotations[annotationLevel] {
		case "none":
			return LevelNone
		case "settings":
			return LevelSettings
		}
	}
	return LevelFull
}

func requireRAG() error {
	if ragService == nil {
		return errors.New("RAG service not configured")
	}
	return nil
}

func requireDocuments() error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	return nil
}
