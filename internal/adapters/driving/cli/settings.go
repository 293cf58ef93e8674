package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers and retrieval tuning.

Settings are stored in config.toml under the docchat home directory.
Use "settings set <key> <value>" for a single value or the embedding and
llm subcommands to configure a provider interactively.`,
	Annotations: map[string]string{annotationLevel: "settings"},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting by its config key, for example:

  docchat settings set rag.top_k 8
  docchat settings set llm.provider groq

Run "docchat settings keys" to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the provider used to embed document chunks and questions.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the language model used to answer questions.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := cmd.OutOrStdout()
	headingColor.Fprintln(out, "Current Settings")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Embedding]")
	fmt.Fprintf(out, "  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Model != "" {
		fmt.Fprintf(out, "  Model: %s\n", settings.Embedding.Model)
	}
	fmt.Fprintf(out, "  Dimensions: %d\n", settings.Embedding.Dimensions)
	printEndpoint(out, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	printStatus(out, settings.Embedding.IsConfigured() || settings.Embedding.Provider == domain.AIProviderNone)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[LLM]")
	fmt.Fprintf(out, "  Provider: %s\n", settings.LLM.Provider.Description())
	if settings.LLM.Model != "" {
		fmt.Fprintf(out, "  Model: %s\n", settings.LLM.Model)
	}
	printEndpoint(out, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	printStatus(out, settings.LLM.IsConfigured())
	fmt.Fprintln(out)

	rag := settings.RAG
	fmt.Fprintln(out, "[RAG]")
	fmt.Fprintf(out, "  Chunk size: %d (overlap %d chars, %d words)\n", rag.ChunkSize, rag.ChunkOverlap, rag.OverlapWords)
	fmt.Fprintf(out, "  Rows per chunk: %d (statistics %t)\n", rag.RowsPerChunk, rag.Statistics)
	fmt.Fprintf(out, "  Top K: %d (search %d)\n", rag.TopK, rag.SearchTopK)
	fmt.Fprintf(out, "  Context: %d chars, preview %d\n", rag.MaxContextChars, rag.PreviewLength)
	fmt.Fprintf(out, "  Temperature: %.2f\n", rag.Temperature)
	fmt.Fprintf(out, "  Vector backend: %s\n", rag.VectorBackend)
	if rag.PersistDir != "" {
		fmt.Fprintf(out, "  Persist dir: %s\n", rag.PersistDir)
	}
	fmt.Fprintln(out)

	if err := settingsService.Validate(); err != nil {
		warnColor.Fprintf(out, "Warning: %v\n", err)
		fmt.Fprintln(out, "Run 'docchat settings llm' or 'docchat settings embedding' to fix configuration issues.")
	} else {
		successColor.Fprintln(out, "Configuration is valid.")
	}
	return nil
}

func printEndpoint(w io.Writer, p domain.AIProvider, baseURL, apiKey string) {
	if p.IsLocal() || p.RequiresBaseURL() {
		fmt.Fprintf(w, "  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			fmt.Fprintf(w, "  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			fmt.Fprintln(w, "  API Key: (not set)")
		}
	}
}

func printStatus(w io.Writer, ok bool) {
	if ok {
		fmt.Fprintln(w, "  Status: configured")
		return
	}
	fmt.Fprintln(w, "  Status: not configured")
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	value := args[1]
	if strings.Contains(args[0], "api_key") {
		value = maskAPIKey(value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", strings.ToLower(strings.TrimSpace(args[0])), value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	keyed, ok := settingsService.(interface{ Keys() []string })
	if !ok {
		return errors.New("settings service does not list keys")
	}
	for _, k := range keyed.Keys() {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

//nolint:dupl // mirrors configureLLMProvider
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	if selected == domain.AIProviderNone {
		if err := settingsService.SetEmbeddingProvider(selected, "", ""); err != nil {
			return fmt.Errorf("failed to configure embedding provider: %w", err)
		}
		cmd.Println("Embeddings will use the local hash embedder.")
		return nil
	}

	model := promptModel(cmd, reader, domain.DefaultEmbeddingModels()[selected])
	apiKey, err := promptAPIKey(cmd, reader, selected)
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	cmd.Println("Run 'docchat reset' and re-index if the vector size changed.")
	return nil
}

//nolint:dupl // mirrors configureEmbeddingProvider
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	model := promptModel(cmd, reader, domain.DefaultLLMModels()[selected])
	apiKey, err := promptAPIKey(cmd, reader, selected)
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

func promptModel(cmd *cobra.Command, reader *bufio.Reader, defaultModel string) string {
	if defaultModel != "" {
		cmd.Printf("Enter model name [%s]: ", defaultModel)
	} else {
		cmd.Print("Enter model name: ")
	}
	if model := readLine(reader); model != "" {
		return model
	}
	return defaultModel
}

// promptAPIKey asks for a key when the provider needs one. An empty answer
// is accepted when the key is available from the environment.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, p domain.AIProvider) (string, error) {
	if !p.RequiresAPIKey() {
		return "", nil
	}
	env := strings.ToUpper(p.String()) + "_API_KEY"
	cmd.Printf("Enter API key (blank to use $%s): ", env)
	key := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if key == "" && os.Getenv(env) == "" {
		return "", errors.New("API key is required for this provider")
	}
	return key, nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal and falls back to a
// plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if password, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
