package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyChunkSize       = "rag.chunk_size"
	keyChunkOverlap    = "rag.chunk_overlap"
	keyOverlapWords    = "rag.overlap_words"
	keyRowsPerChunk    = "rag.rows_per_chunk"
	keyStatistics      = "rag.statistics"
	keyTopK            = "rag.top_k"
	keySearchTopK      = "rag.search_top_k"
	keyPreviewLength   = "rag.preview_length"
	keyMaxContextChars = "rag.max_context_chars"
	keyTemperature     = "rag.temperature"
	keyVectorBackend   = "rag.vector_backend"
	keyPersistDir      = "rag.persist_dir"
)

// providerKeyEnv names the environment variable holding each provider's
// API key, in the order they are tried when no LLM provider is configured.
var providerKeyEnv = []struct {
	provider domain.AIProvider
	env      string
}{
	{domain.AIProviderGroq, "GROQ_API_KEY"},
	{domain.AIProviderOpenAI, "OPENAI_API_KEY"},
	{domain.AIProviderAnthropic, "ANTHROPIC_API_KEY"},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Missing API keys are taken
// from the provider's environment variable, and when no LLM provider is
// configured the first provider with a key in the environment is used.
// Environment values are never written back by Save.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		RAG: domain.RAGSettings{
			ChunkSize:       s.getInt(keyChunkSize, defaults.RAG.ChunkSize),
			ChunkOverlap:    s.getInt(keyChunkOverlap, defaults.RAG.ChunkOverlap),
			OverlapWords:    s.getInt(keyOverlapWords, defaults.RAG.OverlapWords),
			RowsPerChunk:    s.getInt(keyRowsPerChunk, defaults.RAG.RowsPerChunk),
			Statistics:      s.getBool(keyStatistics, defaults.RAG.Statistics),
			TopK:            s.getInt(keyTopK, defaults.RAG.TopK),
			SearchTopK:      s.getInt(keySearchTopK, defaults.RAG.SearchTopK),
			PreviewLength:   s.getInt(keyPreviewLength, defaults.RAG.PreviewLength),
			MaxContextChars: s.getInt(keyMaxContextChars, defaults.RAG.MaxContextChars),
			Temperature:     s.getFloat(keyTemperature, defaults.RAG.Temperature),
			VectorBackend:   s.getVectorBackend(defaults.RAG.VectorBackend),
			PersistDir:      s.configStore.GetString(keyPersistDir),
		},
	}

	if settings.LLM.Provider == "" {
		for _, p := range providerKeyEnv {
			if s.getenv(p.env) != "" {
				settings.LLM.Provider = p.provider
				break
			}
		}
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}

	return settings, nil
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	for _, p := range providerKeyEnv {
		if p.provider == provider {
			return s.getenv(p.env)
		}
	}
	return ""
}

type setting struct {
	key   string
	value any
}

// Save persists application settings. API keys are only written when set
// and different from the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkSize, settings.RAG.ChunkSize},
		{keyChunkOverlap, settings.RAG.ChunkOverlap},
		{keyOverlapWords, settings.RAG.OverlapWords},
		{keyRowsPerChunk, settings.RAG.RowsPerChunk},
		{keyStatistics, settings.RAG.Statistics},
		{keyTopK, settings.RAG.TopK},
		{keySearchTopK, settings.RAG.SearchTopK},
		{keyPreviewLength, settings.RAG.PreviewLength},
		{keyMaxContextChars, settings.RAG.MaxContextChars},
		{keyTemperature, settings.RAG.Temperature},
		{keyVectorBackend, settings.RAG.VectorBackend.String()},
		{keyPersistDir, settings.RAG.PersistDir},
	}
	if k := settings.Embedding.APIKey; k != "" && k != s.envKey(settings.Embedding.Provider) {
		values = append(values, setting{keyEmbedAPIKey, k})
	}
	if k := settings.LLM.APIKey; k != "" && k != s.envKey(settings.LLM.Provider) {
		values = append(values, setting{keyLLMAPIKey, k})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Keys returns every settable config key, sorted.
func (s *SettingsService) Keys() []string {
	keys := []string{
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedDims,
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyChunkSize, keyChunkOverlap, keyOverlapWords, keyRowsPerChunk, keyStatistics,
		keyTopK, keySearchTopK, keyPreviewLength, keyMaxContextChars, keyTemperature,
		keyVectorBackend, keyPersistDir,
	}
	slices.Sort(keys)
	return keys
}

// Set parses value for key and stores it. Numeric keys must be positive,
// except rag.chunk_overlap which may be zero; rag.temperature must lie in
// [0, 2].
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	var parsed any
	switch key {
	case keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyLLMModel, keyLLMBaseURL, keyLLMAPIKey, keyPersistDir:
		parsed = value

	case keyEmbedProvider:
		if !slices.Contains(domain.AllEmbeddingProviders(), domain.AIProvider(value)) {
			return fmt.Errorf("%s: %q does not support embeddings: %w", key, value, domain.ErrInvalidInput)
		}
		parsed = value

	case keyLLMProvider:
		if !slices.Contains(domain.AllLLMProviders(), domain.AIProvider(value)) {
			return fmt.Errorf("%s: unknown provider %q: %w", key, value, domain.ErrInvalidInput)
		}
		parsed = value

	case keyVectorBackend:
		if !domain.VectorBackend(value).IsValid() {
			return fmt.Errorf("%s: unknown backend %q: %w", key, value, domain.ErrInvalidInput)
		}
		parsed = value

	case keyStatistics:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean: %w", key, value, domain.ErrInvalidInput)
		}
		parsed = b

	case keyTemperature:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("%s: %q must be a number between 0 and 2: %w", key, value, domain.ErrInvalidInput)
		}
		parsed = f

	case keyEmbedDims, keyChunkSize, keyChunkOverlap, keyOverlapWords, keyRowsPerChunk,
		keyTopK, keySearchTopK, keyPreviewLength, keyMaxContextChars:
		n, err := strconv.Atoi(value)
		minimum := 1
		if key == keyChunkOverlap {
			minimum = 0
		}
		if err != nil || n < minimum {
			return fmt.Errorf("%s: %q must be an integer >= %d: %w", key, value, minimum, domain.ErrInvalidInput)
		}
		parsed = n

	default:
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings: %w", provider, domain.ErrInvalidInput)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	switch {
	case provider.IsLocal():
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	case !provider.RequiresBaseURL():
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	} else if provider == domain.AIProviderNone {
		settings.Embedding.Dimensions = domain.DefaultFallbackDimensions
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s: %w", provider, domain.ErrInvalidInput)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	switch {
	case provider.IsLocal():
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	case !provider.RequiresBaseURL():
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are usable. An unconfigured
// LLM is valid: retrieval works without one.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if p := settings.Embedding.Provider; p != domain.AIProviderNone && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %s is not fully configured: %w", p, domain.ErrInvalidInput)
	}
	if p := settings.LLM.Provider; p != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %s is not fully configured: %w", p, domain.ErrInvalidInput)
	}

	rag := settings.RAG
	if rag.ChunkOverlap >= rag.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d): %w",
			rag.ChunkOverlap, rag.ChunkSize, domain.ErrInvalidInput)
	}
	if !rag.VectorBackend.IsValid() {
		return fmt.Errorf("unknown vector backend %q: %w", rag.VectorBackend, domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := domain.AIProvider(s.configStore.GetString(key))
	if val == domain.AIProviderNone || val.IsValid() {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getVectorBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !val.IsValid() {
		return defaultVal
	}
	return val
}
