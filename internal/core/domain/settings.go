package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGroq is the Groq cloud API (OpenAI-compatible chat only).
	AIProviderGroq AIProvider = "groq"

	// AIProviderCompatible is any OpenAI-compatible endpoint (LM Studio, vLLM, ...).
	AIProviderCompatible AIProvider = "openai_compatible"

	// AIProviderNone disables the provider. Embeddings use the local hash embedder.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGroq, AIProviderCompatible:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGroq
}

// RequiresBaseURL returns true if this provider has no fixed endpoint.
func (p AIProvider) RequiresBaseURL() bool {
	return p == AIProviderCompatible
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderCompatible:
		return "OpenAI-compatible endpoint"
	case AIProviderNone:
		return "None (local hash embeddings)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible endpoints).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. The local fallback uses the same
	// size so that fallback vectors remain comparable.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	if e.Provider.RequiresBaseURL() && e.BaseURL == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible endpoints).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Groq).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	if l.Provider.RequiresBaseURL() && l.BaseURL == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps entries in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendChromem stores entries in a chromem-go collection.
	VectorBackendChromem VectorBackend = "chromem"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendMemory || b == VectorBackendChromem
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// RAGSettings holds chunking, retrieval and generation tuning.
type RAGSettings struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the character overlap used by window slicing.
	ChunkOverlap int

	// OverlapWords is the number of trailing words carried into the next chunk.
	OverlapWords int

	// RowsPerChunk is the number of table rows rendered per chunk.
	RowsPerChunk int

	// Statistics appends a summary statistics chunk to tabular documents.
	Statistics bool

	// TopK is the number of chunks retrieved to answer a question.
	TopK int

	// SearchTopK is the number of results returned by semantic search.
	SearchTopK int

	// PreviewLength bounds the source preview attached to answers.
	PreviewLength int

	// MaxContextChars bounds the prompt context built from sources.
	MaxContextChars int

	// Temperature is the sampling temperature for answer generation.
	Temperature float64

	// VectorBackend selects the vector index implementation.
	VectorBackend VectorBackend

	// PersistDir enables on-disk persistence for the chromem backend.
	PersistDir string
}

// PipelineConfig returns the post-processor pipeline matching these settings.
func (r RAGSettings) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size":     r.ChunkSize,
				"overlap":        r.ChunkOverlap,
				"overlap_words":  r.OverlapWords,
				"rows_per_chunk": r.RowsPerChunk,
				"statistics":     r.Statistics,
			},
		},
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// RAG holds retrieval settings.
	RAG RAGSettings
}

// DefaultFallbackDimensions is the vector size of the local hash embedder.
const DefaultFallbackDimensions = 384

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured: retrieval runs on local hash
// embeddings and answering requires an LLM to be set up.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderNone,
			Dimensions: DefaultFallbackDimensions,
		},
		LLM: LLMSettings{},
		RAG: RAGSettings{
			ChunkSize:       500,
			ChunkOverlap:    50,
			OverlapWords:    10,
			RowsPerChunk:    20,
			Statistics:      true,
			TopK:            DefaultQueryTopK,
			SearchTopK:      DefaultSearchTopK,
			PreviewLength:   200,
			MaxContextChars: 12000,
			Temperature:     0.3,
			VectorBackend:   VectorBackendMemory,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderNone,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderCompatible,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGroq,
		AIProviderCompatible,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGroq:      "llama-3.3-70b-versatile",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}
