package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"groq is valid", AIProviderGroq, true},
		{"compatible is valid", AIProviderCompatible, true},
		{"none is not a provider", AIProviderNone, false},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestEmbeddingSettings_IsConfigured tests provider configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"none", EmbeddingSettings{Provider: AIProviderNone}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"compatible without url", EmbeddingSettings{Provider: AIProviderCompatible}, false},
		{"compatible with url", EmbeddingSettings{Provider: AIProviderCompatible, BaseURL: "http://x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

// TestLLMSettings_IsConfigured tests LLM configuration checks
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderGroq}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderGroq, APIKey: "gsk"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}

// TestDefaultAppSettings tests retrieval defaults
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.Embedding.IsConfigured())
	assert.Equal(t, DefaultFallbackDimensions, s.Embedding.Dimensions)
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, 500, s.RAG.ChunkSize)
	assert.Equal(t, 10, s.RAG.OverlapWords)
	assert.Equal(t, 5, s.RAG.TopK)
	assert.Equal(t, 10, s.RAG.SearchTopK)
	assert.InDelta(t, 0.3, s.RAG.Temperature, 1e-9)
	assert.Equal(t, VectorBackendMemory, s.RAG.VectorBackend)
}

// TestRAGSettings_PipelineConfig tests derived chunker configuration
func TestRAGSettings_PipelineConfig(t *testing.T) {
	cfg := DefaultAppSettings().RAG.PipelineConfig()

	require.Equal(t, []string{"chunker"}, cfg.Processors)
	chunker := cfg.GetProcessorConfig("chunker")
	require.NotNil(t, chunker)
	assert.Equal(t, 500, chunker["chunk_size"])
	assert.Equal(t, 20, chunker["rows_per_chunk"])
	assert.Equal(t, true, chunker["statistics"])
	assert.Nil(t, cfg.GetProcessorConfig("stemmer"))
}

// TestVectorBackend_IsValid tests backend names
func TestVectorBackend_IsValid(t *testing.T) {
	assert.True(t, VectorBackendMemory.IsValid())
	assert.True(t, VectorBackendChromem.IsValid())
	assert.False(t, VectorBackend("postgres").IsValid())
}
