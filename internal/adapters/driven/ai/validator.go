package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings before they are saved: the
// embedding size must fit the model, and the provider must answer a ping.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithValidationTimeout bounds each provider ping.
func WithValidationTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a validator. Pings time out after pingTimeout
// unless overridden.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding rejects a vector size the model cannot produce, then
// pings the provider. Unconfigured settings are valid: retrieval runs on
// local hash embeddings.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	if err := checkDimensions(settings); err != nil {
		return err
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return nil
}

// ValidateLLM pings the answer generator. Unconfigured settings are valid;
// questions then fail with domain.ErrLLMUnavailable.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrLLMUnavailable, settings.Provider, err)
	}
	return nil
}

func (v *ConfigValidator) ping(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return fn(ctx)
}

// checkDimensions compares the configured size with the model's native
// size. Ollama models always return their native size; OpenAI models can
// shorten vectors but never lengthen them.
func checkDimensions(settings *domain.EmbeddingSettings) error {
	native, ok := domain.EmbeddingDimensions()[settings.Model]
	if !ok || settings.Dimensions <= 0 {
		return nil
	}

	mismatch := settings.Dimensions > native
	if settings.Provider == domain.AIProviderOllama {
		mismatch = settings.Dimensions != native
	}
	if mismatch {
		return fmt.Errorf("%w: %s produces %d-dimensional vectors, embedding.dimensions is %d",
			domain.ErrInvalidInput, settings.Model, native, settings.Dimensions)
	}
	return nil
}
