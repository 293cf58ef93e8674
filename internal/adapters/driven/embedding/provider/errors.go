package provider

import (
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var errShape = fmt.Errorf("unexpected embedding shape: %w", domain.ErrEmbeddingUnavailable)
