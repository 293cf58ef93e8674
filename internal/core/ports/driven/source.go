package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentSource produces raw documents from a location such as a
// directory tree.
type DocumentSource interface {
	// Root returns the location being read.
	Root() string

	// Walk emits every document under the root. Both channels are closed
	// when the walk ends.
	Walk(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch emits changes until ctx is cancelled or the source is closed.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases watchers. It is safe to call more than once.
	Close() error
}
