package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// IngestService feeds documents from a source into the DocumentService.
type IngestService interface {
	// Ingest uploads every document the source walks. Per-document
	// failures are collected in the report; the returned error carries
	// errors reported by the walk and context cancellation.
	Ingest(ctx context.Context, src driven.DocumentSource, progress func(IngestEvent)) (*IngestReport, error)

	// Watch applies source changes until ctx is cancelled.
	Watch(ctx context.Context, src driven.DocumentSource, progress func(IngestEvent)) error
}

// IngestEventType is the outcome for one document.
type IngestEventType string

// Ingest outcomes.
const (
	IngestIndexed IngestEventType = "indexed"
	IngestSkipped IngestEventType = "skipped"
	IngestFailed  IngestEventType = "failed"
	IngestDeleted IngestEventType = "deleted"
)

// IngestEvent reports progress on a single document.
type IngestEvent struct {
	Type       IngestEventType
	DocumentID string
	Name       string
	URI        string
	Chunks     int
	Replaced   bool
	Err        error
}

// IngestReport summarises an Ingest run.
type IngestReport struct {
	Indexed  int
	Replaced int
	Skipped  int
	Failed   int
	Chunks   int
	Errors   []error
}
