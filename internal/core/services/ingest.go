package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultIngestWorkers bounds concurrent uploads during Ingest.
const DefaultIngestWorkers = 4

// IngestService coordinates loading documents from a source.
type IngestService struct {
	docs    driving.DocumentService
	workers int
}

// NewIngestService creates an ingest service. workers <= 0 uses
// DefaultIngestWorkers.
func NewIngestService(docs driving.DocumentService, workers int) *IngestService {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	return &IngestService{docs: docs, workers: workers}
}

// Ingest uploads every document src walks, up to s.workers at a time.
// Unsupported and empty files are skipped rather than failed.
func (s *IngestService) Ingest(
	ctx context.Context,
	src driven.DocumentSource,
	progress func(driving.IngestEvent),
) (*driving.IngestReport, error) {
	report := &driving.IngestReport{}

	var mu sync.Mutex
	record := func(ev driving.IngestEvent) {
		mu.Lock()
		defer mu.Unlock()

		switch ev.Type {
		case driving.IngestIndexed:
			report.Indexed++
			report.Chunks += ev.Chunks
			if ev.Replaced {
				report.Replaced++
			}
		case driving.IngestSkipped:
			report.Skipped++
		case driving.IngestFailed:
			report.Failed++
			report.Errors = append(report.Errors, ev.Err)
		}
		if progress != nil {
			progress(ev)
		}
	}

	logger.Info("Ingesting %s", src.Root())
	docsCh, errsCh := src.Walk(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)

	var walkErrs []error
loop:
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			break loop

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			logger.Debug("Walk error: %v", err)
			walkErrs = append(walkErrs, err)

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			g.Go(func() error {
				record(s.upload(ctx, &raw))
				return nil
			})
		}
	}
	_ = g.Wait()

	logger.Info("Ingest complete: %d indexed, %d skipped, %d failed",
		report.Indexed, report.Skipped, report.Failed)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, errors.Join(walkErrs...)
}

// Watch applies created, updated and deleted files until ctx is cancelled
// or the source stops.
func (s *IngestService) Watch(ctx context.Context, src driven.DocumentSource, progress func(driving.IngestEvent)) error {
	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", src.Root(), err)
	}
	logger.Info("Watching %s", src.Root())

	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-changes:
			if !ok {
				return nil
			}

			var ev driving.IngestEvent
			if change.Type == domain.ChangeDeleted {
				ev = s.deleteByURI(ctx, &change.Document)
			} else {
				ev = s.upload(ctx, &change.Document)
			}
			logger.Debug("%s %s: %s", change.Type, change.Document.URI, ev.Type)
			if progress != nil {
				progress(ev)
			}
		}
	}
}

func (s *IngestService) upload(ctx context.Context, raw *domain.RawDocument) driving.IngestEvent {
	ev := driving.IngestEvent{DocumentID: raw.ID, Name: raw.Name, URI: raw.URI}

	res, err := s.docs.Upload(ctx, raw)
	switch {
	case errors.Is(err, domain.ErrUnsupportedType), errors.Is(err, domain.ErrEmptyDocument):
		logger.Debug("Skipping %s: %v", raw.URI, err)
		ev.Type = driving.IngestSkipped
		ev.Err = err
	case err != nil:
		logger.Warn("Failed to index %s: %v", raw.URI, err)
		ev.Type = driving.IngestFailed
		ev.Err = fmt.Errorf("%s: %w", raw.URI, err)
	default:
		ev.Type = driving.IngestIndexed
		ev.DocumentID = res.Document.ID
		ev.Chunks = res.Chunks
		ev.Replaced = res.Replaced
	}
	return ev
}

// deleteByURI removes the stored document read from raw's location.
// A file that was never indexed is reported as skipped.
func (s *IngestService) deleteByURI(ctx context.Context, raw *domain.RawDocument) driving.IngestEvent {
	ev := driving.IngestEvent{Type: driving.IngestDeleted, Name: raw.Name, URI: raw.URI}

	docs, err := s.docs.List(ctx)
	if err != nil {
		ev.Type = driving.IngestFailed
		ev.Err = fmt.Errorf("list documents: %w", err)
		return ev
	}

	for i := range docs {
		if docs[i].URI != raw.URI && (raw.ID == "" || docs[i].ID != raw.ID) {
			continue
		}
		ev.DocumentID = docs[i].ID
		if err := s.docs.Delete(ctx, docs[i].ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			ev.Type = driving.IngestFailed
			ev.Err = fmt.Errorf("%s: %w", raw.URI, err)
		}
		return ev
	}

	ev.Type = driving.IngestSkipped
	return ev
}
