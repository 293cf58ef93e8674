// Package tui provides an interactive terminal chat for docchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI calls.
type Ports struct {
	// RAG answers questions.
	RAG driving.RAGService

	// Document lists and deletes documents. Optional: without it the
	// documents view shows an error.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.RAG == nil {
		return ErrMissingRAGService
	}
	return nil
}
