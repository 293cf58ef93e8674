package mcp

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// RAG answers questions and searches the index.
	RAG driving.RAGService

	// Document stores and deletes documents.
	Document driving.DocumentService

	// Ingest indexes files and directories. Optional: without it rag_index
	// accepts inline content only.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.RAG == nil {
		return ErrMissingRAGService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
