// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants index documents, ask questions and search the index.
package mcp

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: RAG service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
