package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// uriScheme is the URI scheme for docchat resources.
const uriScheme = "docchat://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all indexed documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Indexed chunks of a specific document, in order",
		MIMEType:    "application/json",
	}, s.handleChunksResource)
}

type documentInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	URI       string    `json:"uri,omitempty"`
	MIMEType  string    `json:"mime_type,omitempty"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type chunkInfo struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// handleDocumentsResource returns every stored document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(docs))
	for i := range docs {
		infos[i] = documentInfo{
			ID:        docs[i].ID,
			Name:      docs[i].Name,
			Kind:      docs[i].Kind.String(),
			URI:       docs[i].URI,
			MIMEType:  docs[i].MIMEType,
			Size:      docs[i].Size,
			UpdatedAt: docs[i].UpdatedAt,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleChunksResource returns the chunks of one document.
func (s *Server) handleChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	if _, err := s.ports.Document.Get(ctx, docID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}

	entries, err := s.ports.RAG.ChunksForDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}

	chunks := make([]chunkInfo, len(entries))
	for i, e := range entries {
		chunks[i] = chunkInfo{Index: e.ChunkIndex, Content: e.Content}
	}
	return jsonResource(req.Params.URI, chunks)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like
// docchat://documents/{documentId}/chunks.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/chunks"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
