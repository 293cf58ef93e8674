package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// IndexInput is the input schema for the rag_index tool.
type IndexInput struct {
	Path     string `json:"path,omitempty" jsonschema:"a file or directory to index"`
	Name     string `json:"name,omitempty" jsonschema:"document name for inline content, with an extension such as notes.md"`
	Content  string `json:"content,omitempty" jsonschema:"inline document text, used when path is empty"`
	Document string `json:"document_id,omitempty" jsonschema:"id for inline content; an existing id is replaced"`
}

// IndexOutput is the output schema for the rag_index tool.
type IndexOutput struct {
	Documents []IndexedDocument `json:"documents"`
	Indexed   int               `json:"indexed"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Chunks    int               `json:"chunks"`
	Errors    []string          `json:"errors,omitempty"`
}

// IndexedDocument is one document added by rag_index.
type IndexedDocument struct {
	DocumentID string `json:"document_id,omitempty"`
	Name       string `json:"name"`
	Chunks     int    `json:"chunks"`
	Replaced   bool   `json:"replaced"`
}

// QueryInput is the input schema for the rag_query tool.
type QueryInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from indexed documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default 5)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"only use passages from this document"`
}

// QueryOutput is the output schema for the rag_query tool.
type QueryOutput struct {
	Answer       string         `json:"answer"`
	Sources      []SourceOutput `json:"sources"`
	TokensUsed   int            `json:"tokens_used"`
	RetrievalMs  int64          `json:"retrieval_ms"`
	GenerationMs int64          `json:"generation_ms"`
}

// SourceOutput is a passage an answer was generated from.
type SourceOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchInput is the input schema for the rag_search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the text to find similar passages for"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"only search this document"`
}

// SearchOutput is the output schema for the rag_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// DeleteInput is the input schema for the rag_delete tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to delete"`
}

// DeleteOutput is the output schema for the rag_delete tool.
type DeleteOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// StatsInput is the empty input of the rag_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the rag_stats tool.
type StatsOutput struct {
	TotalDocuments       int     `json:"total_documents"`
	TotalChunks          int     `json:"total_chunks"`
	AvgChunksPerDocument float64 `json:"avg_chunks_per_document"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_index",
		Description: "Index a file, a directory, or inline text so it can be queried",
	}, s.handleIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_query",
		Description: "Answer a question from indexed documents, citing the passages used",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_search",
		Description: "Find the indexed passages most similar to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_delete",
		Description: "Delete a document and its indexed passages",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rag_stats",
		Description: "Report how many documents and passages are indexed",
	}, s.handleStats)
}

func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	switch {
	case strings.TrimSpace(input.Path) != "":
		return s.indexPath(ctx, input.Path)
	case strings.TrimSpace(input.Content) != "":
		return s.indexContent(ctx, input)
	default:
		return nil, IndexOutput{}, fmt.Errorf("path or content is required: %w", domain.ErrInvalidInput)
	}
}

func (s *Server) indexPath(ctx context.Context, path string) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IndexOutput{}, errors.New("indexing paths is not available")
	}

	src := filesystem.New(path)
	defer src.Close()

	out := IndexOutput{Documents: []IndexedDocument{}}
	report, err := s.ports.Ingest.Ingest(ctx, src, func(ev driving.IngestEvent) {
		if ev.Type == driving.IngestIndexed {
			out.Documents = append(out.Documents, IndexedDocument{
				DocumentID: ev.DocumentID,
				Name:       ev.Name,
				Chunks:     ev.Chunks,
				Replaced:   ev.Replaced,
			})
		}
	})
	if report != nil {
		out.Indexed = report.Indexed
		out.Skipped = report.Skipped
		out.Failed = report.Failed
		out.Chunks = report.Chunks
		for _, e := range report.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
	}
	return nil, out, err
}

func (s *Server) indexContent(ctx context.Context, input IndexInput) (*mcp.CallToolResult, IndexOutput, error) {
	name := input.Name
	if name == "" {
		name = "document.txt"
	}

	result, err := s.ports.Document.Upload(ctx, &domain.RawDocument{
		ID:      input.Document,
		Name:    name,
		URI:     "mcp://" + name,
		Content: []byte(input.Content),
	})
	if err != nil {
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{
		Documents: []IndexedDocument{{
			DocumentID: result.Document.ID,
			Name:       result.Document.Name,
			Chunks:     result.Chunks,
			Replaced:   result.Replaced,
		}},
		Indexed: 1,
		Chunks:  result.Chunks,
	}, nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	answer, err := s.ports.RAG.Query(ctx, input.Question, domain.QueryOptions{
		TopK:       input.TopK,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:       answer.Text,
		Sources:      make([]SourceOutput, len(answer.Sources)),
		TokensUsed:   answer.TokensUsed,
		RetrievalMs:  answer.RetrievalMs(),
		GenerationMs: answer.GenerationMs(),
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			DocumentID: src.DocumentID,
			ChunkIndex: src.ChunkIndex,
			Content:    src.Content,
			Score:      src.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchTopK
	}

	results, err := s.ports.RAG.Search(ctx, input.Query, domain.SearchOptions{
		TopK:       limit,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		entry := results[i].Entry
		source, _ := entry.Metadata["source"].(string)
		output.Results[i] = SearchResultOutput{
			DocumentID: entry.DocumentID,
			Source:     source,
			ChunkIndex: entry.ChunkIndex,
			Score:      results[i].Score,
			Content:    entry.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, DeleteOutput{}, fmt.Errorf("document_id is required: %w", domain.ErrInvalidInput)
	}

	err := s.ports.Document.Delete(ctx, input.DocumentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, DeleteOutput{DocumentID: input.DocumentID}, nil
	case err != nil:
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{DocumentID: input.DocumentID, Deleted: true}, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.RAG.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{
		TotalDocuments:       stats.TotalDocuments,
		TotalChunks:          stats.TotalChunks,
		AvgChunksPerDocument: stats.AvgChunksPerDocument,
	}, nil
}
