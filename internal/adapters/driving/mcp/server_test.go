package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.Error(t, err)
		assert.Nil(t, server)
	})

	t.Run("missing RAG service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Document: &mockDocumentService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRAGService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{
			RAG:      &mockRAGService{},
			Document: &mockDocumentService{},
		})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRAGService)
	})

	t.Run("document service required", func(t *testing.T) {
		ports := &Ports{RAG: &mockRAGService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingDocumentService)
	})

	t.Run("ingest is optional", func(t *testing.T) {
		ports := &Ports{RAG: &mockRAGService{}, Document: &mockDocumentService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			RAG:      &mockRAGService{},
			Document: &mockDocumentService{},
			Ingest:   &mockIngestService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
