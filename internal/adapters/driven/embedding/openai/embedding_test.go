package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected int
	}{
		{"native size", Config{APIKey: "k"}, 1536},
		{"shortened", Config{APIKey: "k", Dimensions: 384}, 384},
		{"ada ignores override", Config{APIKey: "k", Model: "text-embedding-ada-002", Dimensions: 384}, 1536},
		{"large", Config{APIKey: "k", Model: "text-embedding-3-large"}, 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, svc.Dimensions())
		})
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "secret", BaseURL: srv.URL + "/", Dimensions: 2})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(t.Context(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, 2, got.Dimensions)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestEmbed_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "text")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "text")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, svc.Ping(t.Context()))
	assert.NoError(t, svc.Close())
}
