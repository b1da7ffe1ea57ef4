package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/config"
	"docmind/internal/retrieve"
)

func TestRerank_DisabledPreservesOrderAndMirrorsCombined(t *testing.T) {
	t.Parallel()
	candidates := []retrieve.Candidate{
		{ChunkID: "a", Combined: 0.2},
		{ChunkID: "b", Combined: 0.9},
	}
	out, err := Rerank(context.Background(), config.RerankerConfig{Enabled: false}, "query", candidates)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ChunkID)
	assert.Equal(t, 0.2, out[0].RerankScore)
	assert.Equal(t, "b", out[1].ChunkID)
	assert.Equal(t, 0.9, out[1].RerankScore)
}

func TestRerank_EmptyCandidatesShortCircuits(t *testing.T) {
	t.Parallel()
	out, err := Rerank(context.Background(), config.RerankerConfig{Enabled: true, Host: "http://unused"}, "query", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRerank_EnabledCallsServiceAndResorts(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"low relevance text", "high relevance text"}, req.Documents)

		resp := rerankResponse{
			Model: req.Model,
			Results: []rerankResult{
				{Index: 0, RelevanceScore: 0.1},
				{Index: 1, RelevanceScore: 0.9},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	candidates := []retrieve.Candidate{
		{ChunkID: "low", Text: "low relevance text"},
		{ChunkID: "high", Text: "high relevance text"},
	}
	out, err := Rerank(context.Background(), config.RerankerConfig{Enabled: true, Host: srv.URL, Model: "reranker-v1"}, "query", candidates)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ChunkID)
	assert.Equal(t, 0.9, out[0].RerankScore)
	assert.Equal(t, "low", out[1].ChunkID)
}

func TestRerank_NonOKStatusReturnsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	candidates := []retrieve.Candidate{{ChunkID: "a", Text: "text"}}
	_, err := Rerank(context.Background(), config.RerankerConfig{Enabled: true, Host: srv.URL}, "query", candidates)
	assert.Error(t, err)
}
