// Package rerank implements the Cross-Encoder Reranker (C10): an HTTP call
// to a local pairwise scoring service, adapted from the teacher's
// internal/sefii/rerank.go ReRankChunks against a llama.cpp reranker
// endpoint, generalized to the retrieval package's Candidate shape and
// made disable-able per spec §4.10.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"docmind/internal/config"
	"docmind/internal/retrieve"
)

// Scored is a candidate with its cross-encoder relevance score attached.
type Scored struct {
	retrieve.Candidate
	RerankScore float64
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	TopN      int      `json:"top_n"`
	Documents []string `json:"documents"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Model   string         `json:"model"`
	Results []rerankResult `json:"results"`
}

// Rerank scores each candidate's text against the query via the configured
// local reranker service and re-sorts descending. When the reranker is
// disabled, the input order is preserved and RerankScore mirrors Combined
// so downstream confidence-gate thresholds still have a comparable scale.
func Rerank(ctx context.Context, cfg config.RerankerConfig, query string, candidates []retrieve.Candidate) ([]Scored, error) {
	if !cfg.Enabled || len(candidates) == 0 {
		out := make([]Scored, len(candidates))
		for i, c := range candidates {
			out[i] = Scored{Candidate: c, RerankScore: c.Combined}
		}
		return out, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}
	reqBody, err := json.Marshal(rerankRequest{Model: cfg.Model, Query: query, TopN: len(candidates), Documents: documents})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Host, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed with status %d: %s", resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scoreByIndex := make(map[int]float64, len(rr.Results))
	for _, r := range rr.Results {
		scoreByIndex[r.Index] = r.RelevanceScore
	}

	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		out[i] = Scored{Candidate: c, RerankScore: scoreByIndex[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RerankScore != out[j].RerankScore {
			return out[i].RerankScore > out[j].RerankScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out, nil
}
