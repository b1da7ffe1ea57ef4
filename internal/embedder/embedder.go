// Package embedder implements the embedding half of C7: it batches chunk
// texts to the configured embedding endpoint with bounded retry, grounded
// on the teacher's internal/embedding/client.go HTTP client and
// internal/rag/embedder's clientEmbedder wrapper.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"docmind/internal/config"
)

// Embedder converts texts to dense vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

type httpEmbedder struct {
	cfg        config.EmbeddingConfig
	maxRetries int
}

// New constructs the HTTP-backed embedder used against the configured
// embedding endpoint (OpenAI-compatible /v1/embeddings shape).
func New(cfg config.EmbeddingConfig) Embedder {
	return &httpEmbedder{cfg: cfg, maxRetries: 4}
}

func (e *httpEmbedder) Name() string   { return e.cfg.Model }
func (e *httpEmbedder) Dimension() int { return e.cfg.Dimension }

// EmbedBatch submits every text in one request, retrying transient
// failures with capped exponential backoff (spec §4.7: "transient errors
// retried with exponential backoff (capped)").
func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(float64(2<<uint(attempt)), 30)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		vecs, err := e.call(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *httpEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	body, _ := json.Marshal(embedReq{Model: e.cfg.Model, Input: texts})
	timeout := e.cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, e.cfg.BaseURL+e.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if e.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	} else if e.cfg.APIHeader != "" {
		req.Header.Set(e.cfg.APIHeader, e.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding endpoint error: %s: %s", resp.Status, string(raw))
	}
	var er embedResp
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected embedding count: got %d want %d", len(er.Data), len(texts))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}
