// Package retrieve implements the Hybrid Retriever (C9): dense + sparse
// candidate fusion followed by MMR diversification. The branch-fetch and
// candidate-union shape is grounded on the teacher's
// internal/rag/retrieve/fusion.go (deterministic tie-breaking, union-of-ids
// assembly), but the fusion math itself is new per spec §4.9: min-max
// per-branch normalization feeding an alpha-weighted combined score, and
// genuine MMR greedy selection rather than the teacher's RRF +
// multiplicative-penalty Diversify.
package retrieve

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"docmind/internal/sparseindex"
	"docmind/internal/vectorstore"
)

// Candidate is one retrieval hit after dense/sparse fusion, before rerank.
type Candidate struct {
	ChunkID      string
	DocID        string
	SectionPath  string
	Text         string
	Metadata     map[string]string
	DenseScore   float64 // normalized [0,1], 0 if not present in dense branch
	SparseScore  float64 // normalized [0,1], 0 if not present in sparse branch
	Combined     float64
	Embedding    []float32 // present only for dense-branch hits
	DocTimestamp time.Time
	Ordinal      int
}

// Options tunes the retrieval run (§4.9, §6 defaults).
type Options struct {
	TopK      int
	Alpha     float64 // dense/sparse mix weight, default 0.6
	MMRLambda float64 // default 0.5
	Filters   map[string]string
}

// DenseSearcher abstracts the vector store so callers (and tests) can stub
// it without a live qdrant connection.
type DenseSearcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string, withVectors bool) ([]vectorstore.Result, error)
}

// SparseSearcher abstracts the BM25 index.
type SparseSearcher interface {
	Query(text string, topK int) []sparseindex.Hit
}

// ChunkLookup resolves a chunk id to the fields fusion needs that the
// search backends don't already carry (text, section path, doc timestamp).
type ChunkLookup func(chunkID string) (text, sectionPath, docID string, docTimestamp time.Time, ordinal int, ok bool)

// Retrieve runs steps 2-4 of spec §4.9: parallel dense+sparse fetch,
// min-max normalization and alpha fusion, then MMR diversification. HyDE
// query-vector averaging (step 1) is the caller's responsibility since it
// needs the LLM Router and embedder; this function receives the already
// final query vector and text.
func Retrieve(ctx context.Context, dense DenseSearcher, sparse SparseSearcher, lookup ChunkLookup, queryVector []float32, queryText string, opt Options) ([]Candidate, error) {
	if opt.TopK <= 0 {
		opt.TopK = 8
	}
	if opt.Alpha == 0 {
		opt.Alpha = 0.6
	}
	if opt.MMRLambda == 0 {
		opt.MMRLambda = 0.5
	}
	n := opt.TopK * 4

	var (
		denseHits  []vectorstore.Result
		sparseHits []sparseindex.Hit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := dense.SimilaritySearch(gctx, queryVector, n, opt.Filters, true)
		denseHits = hits
		return err
	})
	g.Go(func() error {
		sparseHits = sparse.Query(queryText, n)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := fuse(denseHits, sparseHits, lookup, opt.Alpha)
	return mmrSelect(candidates, opt.TopK, opt.MMRLambda), nil
}

func fuse(dense []vectorstore.Result, sparse []sparseindex.Hit, lookup ChunkLookup, alpha float64) []Candidate {
	byID := map[string]*Candidate{}
	order := []string{}

	get := func(id string) *Candidate {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &Candidate{ChunkID: id}
		if lookup != nil {
			if text, section, docID, ts, ordinal, ok := lookup(id); ok {
				c.Text, c.SectionPath, c.DocID, c.DocTimestamp, c.Ordinal = text, section, docID, ts, ordinal
			}
		}
		byID[id] = c
		order = append(order, id)
		return c
	}

	for _, r := range dense {
		c := get(r.ID)
		c.DenseScore = r.Score
		c.Embedding = r.Vector
		c.Metadata = r.Metadata
		if c.DocID == "" {
			c.DocID = r.Metadata["doc_id"]
		}
	}
	for _, h := range sparse {
		c := get(h.ChunkID)
		c.SparseScore = h.Score
	}

	denseNorm := minMaxNormalize(extractDense(dense))
	sparseNorm := minMaxNormalize(extractSparse(sparse))
	for i, r := range dense {
		byID[r.ID].DenseScore = denseNorm[i]
	}
	for i, h := range sparse {
		byID[h.ChunkID].SparseScore = sparseNorm[i]
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Combined = alpha*c.DenseScore + (1-alpha)*c.SparseScore
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Combined != out[j].Combined {
			return out[i].Combined > out[j].Combined
		}
		return tieBreak(out[i], out[j])
	})
	return out
}

// tieBreak implements §4.9's ordering: more recent timestamp, then lower
// ordinal, then lexicographic chunk id.
func tieBreak(a, b Candidate) bool {
	if !a.DocTimestamp.Equal(b.DocTimestamp) {
		return a.DocTimestamp.After(b.DocTimestamp)
	}
	if a.Ordinal != b.Ordinal {
		return a.Ordinal < b.Ordinal
	}
	return a.ChunkID < b.ChunkID
}

func extractDense(hits []vectorstore.Result) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Score
	}
	return out
}

func extractSparse(hits []sparseindex.Hit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Score
	}
	return out
}

func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range scores {
			out[i] = 1
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// mmrSelect greedily picks topK candidates maximizing
// lambda*combined_score - (1-lambda)*max_sim_to_selected. Candidates
// without an embedding (sparse-only hits) cannot be compared for
// similarity and are deferred to the tail, per spec §4.9 step 4.
func mmrSelect(candidates []Candidate, topK int, lambda float64) []Candidate {
	withEmb := make([]Candidate, 0, len(candidates))
	withoutEmb := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) > 0 {
			withEmb = append(withEmb, c)
		} else {
			withoutEmb = append(withoutEmb, c)
		}
	}

	selected := make([]Candidate, 0, topK)
	used := make([]bool, len(withEmb))
	for len(selected) < topK && len(selected) < len(withEmb) {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, c := range withEmb {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				if len(s.Embedding) == 0 {
					continue
				}
				if sim := cosineSimilarity(c.Embedding, s.Embedding); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.Combined - (1-lambda)*maxSim
			if score > bestScore || (score == bestScore && bestIdx >= 0 && c.ChunkID < withEmb[bestIdx].ChunkID) {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected = append(selected, withEmb[bestIdx])
		used[bestIdx] = true
	}

	for _, c := range withoutEmb {
		if len(selected) >= topK {
			break
		}
		selected = append(selected, c)
	}
	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
