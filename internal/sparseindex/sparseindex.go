// Package sparseindex implements the Sparse Index (C8): an in-process
// BM25-style lexical index keyed by chunk id. No library in the example
// pack provides BM25/lexical search (the teacher's FullTextSearch interface
// in internal/persistence/databases/interfaces.go is backend-agnostic but
// ships no in-process implementation), so this is original domain-algorithm
// code, hand-rolled per DESIGN.md.
package sparseindex

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var tokenRe = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

type docEntry struct {
	chunkID string
	docID   string
	terms   map[string]int
	length  int
}

// Index is a mutex-guarded BM25 index over chunk texts.
type Index struct {
	mu         sync.RWMutex
	entries    map[string]*docEntry // chunk id -> entry
	byDoc      map[string]map[string]struct{} // doc id -> chunk ids
	df         map[string]int                 // term -> document frequency
	totalLen   int
	k1, b      float64
}

// New constructs an empty index with the standard BM25 k1/b defaults.
func New() *Index {
	return &Index{
		entries: map[string]*docEntry{},
		byDoc:   map[string]map[string]struct{}{},
		df:      map[string]int{},
		k1:      1.2,
		b:       0.75,
	}
}

// Add indexes (or re-indexes) a chunk's text under chunk id, tracked by
// doc id so RemoveByDoc can drop every chunk for a document at once.
func (ix *Index) Add(chunkID, docID, text string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.entries[chunkID]; ok {
		ix.removeLocked(old)
	}

	terms := map[string]int{}
	for _, t := range tokenize(text) {
		terms[t]++
	}
	e := &docEntry{chunkID: chunkID, docID: docID, terms: terms, length: len(tokenize(text))}
	ix.entries[chunkID] = e
	if ix.byDoc[docID] == nil {
		ix.byDoc[docID] = map[string]struct{}{}
	}
	ix.byDoc[docID][chunkID] = struct{}{}
	for term := range terms {
		ix.df[term]++
	}
	ix.totalLen += e.length
}

func (ix *Index) removeLocked(e *docEntry) {
	delete(ix.entries, e.chunkID)
	if chunks, ok := ix.byDoc[e.docID]; ok {
		delete(chunks, e.chunkID)
		if len(chunks) == 0 {
			delete(ix.byDoc, e.docID)
		}
	}
	for term := range e.terms {
		ix.df[term]--
		if ix.df[term] <= 0 {
			delete(ix.df, term)
		}
	}
	ix.totalLen -= e.length
}

// RemoveByDoc drops every chunk belonging to docID.
func (ix *Index) RemoveByDoc(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for chunkID := range ix.byDoc[docID] {
		if e, ok := ix.entries[chunkID]; ok {
			ix.removeLocked(e)
		}
	}
}

// Hit is one scored query result.
type Hit struct {
	ChunkID string
	Score   float64
}

// Query scores every indexed chunk against the query terms using BM25 and
// returns the top_k hits, descending by score.
func (ix *Index) Query(text string, topK int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	queryTerms := tokenize(text)
	if len(queryTerms) == 0 || len(ix.entries) == 0 {
		return nil
	}
	n := float64(len(ix.entries))
	avgLen := float64(ix.totalLen) / n

	scores := make(map[string]float64, len(ix.entries))
	for _, term := range queryTerms {
		df := ix.df[term]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for chunkID, e := range ix.entries {
			tf := float64(e.terms[term])
			if tf == 0 {
				continue
			}
			denom := tf + ix.k1*(1-ix.b+ix.b*float64(e.length)/avgLen)
			scores[chunkID] += idf * (tf * (ix.k1 + 1) / denom)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, Hit{ChunkID: chunkID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
