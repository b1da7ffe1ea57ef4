// Package dedup implements the Deduplicator (C2): exact-hash rejection plus
// a SimHash-style near-duplicate fingerprint, grounded on
// internal/documents/simhash.go's Hamming-distance helper.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math/bits"
	"regexp"
	"strings"
	"sync"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText trims and collapses whitespace, the normalization the spec
// requires before hashing (§4.2).
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// ContentHash returns the lowercase hex SHA-256 of the normalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// SimHash computes a 64-bit fingerprint over word shingles of the
// normalized text. Shingle size 3 balances sensitivity against cost the way
// the teacher's boundary detectors shingle at the line/token level.
func SimHash(text string, shingleSize int) uint64 {
	if shingleSize <= 0 {
		shingleSize = 3
	}
	words := strings.Fields(NormalizeText(strings.ToLower(text)))
	if len(words) == 0 {
		return 0
	}
	var weights [64]int
	addShingle := func(s string) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s))
		v := h.Sum64()
		for i := 0; i < 64; i++ {
			if v&(1<<uint(i)) != 0 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}
	if len(words) < shingleSize {
		addShingle(strings.Join(words, " "))
	} else {
		for i := 0; i+shingleSize <= len(words); i++ {
			addShingle(strings.Join(words[i:i+shingleSize], " "))
		}
	}
	var out uint64
	for i := 0; i < 64; i++ {
		if weights[i] > 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// HammingDistance returns the number of differing bits between two
// fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Record is what the Deduplicator remembers about each previously-ingested
// document for exact and near-duplicate checks.
type Record struct {
	DocID       string
	ContentHash string
	SimHash     uint64
}

// Index is an in-process, mutex-guarded check-and-insert structure. Two
// identical documents submitted concurrently are guaranteed to yield
// exactly one winner: Insert is atomic under the mutex (spec §5).
type Index struct {
	mu          sync.Mutex
	byHash      map[string]string // content hash -> doc id
	records     []Record
	hammingThreshold int
}

func NewIndex(hammingThreshold int) *Index {
	if hammingThreshold <= 0 {
		hammingThreshold = 3
	}
	return &Index{byHash: map[string]string{}, hammingThreshold: hammingThreshold}
}

// Outcome reports the result of a dedup check.
type Outcome struct {
	Exact        bool
	Near         bool
	ConflictWith string
}

// Check reports whether text collides with an already-indexed document,
// without inserting. Used by callers that want to decide before committing.
func (ix *Index) Check(text string) Outcome {
	hash := ContentHash(text)
	sh := SimHash(text, 3)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.checkLocked(hash, sh)
}

func (ix *Index) checkLocked(hash string, sh uint64) Outcome {
	if id, ok := ix.byHash[hash]; ok {
		return Outcome{Exact: true, ConflictWith: id}
	}
	for _, r := range ix.records {
		if HammingDistance(r.SimHash, sh) <= ix.hammingThreshold {
			return Outcome{Near: true, ConflictWith: r.DocID}
		}
	}
	return Outcome{}
}

// CheckAndInsert performs the check and, when there is no exact collision
// (or override is set), atomically inserts the new record. This is the
// single mutex-guarded choke point that guarantees "two identical documents
// submitted simultaneously yield exactly one indexed document" (spec §5).
func (ix *Index) CheckAndInsert(docID, text string, overrideNearDup bool) Outcome {
	hash := ContentHash(text)
	sh := SimHash(text, 3)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := ix.checkLocked(hash, sh)
	if out.Exact {
		return out
	}
	if out.Near && !overrideNearDup {
		return out
	}
	ix.byHash[hash] = docID
	ix.records = append(ix.records, Record{DocID: docID, ContentHash: hash, SimHash: sh})
	if out.Near {
		// Overridden: report the near-dup advisory but the insert proceeded.
		return out
	}
	return Outcome{}
}

// Remove drops a document's records, e.g. on cancellation rollback.
func (ix *Index) Remove(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for hash, id := range ix.byHash {
		if id == docID {
			delete(ix.byHash, hash)
		}
	}
	kept := ix.records[:0]
	for _, r := range ix.records {
		if r.DocID != docID {
			kept = append(kept, r)
		}
	}
	ix.records = kept
}
