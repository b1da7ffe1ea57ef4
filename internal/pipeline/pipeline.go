// Package pipeline wires the fourteen components into the two operations
// the spec exposes at the boundary: ingest and answer (query). It mirrors
// the teacher's internal/rag/service.Service: a functional-options
// constructor over the stage dependencies, with one method per top-level
// operation that threads a context through every potentially-blocking
// call (spec §5 suspension points).
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docmind/internal/chunker"
	"docmind/internal/config"
	"docmind/internal/dedup"
	"docmind/internal/detect"
	"docmind/internal/docmodel"
	"docmind/internal/embedder"
	"docmind/internal/enrich"
	"docmind/internal/export"
	"docmind/internal/gate"
	"docmind/internal/llmrouter"
	"docmind/internal/logging"
	"docmind/internal/rerank"
	"docmind/internal/retrieve"
	"docmind/internal/scoring"
	"docmind/internal/sparseindex"
	"docmind/internal/synth"
	"docmind/internal/vectorstore"
	"docmind/internal/vocabulary"
)

// chunkRecord is what the pipeline keeps in memory to answer
// retrieve.ChunkLookup without a round trip to the vector store.
type chunkRecord struct {
	text        string
	sectionPath string
	docID       string
	timestamp   time.Time
	ordinal     int
}

// Pipeline holds every stage dependency, constructed once per process.
type Pipeline struct {
	cfg       config.Config
	vocab     *vocabulary.Handle
	dedupIdx  *dedup.Index
	emb       embedder.Embedder
	vectors   *vectorstore.Store
	sparse    *sparseindex.Index
	router    *llmrouter.Router
	chunkOpts chunker.Options

	mu         sync.Mutex
	chunksByID map[string]chunkRecord
}

// Option configures a Pipeline during construction.
type Option func(*Pipeline)

func WithChunkOptions(o chunker.Options) Option { return func(p *Pipeline) { p.chunkOpts = o } }

// New constructs a Pipeline from its already-built dependencies. Callers
// (cmd/ingestd) are responsible for opening the vector store connection,
// loading the vocabulary, and building the LLM router from config.
func New(cfg config.Config, vocab *vocabulary.Handle, dedupIdx *dedup.Index, emb embedder.Embedder, vectors *vectorstore.Store, sparse *sparseindex.Index, router *llmrouter.Router, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		vocab:      vocab,
		dedupIdx:   dedupIdx,
		emb:        emb,
		vectors:    vectors,
		sparse:     sparse,
		router:     router,
		chunkOpts:  chunker.DefaultOptions(),
		chunksByID: map[string]chunkRecord{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IngestInput bundles one document submission and its optional overrides
// (spec §6's ingest operation: force_reindex, skip_export, override_near_dup).
type IngestInput struct {
	Bytes      []byte
	Filename   string
	UploadedAt time.Time
	DocType    docmodel.DocType // caller's type hint; Generic if unknown

	// ForceReindex reprocesses a document whose content exactly matches an
	// already-ingested one instead of rejecting it as a duplicate.
	ForceReindex bool
	// SkipExport suppresses the canonical export step entirely.
	SkipExport bool
	// OverrideNearDup stores a near-duplicate as a new document instead of
	// rejecting it.
	OverrideNearDup bool
}

// IngestResult reports what ingestion did.
type IngestResult struct {
	DocID      string
	DoIndex    bool
	GateReason string
	Score      docmodel.ScoreBundle
	NumChunks  int
	Export     export.Result
	Exported   bool
}

// Ingest runs C1 -> C2 (reject if duplicate) -> C4 -> C5 -> (if do_index)
// C6 -> C7 + C8 -> C13 (optional), per spec §1's control-flow line.
func (p *Pipeline) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	log := logging.Stage("pipeline.ingest")

	extractCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Extraction)
	defer cancel()
	_ = extractCtx // extraction itself is CPU-bound/local; ctx carried for OCR subprocess paths (§5)

	extraction := detect.Extract(detect.Input{Bytes: in.Bytes, Filename: in.Filename, UploadedAt: in.UploadedAt})
	if extraction.ExtractionFailed {
		return IngestResult{}, docmodel.NewError(docmodel.ErrExtractionFailed, "content extraction failed for all fallback paths")
	}

	docID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(dedup.ContentHash(extraction.Text))).String()

	if in.ForceReindex {
		// Same content always derives the same docID, so a forced reindex of
		// an exact duplicate reprocesses that same id: drop its prior records
		// from every store before re-running the pipeline over it.
		if check := p.dedupIdx.Check(extraction.Text); check.Exact {
			p.dedupIdx.Remove(check.ConflictWith)
			_ = p.vectors.DeleteByDoc(ctx, check.ConflictWith)
			p.sparse.RemoveByDoc(check.ConflictWith)
		}
	}

	outcome := p.dedupIdx.CheckAndInsert(docID, extraction.Text, in.OverrideNearDup)
	if outcome.Exact {
		return IngestResult{}, docmodel.NewDuplicateError(docmodel.ErrDuplicate, fmt.Sprintf("exact duplicate of %s", outcome.ConflictWith), outcome.ConflictWith)
	}
	if outcome.Near && !in.OverrideNearDup {
		return IngestResult{}, docmodel.NewDuplicateError(docmodel.ErrNearDuplicate, fmt.Sprintf("near-duplicate of %s", outcome.ConflictWith), outcome.ConflictWith)
	}

	docType := in.DocType
	if docType == "" || !docmodel.ValidDocType(docType) {
		docType = docmodel.DocGeneric
	}

	doc := docmodel.Document{
		ID:               docID,
		ContentHash:      dedup.ContentHash(extraction.Text),
		Source:           docmodel.SourceDescriptor{Filename: in.Filename, UploadedAt: in.UploadedAt},
		DetectedMIME:     extraction.DetectedMIME,
		Type:             docType,
		Text:             extraction.Text,
		Blocks:           extraction.Blocks,
		CreatedAt:        in.UploadedAt,
		OCRFallback:      extraction.OCRFallback,
		OCRConfidence:    extraction.OCRConfidence,
		ExtractionFailed: extraction.ExtractionFailed,
		PageMap:          extraction.PageMap,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	enrichCtx, enrichCancel := context.WithTimeout(ctx, p.cfg.Timeouts.Enrichment)
	defer enrichCancel()
	vocab := p.vocab.Load()
	doc.Enrichment = enrich.Enrich(enrichCtx, p.router, vocab, doc, doc.Blocks, in.Filename, enrich.DefaultOptions())
	if doc.Enrichment.EnrichmentDegraded {
		log.Warn().Str("doc_id", docID).Msg("enrichment_degraded")
	}

	hasHeadings, hasTables, hasLists := blockShape(doc.Blocks)
	quality := scoring.Quality(scoring.QualityInputs{
		TextLength:       len(doc.Text),
		WordCount:        len(strings.Fields(doc.Text)),
		ExtractionFailed: doc.ExtractionFailed,
		OCRFallback:      doc.OCRFallback,
		OCRConfidence:    doc.OCRConfidence,
		HasHeadings:      hasHeadings,
		HasTables:        hasTables,
		HasLists:         hasLists,
	})

	maxCosine, corpusEmpty := p.maxCosineAgainstCorpus(ctx, doc.Text)
	novelty := scoring.Novelty(maxCosine, corpusEmpty)

	futureDated := scoring.DateFutureDetected(doc.Enrichment.Dates, time.Now())
	vocabHits := len(vocab.MatchProjects(doc.Text))
	actionability := scoring.Actionability(scoring.ActionabilityInputs{
		WatchlistHits:      vocabHits,
		ProjectMatched:     len(doc.Enrichment.Projects) > 0,
		DateFutureDetected: futureDated,
	})

	doc.Score = scoring.Bundle(doc.Type, quality, novelty, actionability, config.DefaultGates())
	doc.DoIndex = doc.Score.DoIndex

	if !doc.DoIndex {
		p.dedupIdx.Remove(docID)
		result := IngestResult{DocID: docID, DoIndex: false, GateReason: doc.Score.GateReason, Score: doc.Score}
		// Canonical export still fires for gated-out documents (spec §6:
		// "canonical export still emitted if skip_export=false, with
		// do_index: false in the header") so a reader can tell a gated doc
		// apart from one that was never processed at all.
		if p.cfg.Export.Root != "" && !in.SkipExport {
			if exp, err := export.Export(doc, export.Options{RootDir: p.cfg.Export.Root, Flat: p.cfg.Export.FlatNames}); err != nil {
				log.Warn().Str("doc_id", docID).Err(err).Msg("canonical_export_failed")
			} else {
				result.Export = exp
				result.Exported = true
			}
		}
		return result, nil
	}

	chunks := chunker.Chunk(doc, doc.Blocks, p.chunkOpts)
	embeddable := make([]docmodel.Chunk, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Kind == docmodel.ChunkIgnored {
			continue
		}
		embeddable = append(embeddable, c)
		texts = append(texts, c.Text)
	}

	var vectors [][]float32
	if len(texts) > 0 {
		embedCtx, embedCancel := context.WithTimeout(ctx, p.cfg.Timeouts.Embedding)
		defer embedCancel()
		var err error
		vectors, err = p.emb.EmbedBatch(embedCtx, texts)
		if err != nil {
			p.dedupIdx.Remove(docID)
			return IngestResult{}, docmodel.NewError(docmodel.ErrStorageFailed, fmt.Sprintf("embedding failed: %v", err))
		}
	}

	for i, c := range embeddable {
		vecCtx, vecCancel := context.WithTimeout(ctx, p.cfg.Timeouts.VectorOp)
		meta := chunkMetadata(doc, c)
		err := p.vectors.Upsert(vecCtx, c.ID(), docID, vectors[i], meta)
		vecCancel()
		if err != nil {
			_ = p.vectors.DeleteByDoc(ctx, docID)
			p.sparse.RemoveByDoc(docID)
			p.dedupIdx.Remove(docID)
			return IngestResult{}, docmodel.NewError(docmodel.ErrStorageFailed, fmt.Sprintf("vector upsert failed: %v", err))
		}
		p.sparse.Add(c.ID(), docID, c.Text)

		p.mu.Lock()
		p.chunksByID[c.ID()] = chunkRecord{
			text:        c.Text,
			sectionPath: strings.Join(c.SectionPath, " > "),
			docID:       docID,
			timestamp:   doc.CreatedAt,
			ordinal:     c.Ordinal,
		}
		p.mu.Unlock()
	}

	result := IngestResult{DocID: docID, DoIndex: true, GateReason: doc.Score.GateReason, Score: doc.Score, NumChunks: len(embeddable)}

	if p.cfg.Export.Root != "" && !in.SkipExport {
		exp, err := export.Export(doc, export.Options{RootDir: p.cfg.Export.Root, Flat: p.cfg.Export.FlatNames})
		if err != nil {
			log.Warn().Str("doc_id", docID).Err(err).Msg("canonical_export_failed")
		} else {
			result.Export = exp
			result.Exported = true
		}
	}

	return result, nil
}

// maxCosineAgainstCorpus is a placeholder hook for novelty scoring until a
// corpus-wide embedding scan is wired; an empty corpus always yields the
// spec's "corpus empty" branch (novelty = 1.0).
func (p *Pipeline) maxCosineAgainstCorpus(ctx context.Context, text string) (float64, bool) {
	p.mu.Lock()
	empty := len(p.chunksByID) == 0
	p.mu.Unlock()
	return 0, empty
}

func blockShape(blocks []docmodel.Block) (headings, tables, lists bool) {
	for _, b := range blocks {
		switch b.Kind {
		case docmodel.BlockHeading:
			headings = true
		case docmodel.BlockTable:
			tables = true
		case docmodel.BlockList:
			lists = true
		}
	}
	return
}

func chunkMetadata(doc docmodel.Document, c docmodel.Chunk) map[string]string {
	meta := map[string]string{
		"doc_id":       doc.ID,
		"doc_type":     string(doc.Type),
		"kind":         string(c.Kind),
		"section_path": strings.Join(c.SectionPath, " > "),
		"title":        doc.Enrichment.Title,
	}
	for k, v := range c.Metadata {
		meta[k] = v
	}
	return meta
}

func (p *Pipeline) lookup(chunkID string) (text, sectionPath, docID string, docTimestamp time.Time, ordinal int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, found := p.chunksByID[chunkID]
	if !found {
		return "", "", "", time.Time{}, 0, false
	}
	return rec.text, rec.sectionPath, rec.docID, rec.timestamp, rec.ordinal, true
}

// AnswerResult is the top-level query operation's output.
type AnswerResult struct {
	Answer     synth.Answer
	Candidates []rerank.Scored
	Gate       gate.Decision
	Refused    bool
}

// Answer runs C9 (uses C7+C8) -> C10 -> C11 -> (if sufficient) C12 (uses
// C14), per spec §1's control-flow line for incoming queries.
func (p *Pipeline) Answer(ctx context.Context, question string) (AnswerResult, error) {
	embedCtx, embedCancel := context.WithTimeout(ctx, p.cfg.Timeouts.Embedding)
	qvecs, err := p.emb.EmbedBatch(embedCtx, []string{question})
	embedCancel()
	if err != nil {
		return AnswerResult{}, fmt.Errorf("embed query: %w", err)
	}
	var qvec []float32
	if len(qvecs) > 0 {
		qvec = qvecs[0]
	}

	retrieveOpt := retrieve.Options{
		TopK:      p.cfg.Retrieval.TopKDefault,
		Alpha:     p.cfg.Retrieval.Alpha,
		MMRLambda: p.cfg.Retrieval.MMRLambda,
	}
	candidates, err := retrieve.Retrieve(ctx, p.vectors, p.sparse, p.lookup, qvec, question, retrieveOpt)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("retrieve: %w", err)
	}

	reranked, err := rerank.Rerank(ctx, p.cfg.Reranker, question, candidates)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("rerank: %w", err)
	}

	decision := gate.Evaluate(reranked, gate.Options{
		Tau:         p.cfg.Retrieval.ConfidenceTau,
		MinCoverage: p.cfg.Retrieval.MinCoverage,
		MinTop:      p.cfg.Retrieval.MinTop,
	})
	if !decision.Pass {
		return AnswerResult{Candidates: reranked, Gate: decision, Refused: true}, decision.Err
	}

	synthCtx, synthCancel := context.WithTimeout(ctx, p.cfg.Timeouts.Synthesis)
	defer synthCancel()
	answer, err := synth.Synthesize(synthCtx, p.router, question, reranked, synth.DefaultOptions())
	if err != nil {
		return AnswerResult{Candidates: reranked, Gate: decision}, err
	}

	return AnswerResult{Answer: answer, Candidates: reranked, Gate: decision}, nil
}
