// Command ingestd is the thin process entrypoint: it loads configuration,
// wires the pipeline's stage dependencies, and drives one ingest or answer
// operation from the command line. An HTTP surface, auth, and routing are
// explicitly out of scope (spec §1 Non-goals); this binary is the
// programmatic entry point a future server would call into.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"docmind/internal/config"
	"docmind/internal/dedup"
	"docmind/internal/docmodel"
	"docmind/internal/embedder"
	"docmind/internal/llmrouter"
	"docmind/internal/logging"
	"docmind/internal/pipeline"
	"docmind/internal/sparseindex"
	"docmind/internal/vectorstore"
	"docmind/internal/vocabulary"
)

func main() {
	log.SetFlags(0)
	var (
		ingestPath = flag.String("ingest", "", "path to a document to ingest")
		question   = flag.String("ask", "", "question to answer against the indexed corpus")
		docType    = flag.String("doc-type", "", "override document type hint (see docmodel.DocType)")
	)
	flag.Parse()

	if *ingestPath == "" && *question == "" {
		log.Fatal("usage: ingestd -ingest <path> | -ask <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Init(cfg.LogLevel)

	p, closeFn, err := buildPipeline(cfg)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer closeFn()

	ctx := context.Background()

	if *ingestPath != "" {
		runIngest(ctx, p, *ingestPath, *docType)
		return
	}
	runAnswer(ctx, p, *question)
}

func buildPipeline(cfg config.Config) (*pipeline.Pipeline, func(), error) {
	vocabStore := vocabulary.New(nil, nil, nil, nil) // real loader lives outside core scope (§1); starts empty
	vocabHandle := vocabulary.NewHandle(vocabStore)

	dedupIdx := dedup.NewIndex(cfg.NearDupHammingThreshold)
	emb := embedder.New(cfg.Embedding)

	vectors, err := vectorstore.New(cfg.VectorStore.DSN, cfg.VectorStore.Collection, cfg.VectorStore.Dimension, cfg.VectorStore.Metric)
	if err != nil {
		return nil, nil, err
	}

	sparse := sparseindex.New()

	ledger, err := llmrouter.NewLedger(cfg.LedgerPath)
	if err != nil {
		vectors.Close()
		return nil, nil, err
	}
	router, err := llmrouter.New(cfg, ledger)
	if err != nil {
		vectors.Close()
		return nil, nil, err
	}

	p := pipeline.New(cfg, vocabHandle, dedupIdx, emb, vectors, sparse, router)
	closeFn := func() { vectors.Close() }
	return p, closeFn, nil
}

func runIngest(ctx context.Context, p *pipeline.Pipeline, path, docTypeFlag string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	in := pipeline.IngestInput{
		Bytes:      data,
		Filename:   path,
		UploadedAt: time.Now(),
	}
	if docTypeFlag != "" {
		in.DocType = docTypeParam(docTypeFlag)
	}

	result, err := p.Ingest(ctx, in)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	emit(result)
}

func runAnswer(ctx context.Context, p *pipeline.Pipeline, question string) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	result, err := p.Answer(ctx, question)
	if err != nil {
		log.Fatalf("answer failed: %v", err)
	}
	emit(result)
}

// docTypeParam maps the -doc-type flag to the closed DocType set, falling
// back to Generic for unrecognized input rather than rejecting the run.
func docTypeParam(s string) docmodel.DocType {
	t := docmodel.DocType(s)
	if docmodel.ValidDocType(t) {
		return t
	}
	return docmodel.DocGeneric
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encode result: %v", err)
	}
}
