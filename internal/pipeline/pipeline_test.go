package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/config"
	"docmind/internal/docmodel"
)

func TestBlockShape_DetectsHeadingsTablesAndLists(t *testing.T) {
	t.Parallel()
	blocks := []docmodel.Block{
		{Kind: docmodel.BlockParagraph},
		{Kind: docmodel.BlockHeading},
		{Kind: docmodel.BlockTable},
		{Kind: docmodel.BlockList},
	}
	headings, tables, lists := blockShape(blocks)
	assert.True(t, headings)
	assert.True(t, tables)
	assert.True(t, lists)
}

func TestBlockShape_AllFalseWhenOnlyParagraphs(t *testing.T) {
	t.Parallel()
	headings, tables, lists := blockShape([]docmodel.Block{{Kind: docmodel.BlockParagraph}})
	assert.False(t, headings)
	assert.False(t, tables)
	assert.False(t, lists)
}

func TestChunkMetadata_CarriesDocAndChunkFields(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{
		ID:         "doc-1",
		Type:       docmodel.DocNote,
		Enrichment: docmodel.EnrichmentResult{Title: "My Title"},
	}
	chunk := docmodel.Chunk{
		Kind:        docmodel.ChunkParagraph,
		SectionPath: []string{"Intro", "Background"},
		Metadata:    map[string]string{"custom": "value"},
	}
	meta := chunkMetadata(doc, chunk)

	assert.Equal(t, "doc-1", meta["doc_id"])
	assert.Equal(t, string(docmodel.DocNote), meta["doc_type"])
	assert.Equal(t, string(docmodel.ChunkParagraph), meta["kind"])
	assert.Equal(t, "Intro > Background", meta["section_path"])
	assert.Equal(t, "My Title", meta["title"])
	assert.Equal(t, "value", meta["custom"])
}

func TestMaxCosineAgainstCorpus_EmptyWhenNoChunksTracked(t *testing.T) {
	t.Parallel()
	p := New(config.Config{}, nil, nil, nil, nil, nil, nil)
	_, empty := p.maxCosineAgainstCorpus(nil, "text")
	assert.True(t, empty)
}

func TestMaxCosineAgainstCorpus_NotEmptyOnceAChunkIsTracked(t *testing.T) {
	t.Parallel()
	p := New(config.Config{}, nil, nil, nil, nil, nil, nil)
	p.chunksByID["c1"] = chunkRecord{text: "x", docID: "doc-1", timestamp: time.Now()}
	_, empty := p.maxCosineAgainstCorpus(nil, "text")
	assert.False(t, empty)
}

func TestLookup_ReturnsStoredChunkRecordFields(t *testing.T) {
	t.Parallel()
	p := New(config.Config{}, nil, nil, nil, nil, nil, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.chunksByID["c1"] = chunkRecord{text: "hello", sectionPath: "Intro", docID: "doc-1", timestamp: ts, ordinal: 2}

	text, sectionPath, docID, docTimestamp, ordinal, ok := p.lookup("c1")
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "Intro", sectionPath)
	assert.Equal(t, "doc-1", docID)
	assert.Equal(t, ts, docTimestamp)
	assert.Equal(t, 2, ordinal)
}

func TestLookup_MissingChunkReturnsNotOK(t *testing.T) {
	t.Parallel()
	p := New(config.Config{}, nil, nil, nil, nil, nil, nil)
	_, _, _, _, _, ok := p.lookup("missing")
	assert.False(t, ok)
}
