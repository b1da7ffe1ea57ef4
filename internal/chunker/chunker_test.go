package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/docmodel"
)

func TestEstimateTokens_MonotonicAndFourCharsPerToken(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Less(t, EstimateTokens("abcd"), EstimateTokens("abcdefgh"))
}

func TestChunk_HeadingsBuildSectionPath(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{ID: "doc-1", Type: docmodel.DocNote}
	blocks := []docmodel.Block{
		{Kind: docmodel.BlockHeading, Level: 1, Text: "Overview"},
		{Kind: docmodel.BlockParagraph, Text: "Top-level summary paragraph."},
		{Kind: docmodel.BlockHeading, Level: 2, Text: "Details"},
		{Kind: docmodel.BlockParagraph, Text: "Nested detail paragraph."},
	}

	chunks := Chunk(doc, blocks, DefaultOptions())
	require.NotEmpty(t, chunks)

	var detailChunk *docmodel.Chunk
	for i := range chunks {
		if chunks[i].Text == "Nested detail paragraph." {
			detailChunk = &chunks[i]
		}
	}
	require.NotNil(t, detailChunk)
	assert.Equal(t, []string{"Overview", "Details"}, detailChunk.SectionPath)
}

func TestChunk_TablesAndCodeAreNeverSplit(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{ID: "doc-1", Type: docmodel.DocNote}
	bigCode := strings.Repeat("line of code\n", 500) // far larger than TargetTokens
	blocks := []docmodel.Block{
		{Kind: docmodel.BlockTable, Rows: [][]string{{"a", "b"}, {"c", "d"}}},
		{Kind: docmodel.BlockCode, Text: bigCode, Language: "go"},
	}

	chunks := Chunk(doc, blocks, DefaultOptions())
	require.Len(t, chunks, 2)
	assert.Equal(t, docmodel.ChunkTable, chunks[0].Kind)
	assert.Equal(t, docmodel.ChunkCode, chunks[1].Kind)
	assert.Contains(t, chunks[1].Text, bigCode[:20])
}

func TestChunk_IgnoreBlocksAreNeverEmbeddedAsProse(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{ID: "doc-1", Type: docmodel.DocNote}
	blocks := []docmodel.Block{
		{Kind: docmodel.BlockIgnore, Text: "<!-- xref links -->"},
		{Kind: docmodel.BlockParagraph, Text: "Real content."},
	}

	chunks := Chunk(doc, blocks, DefaultOptions())
	require.Len(t, chunks, 2)
	assert.Equal(t, docmodel.ChunkIgnored, chunks[0].Kind)
	assert.Equal(t, docmodel.ChunkParagraph, chunks[1].Kind)
}

func TestChunk_LongParagraphsFlushAtTargetTokens(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{ID: "doc-1", Type: docmodel.DocNote}
	opt := Options{TargetTokens: 20, MinTokens: 10, MaxTokens: 40}

	var blocks []docmodel.Block
	for i := 0; i < 10; i++ {
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockParagraph, Text: "a sentence of moderate length here"})
	}

	chunks := Chunk(doc, blocks, opt)
	assert.Greater(t, len(chunks), 1, "expected the long run of paragraphs to flush into multiple chunks")
	for _, c := range chunks {
		assert.Equal(t, doc.ID, c.Metadata["doc_id"])
	}
}

func TestChunk_MetadataCarriesEnrichmentAndScores(t *testing.T) {
	t.Parallel()
	doc := docmodel.Document{
		ID:   "doc-1",
		Type: docmodel.DocNote,
		Enrichment: docmodel.EnrichmentResult{
			Topics:   []string{"finance", "ops"},
			Projects: []string{"proj-a"},
		},
		Score:       docmodel.ScoreBundle{Quality: 0.8, Signalness: 0.7},
		ContentHash: "deadbeef",
	}
	blocks := []docmodel.Block{{Kind: docmodel.BlockParagraph, Text: "content"}}

	chunks := Chunk(doc, blocks, DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "finance,ops", chunks[0].Metadata["topics"])
	assert.Equal(t, "proj-a", chunks[0].Metadata["projects"])
	assert.Equal(t, "deadbeef", chunks[0].Metadata["content_hash"])
}
