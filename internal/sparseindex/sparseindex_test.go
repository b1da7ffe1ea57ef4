package sparseindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_RanksMoreRelevantChunkHigher(t *testing.T) {
	t.Parallel()
	ix := New()
	ix.Add("c1", "doc-1", "the quarterly budget review covers engineering spend")
	ix.Add("c2", "doc-1", "a completely unrelated paragraph about gardening")

	hits := ix.Query("quarterly budget review", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestQuery_EmptyIndexReturnsNil(t *testing.T) {
	t.Parallel()
	ix := New()
	assert.Nil(t, ix.Query("anything", 10))
}

func TestQuery_NoMatchingTermsReturnsNoHits(t *testing.T) {
	t.Parallel()
	ix := New()
	ix.Add("c1", "doc-1", "engineering spend report")
	assert.Empty(t, ix.Query("gardening tulips", 10))
}

func TestRemoveByDoc_DropsAllChunksForDocument(t *testing.T) {
	t.Parallel()
	ix := New()
	ix.Add("c1", "doc-1", "budget review notes")
	ix.Add("c2", "doc-1", "budget review follow-up")
	ix.Add("c3", "doc-2", "budget review from another document")

	ix.RemoveByDoc("doc-1")
	hits := ix.Query("budget review", 10)
	for _, h := range hits {
		assert.NotEqual(t, "c1", h.ChunkID)
		assert.NotEqual(t, "c2", h.ChunkID)
	}
	require.Len(t, hits, 1)
	assert.Equal(t, "c3", hits[0].ChunkID)
}

func TestAdd_ReindexingSameChunkIDReplacesOldTerms(t *testing.T) {
	t.Parallel()
	ix := New()
	ix.Add("c1", "doc-1", "original content about gardening")
	ix.Add("c1", "doc-1", "replaced content about budgets")

	assert.Empty(t, ix.Query("gardening", 10))
	assert.NotEmpty(t, ix.Query("budgets", 10))
}
