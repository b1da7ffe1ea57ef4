package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointUUID_PassesThroughAnAlreadyValidUUID(t *testing.T) {
	t.Parallel()
	valid := uuid.New().String()
	got, isOriginal := pointUUID(valid)
	assert.Equal(t, valid, got)
	assert.False(t, isOriginal)
}

func TestPointUUID_DerivesDeterministicUUIDForNonUUIDIDs(t *testing.T) {
	t.Parallel()
	chunkID := "doc-123:4"
	got1, isOriginal1 := pointUUID(chunkID)
	got2, isOriginal2 := pointUUID(chunkID)

	require.True(t, isOriginal1)
	require.True(t, isOriginal2)
	assert.Equal(t, got1, got2, "the same chunk id must always map to the same point id")
	_, err := uuid.Parse(got1)
	assert.NoError(t, err, "the derived id must itself be a valid UUID")
}

func TestPointUUID_DistinctIDsYieldDistinctUUIDs(t *testing.T) {
	t.Parallel()
	a, _ := pointUUID("doc-1:0")
	b, _ := pointUUID("doc-1:1")
	assert.NotEqual(t, a, b)
}
