package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/docmodel"
	"docmind/internal/rerank"
	"docmind/internal/retrieve"
)

func scored(score float64) rerank.Scored {
	return rerank.Scored{Candidate: retrieve.Candidate{}, RerankScore: score}
}

func TestEvaluate_PassesWithSufficientCoverageAndTop(t *testing.T) {
	t.Parallel()
	candidates := []rerank.Scored{scored(0.9), scored(0.5), scored(0.1)}
	d := Evaluate(candidates, DefaultOptions())
	assert.True(t, d.Pass)
	assert.Equal(t, 2, d.Coverage)
	assert.Equal(t, 0.9, d.Top)
	assert.Nil(t, d.Err)
}

func TestEvaluate_FailsBelowMinCoverage(t *testing.T) {
	t.Parallel()
	candidates := []rerank.Scored{scored(0.9)} // only one candidate clears tau
	d := Evaluate(candidates, DefaultOptions())
	assert.False(t, d.Pass)
	require.NotNil(t, d.Err)
	assert.Equal(t, docmodel.ErrInsufficientEvidence, d.Err.Kind)
}

func TestEvaluate_FailsBelowMinTop(t *testing.T) {
	t.Parallel()
	candidates := []rerank.Scored{scored(0.35), scored(0.32), scored(0.31)}
	d := Evaluate(candidates, DefaultOptions())
	assert.False(t, d.Pass)
	require.NotNil(t, d.Err)
}

func TestEvaluate_EmptyCandidatesAlwaysFails(t *testing.T) {
	t.Parallel()
	d := Evaluate(nil, DefaultOptions())
	assert.False(t, d.Pass)
	assert.Equal(t, 0, d.Coverage)
}
