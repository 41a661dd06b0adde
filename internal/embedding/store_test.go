package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-optimizer/internal/llm/llmtest"
	"github.com/jonathan/ats-optimizer/internal/types"
)

func testStatements() []types.CapabilityStatement {
	return []types.CapabilityStatement{
		{Text: "Built a streaming data pipeline in Go", Source: types.SourceGitHub, Provenance: "pipeline"},
		{Text: "Published 'Streaming Joins Revisited' in SIGMOD", Source: types.SourceScholar},
		{Text: "Led the data platform team at Acme Corp", Source: types.SourceLinkedIn, Provenance: "Acme Corp"},
	}
}

func TestStoreRebuildAndQuery(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()

	require.NoError(t, store.Rebuild(ctx, testStatements()))
	assert.Equal(t, 3, store.Count())
	assert.Equal(t, 1, store.Generation())

	matches, err := store.Query(ctx, "Built a streaming data pipeline in Go", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// The stub embedder maps identical text to identical vectors, so the
	// exact statement must come back first with similarity 1.
	assert.Equal(t, "Built a streaming data pipeline in Go", matches[0].Statement.Text)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
	assert.Equal(t, types.SourceGitHub, matches[0].Statement.Source)
	assert.Equal(t, "pipeline", matches[0].Statement.Provenance)
}

func TestStoreRebuildIsIdempotent(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()
	statements := testStatements()

	require.NoError(t, store.Rebuild(ctx, statements))
	first, err := store.Query(ctx, statements[0].Text, 3)
	require.NoError(t, err)

	require.NoError(t, store.Rebuild(ctx, statements))
	second, err := store.Query(ctx, statements[0].Text, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, store.Count())
	assert.Equal(t, 2, store.Generation())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Statement.Text, second[i].Statement.Text)
		assert.InDelta(t, first[i].Similarity, second[i].Similarity, 1e-6)
	}
}

func TestStoreQueryClampsK(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()
	require.NoError(t, store.Rebuild(ctx, testStatements()))

	matches, err := store.Query(ctx, "data platform", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestStoreQueryEmptyIndex(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()

	matches, err := store.Query(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, store.Rebuild(ctx, nil))
	matches, err = store.Query(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRelevantEvidenceThreshold(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()
	require.NoError(t, store.Rebuild(ctx, testStatements()))

	// Threshold just under 1 keeps only the exact-text match.
	evidence, err := store.RelevantEvidence(ctx, testStatements()[0].Text, 0.999, 3)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, testStatements()[0].Text, evidence[0].Text)
}

func TestSimilarity(t *testing.T) {
	store := NewStore(&llmtest.StubClient{})
	ctx := context.Background()

	same, err := store.Similarity(ctx, "distributed systems", "distributed systems")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-6)

	different, err := store.Similarity(ctx, "distributed systems", "oil painting")
	require.NoError(t, err)
	assert.Less(t, different, 1.0)

	zero, err := store.Similarity(ctx, "", "anything")
	require.NoError(t, err)
	assert.Zero(t, zero)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
