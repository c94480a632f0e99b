package automatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEmbedder builds a crude bag-of-words vector over a small fixed vocabulary,
// enough to make "closest description" deterministic for a test without a
// real embedding model.
var vocab = []string{"parallel", "sequential", "graph", "chat", "director", "queue", "sheet", "human"}

type wordEmbedder struct{}

func (wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(vocab))
	for i, word := range vocab {
		if containsWord(text, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func containsWord(haystack, word string) bool {
	for i := 0; i+len(word) <= len(haystack); i++ {
		if haystack[i:i+len(word)] == word {
			return true
		}
	}
	return false
}

func TestAutoSelectNoEmbedderFallsBack(t *testing.T) {
	m, err := New(nil, nil)
	require.NoError(t, err)

	selected, err := m.AutoSelect(context.Background(), "do anything")
	require.NoError(t, err)
	assert.Equal(t, FallbackSwarmType, selected)
}

func TestAutoSelectPicksClosestCatalogEntry(t *testing.T) {
	catalog := []Entry{
		{TypeName: "ConcurrentWorkflow", Description: "run agents in parallel"},
		{TypeName: "GraphWorkflow", Description: "run a graph of dependent steps"},
		{TypeName: "GroupChat", Description: "agents hold a chat"},
	}
	m, err := New(catalog, wordEmbedder{})
	require.NoError(t, err)

	selected, err := m.AutoSelect(context.Background(), "run these agents in parallel")
	require.NoError(t, err)
	assert.Equal(t, "ConcurrentWorkflow", selected)
}

func TestAutoSelectRejectsCatalogWithMissingTypeName(t *testing.T) {
	_, err := New([]Entry{{Description: "no name"}}, nil)
	require.Error(t, err)
}

func TestAutoSelectDefaultCatalogCoversAllSwarmTypes(t *testing.T) {
	m, err := New(nil, wordEmbedder{})
	require.NoError(t, err)
	assert.True(t, len(m.Catalog) >= 9)
}
