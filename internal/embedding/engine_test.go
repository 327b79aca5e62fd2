package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subcon/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestFindTopK(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
		{1, 2, 3},
	}

	got := FindTopK(query, corpus, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)

	assert.Len(t, FindTopK(query, corpus, 0), 3, "mismatched dimensions skipped")
}

func TestNewEngine_Errors(t *testing.T) {
	_, err := NewEngine(context.Background(), config.EmbeddingConfig{Provider: "word2vec"})
	assert.ErrorContains(t, err, "unsupported embedding provider")

	_, err = NewEngine(context.Background(), config.EmbeddingConfig{Provider: "genai"})
	assert.ErrorContains(t, err, "API key is required")
}

func TestNewEngine_Ollama(t *testing.T) {
	engine, err := NewEngine(context.Background(), config.EmbeddingConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama:embeddinggemma", engine.Name())
}

func TestParseTaskType(t *testing.T) {
	assert.Equal(t, "RETRIEVAL_QUERY", parseTaskType(""))
	assert.Equal(t, "RETRIEVAL_QUERY", parseTaskType("bogus"))
	assert.Equal(t, "SEMANTIC_SIMILARITY", parseTaskType("SEMANTIC_SIMILARITY"))
}
