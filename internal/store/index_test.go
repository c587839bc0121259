package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_SearchRanking(t *testing.T) {
	ix := NewVectorIndex()
	ix.Add("east", []float32{1, 0})
	ix.Add("north", []float32{0, 1})
	ix.Add("northeast", []float32{1, 1})

	hits := ix.Search([]float32{1, 0.1}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "east", hits[0].ContentID)
	assert.Equal(t, "northeast", hits[1].ContentID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorIndex_AddReplace(t *testing.T) {
	ix := NewVectorIndex()
	ix.Add("a", []float32{1, 0})
	ix.Add("a", []float32{0, 1})
	assert.Equal(t, 1, ix.Count())

	hits := ix.Search([]float32{0, 1}, 1)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-6)
}

func TestVectorIndex_Remove(t *testing.T) {
	ix := NewVectorIndex()
	ix.Add("a", []float32{1, 0})
	ix.Remove("a")
	ix.Remove("never-there")
	assert.Equal(t, 0, ix.Count())
	assert.Empty(t, ix.Search([]float32{1, 0}, 5))
}

func TestVectorIndex_DimensionMismatchSkipped(t *testing.T) {
	ix := NewVectorIndex()
	ix.Add("flat", []float32{1, 0})
	ix.Add("deep", []float32{1, 0, 0})

	hits := ix.Search([]float32{1, 0}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "flat", hits[0].ContentID)
}

func TestVectorIndex_ZeroVectorIgnored(t *testing.T) {
	ix := NewVectorIndex()
	ix.Add("zero", []float32{0, 0})
	ix.Add("empty", nil)
	assert.Equal(t, 0, ix.Count())
	assert.Empty(t, ix.Search([]float32{0, 0}, 5))
}

func TestEmbeddingCodec(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	decoded := decodeEmbedding(encodeEmbedding(vec))
	assert.Equal(t, vec, decoded)

	assert.Nil(t, encodeEmbedding(nil))
	assert.Nil(t, decodeEmbedding(nil))
	assert.Nil(t, decodeEmbedding([]byte{1, 2, 3}))
}
