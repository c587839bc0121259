package store

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"
)

// Hit is one vector search result.
type Hit struct {
	ContentID string
	Score     float32
}

// VectorIndex is an in-memory cosine-similarity index over normalized
// vectors. It is rebuilt from the records table on startup and kept in
// step with it on every upsert and delete.
type VectorIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{vectors: make(map[string][]float32)}
}

// Add inserts or replaces a vector. Empty vectors are ignored.
func (ix *VectorIndex) Add(contentID string, vec []float32) {
	normalized := normalize(vec)
	if normalized == nil {
		return
	}
	ix.mu.Lock()
	ix.vectors[contentID] = normalized
	ix.mu.Unlock()
}

// Remove deletes a vector. Removing an absent id is a no-op.
func (ix *VectorIndex) Remove(contentID string) {
	ix.mu.Lock()
	delete(ix.vectors, contentID)
	ix.mu.Unlock()
}

// Count returns the number of indexed vectors.
func (ix *VectorIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Search returns up to k ids ranked by cosine similarity to query.
// Vectors whose dimension differs from the query are skipped.
func (ix *VectorIndex) Search(query []float32, k int) []Hit {
	normalized := normalize(query)
	if normalized == nil || k <= 0 {
		return nil
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.vectors))
	for id, vec := range ix.vectors {
		if len(vec) != len(normalized) {
			continue
		}
		hits = append(hits, Hit{ContentID: id, Score: dot(normalized, vec)})
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * inv
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// encodeEmbedding packs a vector into a little-endian float32 blob for
// the embedding column.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec
}
