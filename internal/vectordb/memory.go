// Package vectordb holds the in-memory vector store used for
// first-stage retrieval. The index is small enough (a few thousand law
// chunks) that a linear cosine scan is cheaper than operating a
// dedicated vector database.
package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

type MemoryStore struct {
	mu     sync.RWMutex
	chunks []core.DocumentChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add indexes chunks. Chunks without an embedding are ignored.
func (s *MemoryStore) Add(chunks ...core.DocumentChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		s.chunks = append(s.chunks, c)
	}
}

// Len reports the number of indexed chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Query returns up to topK chunks ordered by cosine similarity to the
// query vector, descending. The filter is applied before ranking so
// relevant filtered results are never crowded out.
func (s *MemoryStore) Query(_ context.Context, vector []float32, topK int, filter *core.ChunkFilter) ([]core.ScoredChunk, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]core.ScoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if !filter.Matches(chunk) {
			continue
		}
		sim, err := CosineSimilarity(vector, chunk.Embedding)
		if err != nil {
			// Dimension mismatch means the chunk was embedded with a
			// different model; skip it.
			continue
		}
		scored = append(scored, core.ScoredChunk{Chunk: chunk, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Vectors of different dimensions are an error; a zero vector
// yields similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
