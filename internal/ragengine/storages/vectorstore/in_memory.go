package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"DocuMind/internal/ragengine/interfaces"
)

type memoryEntry struct {
	vector   []float32
	metadata map[string]string
}

// InMemoryStore is a brute-force cosine-similarity vector store used for
// tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewInMemoryStore creates a new empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Upsert stores the vector and metadata under id, replacing any previous entry.
func (s *InMemoryStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec := make([]float32, len(vector))
	copy(vec, vector)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	s.entries[id] = memoryEntry{vector: vec, metadata: md}
	return nil
}

// Delete removes the given ids. Absent ids are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

// Query returns the topK entries most similar to vector by cosine similarity,
// optionally restricted to one document id.
func (s *InMemoryStore) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]interfaces.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]interfaces.VectorHit, 0, len(s.entries))
	for id, entry := range s.entries {
		if documentID != "" && entry.metadata[FieldDocumentID] != documentID {
			continue
		}
		score := cosine(vector, entry.vector)
		md := make(map[string]string, len(entry.metadata))
		for k, v := range entry.metadata {
			md[k] = v
		}
		hits = append(hits, interfaces.VectorHit{ID: id, Score: score, Metadata: md})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Len reports the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// compile-time check to ensure InMemoryStore implements the VectorStore interface
var _ interfaces.VectorStore = (*InMemoryStore)(nil)
