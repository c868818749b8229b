package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// MemoryStore is an in-process vector store used for tests and offline
// development. Similarity is cosine over the stored embeddings.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*models.Document
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() interfaces.VectorStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]*models.Document),
	}
}

// Upsert overwrites documents by ID within the namespace.
func (s *MemoryStore) Upsert(ctx context.Context, storeID string, dataType models.DataType, docs []*models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := Namespace(storeID, dataType)
	if s.namespaces[ns] == nil {
		s.namespaces[ns] = make(map[string]*models.Document)
	}
	for _, doc := range docs {
		copied := *doc
		s.namespaces[ns][doc.ID] = &copied
	}
	return len(docs), nil
}

// Query scores every document in the requested namespaces by cosine
// similarity and keeps those at or above the threshold.
func (s *MemoryStore) Query(ctx context.Context, storeID string, dataTypes []models.DataType, vector []float32, topK int, scoreThreshold float64) ([]models.Candidate, error) {
	if len(dataTypes) == 0 {
		dataTypes = models.AllDataTypes()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []models.Candidate
	for _, dataType := range dataTypes {
		ns := Namespace(storeID, dataType)
		for _, doc := range s.namespaces[ns] {
			score := cosineSimilarity(vector, doc.Embedding)
			if score < scoreThreshold {
				continue
			}
			candidates = append(candidates, models.Candidate{
				DocumentID:      doc.ID,
				StoreID:         doc.StoreID,
				DataType:        doc.DataType,
				SourceID:        doc.SourceID,
				SourceUpdatedAt: doc.SourceUpdatedAt,
				Text:            doc.Text,
				Metadata:        doc.Metadata,
				Score:           score,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// DeleteNamespace removes one namespace; absent namespaces are a no-op.
func (s *MemoryStore) DeleteNamespace(ctx context.Context, storeID string, dataType models.DataType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, Namespace(storeID, dataType))
	return nil
}

// DeleteAllNamespaces removes every namespace with the store's prefix.
func (s *MemoryStore) DeleteAllNamespaces(ctx context.Context, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := storeID + ":"
	for ns := range s.namespaces {
		if strings.HasPrefix(ns, prefix) {
			delete(s.namespaces, ns)
		}
	}
	return nil
}

// Count reports how many documents live in one namespace (test helper).
func (s *MemoryStore) Count(storeID string, dataType models.DataType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[Namespace(storeID, dataType)])
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
