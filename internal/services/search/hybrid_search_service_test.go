package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/locks"
	"github.com/ternarybob/taberna/internal/models"
)

// fixedEmbedder returns a constant query vector.
type fixedEmbedder struct{}

func (f *fixedEmbedder) EmbedRecords(ctx context.Context, storeID string, records []models.SourceRecord) ([]*models.Document, int, error) {
	return nil, 0, nil
}

func (f *fixedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

// failingEmbedder simulates an embedding provider outage.
type failingEmbedder struct{}

func (f *failingEmbedder) EmbedRecords(ctx context.Context, storeID string, records []models.SourceRecord) ([]*models.Document, int, error) {
	return nil, 0, errors.New("provider unreachable")
}

func (f *failingEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, errors.New("provider unreachable")
}

// scriptedStore returns canned candidates or a scripted error.
type scriptedStore struct {
	candidates []models.Candidate
	err        error
}

func (s *scriptedStore) Upsert(ctx context.Context, storeID string, dataType models.DataType, docs []*models.Document) (int, error) {
	return 0, nil
}

func (s *scriptedStore) Query(ctx context.Context, storeID string, dataTypes []models.DataType, vector []float32, topK int, scoreThreshold float64) ([]models.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func (s *scriptedStore) DeleteNamespace(ctx context.Context, storeID string, dataType models.DataType) error {
	return nil
}

func (s *scriptedStore) DeleteAllNamespaces(ctx context.Context, storeID string) error {
	return nil
}

func searchConfig() *common.SearchConfig {
	return &common.SearchConfig{
		SemanticWeight:  0.7,
		KeywordWeight:   0.3,
		DefaultTopK:     10,
		LockWaitTimeout: "300ms",
	}
}

func newSearchService(store interfaces.VectorStore, lockService interfaces.LockService) interfaces.SearchService {
	return NewHybridService(&fixedEmbedder{}, store, lockService, searchConfig(), common.GetLogger())
}

func candidate(id string, dataType models.DataType, text string, score float64, updatedAt time.Time) models.Candidate {
	return models.Candidate{
		DocumentID:      id,
		StoreID:         "store-1",
		DataType:        dataType,
		SourceID:        "src-" + id,
		SourceUpdatedAt: updatedAt,
		Text:            text,
		Score:           score,
	}
}

func TestSearchBlendsSemanticAndKeywordScores(t *testing.T) {
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &scriptedStore{candidates: []models.Candidate{
		candidate("doc-semantic", models.DataTypeProducts, "unrelated wording entirely", 0.9, ts),
		candidate("doc-keyword", models.DataTypeProducts, "shipping times to lisbon explained", 0.6, ts),
	}}
	service := newSearchService(store, locks.NewManager(common.GetLogger()))

	resp, err := service.Search(context.Background(), "shipping times lisbon",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	// 0.7*0.9 + 0.3*0 = 0.63 vs 0.7*0.6 + 0.3*1.0 = 0.72
	assert.Equal(t, "doc-keyword", resp.Results[0].DocumentID)
	assert.InDelta(t, 0.72, resp.Results[0].FinalScore, 1e-9)
	assert.InDelta(t, 1.0, resp.Results[0].KeywordScore, 1e-9)
	assert.Equal(t, "doc-semantic", resp.Results[1].DocumentID)
	assert.InDelta(t, 0.63, resp.Results[1].FinalScore, 1e-9)
}

func TestSearchDeterministicTieBreaks(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &scriptedStore{candidates: []models.Candidate{
		candidate("doc-b", models.DataTypeProducts, "same text", 0.8, older),
		candidate("doc-a", models.DataTypeProducts, "same text", 0.8, older),
		candidate("doc-c", models.DataTypeProducts, "same text", 0.8, newer),
	}}
	service := newSearchService(store, locks.NewManager(common.GetLogger()))

	resp, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "doc-c", resp.Results[0].DocumentID, "newer source wins the tie")
	assert.Equal(t, "doc-a", resp.Results[1].DocumentID, "then lexical document ID order")
	assert.Equal(t, "doc-b", resp.Results[2].DocumentID)
}

func TestSearchAppliesThresholdAndTopK(t *testing.T) {
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &scriptedStore{candidates: []models.Candidate{
		candidate("doc-1", models.DataTypeProducts, "x", 0.9, ts),
		candidate("doc-2", models.DataTypeProducts, "x", 0.8, ts),
		candidate("doc-3", models.DataTypeProducts, "x", 0.2, ts),
	}}
	service := newSearchService(store, locks.NewManager(common.GetLogger()))

	resp, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"},
		models.SearchOptions{TopK: 1, ScoreThreshold: 0.5}, models.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1, "threshold drops doc-3, topK keeps only the best")
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
}

func TestSearchLockedStoreNoWaitReturnsUnavailable(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	lockService.LockForDeletion("store-1", "store_deletion")
	service := newSearchService(&scriptedStore{}, lockService)

	resp, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"},
		models.SearchOptions{LockWait: models.LockWaitNone}, models.SearchFilters{})
	require.NoError(t, err)
	assert.True(t, resp.Unavailable)
	assert.Empty(t, resp.Results)
}

func TestSearchLockedStoreBriefWaitSucceedsAfterUnlock(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	lockService.LockForDeletion("store-1", "store_deletion")
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	service := newSearchService(&scriptedStore{candidates: []models.Candidate{
		candidate("doc-1", models.DataTypeProducts, "x", 0.9, ts),
	}}, lockService)

	go func() {
		time.Sleep(100 * time.Millisecond)
		lockService.Unlock("store-1")
	}()

	resp, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearchLockedStoreBriefWaitTimesOut(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	lockService.LockForDeletion("store-1", "store_deletion")
	service := newSearchService(&scriptedStore{}, lockService)

	_, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.Error(t, err)

	var unavailableErr *models.SearchUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, "store-1", unavailableErr.StoreID)
}

func TestSearchEmbeddingFailureReturnsUnavailable(t *testing.T) {
	service := NewHybridService(&failingEmbedder{}, &scriptedStore{},
		locks.NewManager(common.GetLogger()), searchConfig(), common.GetLogger())

	_, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.Error(t, err)

	var unavailableErr *models.SearchUnavailableError
	require.ErrorAs(t, err, &unavailableErr, "provider outage means retry shortly, not a hard fault")
	assert.Equal(t, "store-1", unavailableErr.StoreID)
}

func TestSearchVectorStoreFailurePropagates(t *testing.T) {
	service := newSearchService(&scriptedStore{err: errors.New("all namespaces down")},
		locks.NewManager(common.GetLogger()))

	_, err := service.Search(context.Background(), "query",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector store query failed")
}

func TestSearchValidatesInput(t *testing.T) {
	service := newSearchService(&scriptedStore{}, locks.NewManager(common.GetLogger()))

	_, err := service.Search(context.Background(), "",
		models.SearchContext{StoreID: "store-1"}, models.SearchOptions{}, models.SearchFilters{})
	assert.Error(t, err)

	_, err = service.Search(context.Background(), "query",
		models.SearchContext{}, models.SearchOptions{}, models.SearchFilters{})
	assert.Error(t, err)
}

func TestTokenizeAndOverlap(t *testing.T) {
	tokens := tokenize("Shipping, times... to LISBON!")
	assert.Equal(t, []string{"shipping", "times", "to", "lisbon"}, tokens)

	assert.InDelta(t, 0.5, keywordOverlap([]string{"shipping", "lisbon"}, "lisbon ferry schedule"), 1e-9)
	assert.Equal(t, 0.0, keywordOverlap(nil, "anything"))
}
