package embeddings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/ternarybob/taberna/internal/services/llm"
)

// mockLLM scripts per-call outcomes for the embedding provider.
type mockLLM struct {
	batches   [][]string
	failCalls int
	failAll   bool
}

func (m *mockLLM) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.failAll {
		return nil, errors.New("provider down")
	}
	if m.failCalls > 0 {
		m.failCalls--
		return nil, errors.New("transient provider error")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func (m *mockLLM) Dimension() int                        { return 2 }
func (m *mockLLM) ModelName() string                     { return "mock" }
func (m *mockLLM) HealthCheck(ctx context.Context) error { return nil }

func fastRetry() *llm.RetryConfig {
	return &llm.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffMultiplier: 2}
}

func testEmbeddingConfig() *common.Config {
	config := common.DefaultConfig()
	config.LLM.MaxBatchSize = 2
	config.Indexing.MaxChunkChars = 100
	return config
}

func record(sourceID, text string) models.SourceRecord {
	return models.SourceRecord{
		SourceID:  sourceID,
		DataType:  models.DataTypeProducts,
		Text:      text,
		Metadata:  map[string]interface{}{"product_id": sourceID},
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEmbedRecordsProducesDeterministicIDs(t *testing.T) {
	mock := &mockLLM{}
	service := NewService(mock, testEmbeddingConfig(), common.GetLogger())

	docs, dropped, err := service.EmbedRecords(context.Background(), "store-1", []models.SourceRecord{
		record("p1", "A short description."),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, common.NewDocumentID("store-1", models.DataTypeProducts, "p1", 0), doc.ID)
	assert.Equal(t, "store-1", doc.StoreID)
	assert.Equal(t, 0, doc.ChunkIndex)
	assert.Equal(t, "p1", doc.Metadata["product_id"])
	assert.NotEmpty(t, doc.Embedding)

	// Re-embedding the same record yields the same IDs.
	again, _, err := service.EmbedRecords(context.Background(), "store-1", []models.SourceRecord{
		record("p1", "A short description."),
	})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again[0].ID)
}

func TestEmbedRecordsChunksLongText(t *testing.T) {
	mock := &mockLLM{}
	service := NewService(mock, testEmbeddingConfig(), common.GetLogger())

	long := strings.Repeat("Sentence for the chunker to cut. ", 20)
	docs, dropped, err := service.EmbedRecords(context.Background(), "store-1", []models.SourceRecord{
		record("p1", long),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Greater(t, len(docs), 1)

	seen := map[string]bool{}
	for i, doc := range docs {
		assert.Equal(t, i, doc.ChunkIndex)
		assert.False(t, seen[doc.ID], "chunk IDs must be unique")
		seen[doc.ID] = true
	}
}

func TestEmbedRecordsBatchesToProviderLimit(t *testing.T) {
	mock := &mockLLM{}
	service := NewService(mock, testEmbeddingConfig(), common.GetLogger())

	records := []models.SourceRecord{
		record("p1", "one"), record("p2", "two"), record("p3", "three"),
		record("p4", "four"), record("p5", "five"),
	}
	docs, _, err := service.EmbedRecords(context.Background(), "store-1", records)
	require.NoError(t, err)
	assert.Len(t, docs, 5)

	require.Len(t, mock.batches, 3, "five chunks at batch size two means three calls")
	assert.Len(t, mock.batches[0], 2)
	assert.Len(t, mock.batches[2], 1)
}

func TestEmbedRecordsDropsFailedBatch(t *testing.T) {
	mock := &mockLLM{failAll: true}
	service := &Service{
		llmService: mock,
		chunker:    NewChunker(100),
		retry:      fastRetry(),
		batchSize:  2,
		logger:     common.GetLogger(),
	}

	docs, dropped, err := service.EmbedRecords(context.Background(), "store-1", []models.SourceRecord{
		record("p1", "one"), record("p2", "two"), record("p3", "three"),
	})
	require.NoError(t, err, "dropped batches are not fatal")
	assert.Empty(t, docs)
	assert.Equal(t, 3, dropped)
}

func TestEmbedRecordsRecoversAfterTransientFailure(t *testing.T) {
	mock := &mockLLM{failCalls: 1}
	service := &Service{
		llmService: mock,
		chunker:    NewChunker(100),
		retry:      fastRetry(),
		batchSize:  16,
		logger:     common.GetLogger(),
	}

	docs, dropped, err := service.EmbedRecords(context.Background(), "store-1", []models.SourceRecord{
		record("p1", "one"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	assert.Len(t, docs, 1, "retry absorbs a single transient failure")
}

func TestEmbedQuery(t *testing.T) {
	mock := &mockLLM{}
	service := NewService(mock, testEmbeddingConfig(), common.GetLogger())

	vector, err := service.EmbedQuery(context.Background(), "shipping times")
	require.NoError(t, err)
	assert.NotEmpty(t, vector)

	_, err = service.EmbedQuery(context.Background(), "")
	assert.Error(t, err)
}
