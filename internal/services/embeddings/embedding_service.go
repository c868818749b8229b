package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/ternarybob/taberna/internal/services/llm"
)

const defaultMaxBatchSize = 16

// Service turns normalized source records into embedded documents. Chunks
// are batched to the provider; a batch that keeps failing after retries is
// dropped and counted, never fatal to the run.
type Service struct {
	llmService interfaces.LLMService
	chunker    *Chunker
	retry      *llm.RetryConfig
	batchSize  int
	logger     arbor.ILogger
}

// NewService creates the embedding pipeline.
func NewService(llmService interfaces.LLMService, config *common.Config, logger arbor.ILogger) interfaces.EmbeddingService {
	batchSize := config.LLM.MaxBatchSize
	if batchSize <= 0 {
		batchSize = defaultMaxBatchSize
	}
	return &Service{
		llmService: llmService,
		chunker:    NewChunker(config.Indexing.MaxChunkChars),
		retry:      llm.NewDefaultRetryConfig(),
		batchSize:  batchSize,
		logger:     logger,
	}
}

// EmbedRecords chunks and embeds records, returning the documents that
// embedded successfully and the count of dropped chunks.
func (s *Service) EmbedRecords(ctx context.Context, storeID string, records []models.SourceRecord) ([]*models.Document, int, error) {
	var pending []*models.Document
	dropped := 0

	for _, record := range records {
		chunks := s.chunker.Split(record.Text)
		for chunkIndex, chunk := range chunks {
			if chunk == "" {
				dropped++
				continue
			}
			now := time.Now().UTC()
			pending = append(pending, &models.Document{
				ID:              common.NewDocumentID(storeID, record.DataType, record.SourceID, chunkIndex),
				StoreID:         storeID,
				DataType:        record.DataType,
				Text:            chunk,
				SourceID:        record.SourceID,
				SourceUpdatedAt: record.UpdatedAt,
				ChunkIndex:      chunkIndex,
				Metadata:        record.Metadata,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
	}

	var docs []*models.Document
	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Text
		}

		var vectors [][]float32
		err := s.retry.Do(ctx, func(ctx context.Context) error {
			var embedErr error
			vectors, embedErr = s.llmService.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return docs, dropped, ctx.Err()
			}
			dropped += len(batch)
			s.logger.Warn().
				Str("store_id", storeID).
				Int("batch_size", len(batch)).
				Err(err).
				Msg("Dropping batch after embedding retries exhausted")
			continue
		}
		if len(vectors) != len(batch) {
			dropped += len(batch)
			s.logger.Warn().
				Str("store_id", storeID).
				Int("expected", len(batch)).
				Int("got", len(vectors)).
				Msg("Dropping batch with mismatched embedding count")
			continue
		}

		for i, doc := range batch {
			doc.Embedding = vectors[i]
			docs = append(docs, doc)
		}
	}

	s.logger.Debug().
		Str("store_id", storeID).
		Int("records", len(records)).
		Int("documents", len(docs)).
		Int("dropped", dropped).
		Msg("Embedded source records")

	return docs, dropped, nil
}

// EmbedQuery embeds one search query with the same retry policy.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	var vectors [][]float32
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = s.llmService.EmbedBatch(ctx, []string{query})
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}
