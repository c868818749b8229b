package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// LLMService is the embedding provider boundary. Implementations talk to an
// external model API (or an offline stand-in) and are batch-oriented.
type LLMService interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName identifies the embedding model for observability.
	ModelName() string

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}

// EmbeddingService converts normalized source records into embedded,
// retrievable documents.
type EmbeddingService interface {
	// EmbedRecords chunks each record and embeds the chunks in batches.
	// Chunks whose embedding fails after retries are dropped and counted in
	// the returned drop count, never fatal to the batch.
	EmbedRecords(ctx context.Context, storeID string, records []models.SourceRecord) (docs []*models.Document, dropped int, err error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}
