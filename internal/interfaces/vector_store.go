package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// VectorStore abstracts the external nearest-neighbor vector database.
// Every operation is namespace-scoped (store + data type) so a failure
// touching one data type never corrupts another. Implementations own no
// business logic; callers decide retry on error.
type VectorStore interface {
	// Upsert writes documents into the namespace for (storeID, dataType),
	// overwriting documents with the same ID. Returns the number written.
	Upsert(ctx context.Context, storeID string, dataType models.DataType, docs []*models.Document) (int, error)

	// Query returns up to topK candidates across the given data types,
	// filtered to scores >= scoreThreshold. Data types with no namespace
	// contribute zero candidates.
	Query(ctx context.Context, storeID string, dataTypes []models.DataType, vector []float32, topK int, scoreThreshold float64) ([]models.Candidate, error)

	// DeleteNamespace removes every document in one (storeID, dataType)
	// namespace. Deleting an absent namespace is not an error.
	DeleteNamespace(ctx context.Context, storeID string, dataType models.DataType) error

	// DeleteAllNamespaces removes every namespace belonging to storeID.
	DeleteAllNamespaces(ctx context.Context, storeID string) error
}
