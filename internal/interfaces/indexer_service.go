package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// IndexerService builds and tears down one store's partitioned index.
// It is the sole writer of documents; search is read-only.
type IndexerService interface {
	// IndexStoreData runs every connector, embeds the results and upserts
	// them through the vector store, one namespace per data type. One data
	// type's failure does not abort the others; all counts come back
	// together. Fails fast with StoreLockedError when the store is locked.
	IndexStoreData(ctx context.Context, creds *models.StoreCredentials) (*models.IndexReport, error)

	// CleanupSync deletes the namespaces for the requested data types (all
	// when empty) before re-indexing them, so no stale orphans survive a
	// schema or mapping change.
	CleanupSync(ctx context.Context, creds *models.StoreCredentials, dataTypes []models.DataType) (*models.IndexReport, error)

	// DeleteStoreData locks the store, removes every namespace, and
	// unlocks in all paths; the lock is never leaked.
	DeleteStoreData(ctx context.Context, storeID string) error
}
