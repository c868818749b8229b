package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// JobStorage persists sync job state so job status survives process
// restarts.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.SyncJob) error
	GetJob(ctx context.Context, jobID string) (*models.SyncJob, error)
	// GetInFlightJob returns the pending or running job for (type, store),
	// used to coalesce duplicate submissions. Nil when none is in flight.
	GetInFlightJob(ctx context.Context, jobType models.JobType, storeID string) (*models.SyncJob, error)
	ListJobsByStore(ctx context.Context, storeID string) ([]*models.SyncJob, error)
	DeleteJobsByStore(ctx context.Context, storeID string) error
}

// SyncStateStorage keeps the per-store "last indexed" bookkeeping.
type SyncStateStorage interface {
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	GetSyncState(ctx context.Context, storeID string) (*models.SyncState, error)
	// ListSyncStates returns every store's sync state, used by the
	// scheduler to pick stores due for a refresh.
	ListSyncStates(ctx context.Context) ([]*models.SyncState, error)
	DeleteSyncState(ctx context.Context, storeID string) error
}

// AccountStore is the external account/session collaborator. It supplies
// store credentials and confirms pre-authorization; the core performs no
// further access control.
type AccountStore interface {
	GetCredentials(ctx context.Context, storeID string) (*models.StoreCredentials, error)
}
