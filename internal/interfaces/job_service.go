package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/taberna/internal/models"
)

// JobService is the operational surface the orchestration layer uses to
// schedule background work. Submission is fire-and-forget: the returned job
// ID is available immediately and execution happens asynchronously.
type JobService interface {
	// SubmitIndexJob schedules a full index of the store.
	SubmitIndexJob(ctx context.Context, storeID string) (string, error)

	// SubmitCleanupJob schedules a delete-then-reindex of the given data
	// types (all when empty).
	SubmitCleanupJob(ctx context.Context, storeID string, dataTypes []models.DataType) (string, error)

	// SubmitDeleteJob schedules teardown of the store's knowledge base.
	SubmitDeleteJob(ctx context.Context, storeID string) (string, error)

	// GetJob returns the persisted state of a job.
	GetJob(ctx context.Context, jobID string) (*models.SyncJob, error)
}

// QueueManager is the durable job queue. Messages become invisible for the
// visibility timeout once received; the delete function acknowledges them.
type QueueManager interface {
	Enqueue(ctx context.Context, job *models.SyncJob, delay time.Duration) error
	Receive(ctx context.Context) (*models.SyncJob, func() error, error)
	Close() error
}

// JobWorker executes one job type. The processor routes queued jobs to the
// worker registered for their type.
type JobWorker interface {
	JobType() models.JobType
	// Timeout is the hard per-attempt execution budget for this job type.
	Timeout() time.Duration
	Execute(ctx context.Context, job *models.SyncJob) (*models.JobResult, error)
}
