package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// Manager is the submission surface for background sync jobs. Submissions
// are persisted, enqueued and coalesced: while a (type, store) job is still
// pending or running, resubmitting returns the in-flight job's ID instead
// of queueing a duplicate.
type Manager struct {
	queue      interfaces.QueueManager
	jobStorage interfaces.JobStorage
	events     interfaces.EventService
	maxRetries int
	logger     arbor.ILogger
}

// NewManager creates the job manager.
func NewManager(
	queue interfaces.QueueManager,
	jobStorage interfaces.JobStorage,
	events interfaces.EventService,
	config *common.JobsConfig,
	logger arbor.ILogger,
) interfaces.JobService {
	return &Manager{
		queue:      queue,
		jobStorage: jobStorage,
		events:     events,
		maxRetries: config.MaxRetries,
		logger:     logger,
	}
}

// SubmitIndexJob schedules a full index of the store.
func (m *Manager) SubmitIndexJob(ctx context.Context, storeID string) (string, error) {
	return m.submit(ctx, models.JobTypeFullIndex, storeID, nil)
}

// SubmitCleanupJob schedules a delete-then-reindex of the given data types.
func (m *Manager) SubmitCleanupJob(ctx context.Context, storeID string, dataTypes []models.DataType) (string, error) {
	return m.submit(ctx, models.JobTypeCleanupSync, storeID, dataTypes)
}

// SubmitDeleteJob schedules teardown of the store's knowledge base.
func (m *Manager) SubmitDeleteJob(ctx context.Context, storeID string) (string, error) {
	return m.submit(ctx, models.JobTypeDelete, storeID, nil)
}

// GetJob returns the persisted state of a job, or nil when unknown.
func (m *Manager) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return m.jobStorage.GetJob(ctx, jobID)
}

func (m *Manager) submit(ctx context.Context, jobType models.JobType, storeID string, dataTypes []models.DataType) (string, error) {
	if storeID == "" {
		return "", fmt.Errorf("store ID is required")
	}

	inFlight, err := m.jobStorage.GetInFlightJob(ctx, jobType, storeID)
	if err != nil {
		return "", fmt.Errorf("failed to check in-flight jobs: %w", err)
	}
	if inFlight != nil {
		m.logger.Debug().
			Str("job_id", inFlight.JobID).
			Str("store_id", storeID).
			Str("type", string(jobType)).
			Msg("Coalescing duplicate submission onto in-flight job")
		return inFlight.JobID, nil
	}

	job := models.NewSyncJob(jobType, storeID, common.NewJobNonce(), m.maxRetries)
	job.DataTypes = dataTypes

	if err := m.jobStorage.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}
	if err := m.queue.Enqueue(ctx, job, 0); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.events.Publish(interfaces.Event{
		Type:    interfaces.EventJobQueued,
		JobID:   job.JobID,
		StoreID: storeID,
		JobType: jobType,
	})

	m.logger.Info().
		Str("job_id", job.JobID).
		Str("store_id", storeID).
		Str("type", string(jobType)).
		Msg("Job submitted")

	return job.JobID, nil
}
