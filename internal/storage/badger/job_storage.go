package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage persists sync jobs in badgerhold so job status survives
// restarts.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates the job storage service.
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{db: db, logger: logger}
}

// SaveJob inserts or updates a job keyed by its job ID.
func (s *JobStorage) SaveJob(ctx context.Context, job *models.SyncJob) error {
	if err := s.db.Store().Upsert(job.JobID, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.JobID, err)
	}
	return nil
}

// GetJob returns the job or nil when unknown.
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	var job models.SyncJob
	err := s.db.Store().Get(jobID, &job)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &job, nil
}

// GetInFlightJob returns the pending or running job for (type, store), used
// to coalesce duplicate submissions.
func (s *JobStorage) GetInFlightJob(ctx context.Context, jobType models.JobType, storeID string) (*models.SyncJob, error) {
	var jobs []models.SyncJob
	err := s.db.Store().Find(&jobs,
		badgerhold.Where("StoreID").Eq(storeID).
			And("Type").Eq(jobType).
			And("Status").In(models.JobStatusPending, models.JobStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to query in-flight jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// ListJobsByStore returns every stored job for the store.
func (s *JobStorage) ListJobsByStore(ctx context.Context, storeID string) ([]*models.SyncJob, error) {
	var jobs []models.SyncJob
	err := s.db.Store().Find(&jobs, badgerhold.Where("StoreID").Eq(storeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for store %s: %w", storeID, err)
	}
	result := make([]*models.SyncJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// DeleteJobsByStore removes the store's job history, part of store teardown.
func (s *JobStorage) DeleteJobsByStore(ctx context.Context, storeID string) error {
	err := s.db.Store().DeleteMatching(&models.SyncJob{}, badgerhold.Where("StoreID").Eq(storeID))
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete jobs for store %s: %w", storeID, err)
	}
	return nil
}
