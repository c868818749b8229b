package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// IndexWorker executes full_index jobs.
type IndexWorker struct {
	accounts interfaces.AccountStore
	indexer  interfaces.IndexerService
	timeout  time.Duration
}

// NewIndexWorker creates the full index worker.
func NewIndexWorker(accounts interfaces.AccountStore, indexer interfaces.IndexerService, config *common.JobsConfig) interfaces.JobWorker {
	return &IndexWorker{
		accounts: accounts,
		indexer:  indexer,
		timeout:  common.Duration(config.IndexTimeout, 120*time.Second),
	}
}

func (w *IndexWorker) JobType() models.JobType { return models.JobTypeFullIndex }
func (w *IndexWorker) Timeout() time.Duration  { return w.timeout }

func (w *IndexWorker) Execute(ctx context.Context, job *models.SyncJob) (*models.JobResult, error) {
	creds, err := w.accounts.GetCredentials(ctx, job.StoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store credentials: %w", err)
	}

	report, err := w.indexer.IndexStoreData(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &models.JobResult{
		JobID:      job.JobID,
		Success:    true,
		Operations: reportOperations(report),
	}, nil
}

// CleanupWorker executes cleanup_sync jobs.
type CleanupWorker struct {
	accounts interfaces.AccountStore
	indexer  interfaces.IndexerService
	timeout  time.Duration
}

// NewCleanupWorker creates the cleanup sync worker.
func NewCleanupWorker(accounts interfaces.AccountStore, indexer interfaces.IndexerService, config *common.JobsConfig) interfaces.JobWorker {
	return &CleanupWorker{
		accounts: accounts,
		indexer:  indexer,
		timeout:  common.Duration(config.CleanupTimeout, 120*time.Second),
	}
}

func (w *CleanupWorker) JobType() models.JobType { return models.JobTypeCleanupSync }
func (w *CleanupWorker) Timeout() time.Duration  { return w.timeout }

func (w *CleanupWorker) Execute(ctx context.Context, job *models.SyncJob) (*models.JobResult, error) {
	creds, err := w.accounts.GetCredentials(ctx, job.StoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store credentials: %w", err)
	}

	report, err := w.indexer.CleanupSync(ctx, creds, job.DataTypes)
	if err != nil {
		return nil, err
	}
	return &models.JobResult{
		JobID:      job.JobID,
		Success:    true,
		Operations: reportOperations(report),
	}, nil
}

// DeleteWorker executes delete jobs: tears down the store's namespaces and
// its job history.
type DeleteWorker struct {
	indexer    interfaces.IndexerService
	jobStorage interfaces.JobStorage
	timeout    time.Duration
}

// NewDeleteWorker creates the store deletion worker.
func NewDeleteWorker(indexer interfaces.IndexerService, jobStorage interfaces.JobStorage, config *common.JobsConfig) interfaces.JobWorker {
	return &DeleteWorker{
		indexer:    indexer,
		jobStorage: jobStorage,
		timeout:    common.Duration(config.DeleteTimeout, 45*time.Second),
	}
}

func (w *DeleteWorker) JobType() models.JobType { return models.JobTypeDelete }
func (w *DeleteWorker) Timeout() time.Duration  { return w.timeout }

func (w *DeleteWorker) Execute(ctx context.Context, job *models.SyncJob) (*models.JobResult, error) {
	if err := w.indexer.DeleteStoreData(ctx, job.StoreID); err != nil {
		return nil, err
	}
	// Drop the store's job history too; the processor re-persists this
	// job's terminal state after Execute returns.
	if err := w.jobStorage.DeleteJobsByStore(ctx, job.StoreID); err != nil {
		return nil, fmt.Errorf("store data deleted but job history cleanup failed: %w", err)
	}
	return &models.JobResult{
		JobID:      job.JobID,
		Success:    true,
		Operations: []string{"deleted all namespaces", "deleted job history"},
	}, nil
}

func reportOperations(report *models.IndexReport) []string {
	ops := make([]string, 0, len(report.PerDataType))
	for _, dataType := range models.AllDataTypes() {
		stats, ok := report.PerDataType[dataType]
		if !ok {
			continue
		}
		ops = append(ops, fmt.Sprintf("%s: indexed=%d skipped=%d failed=%d",
			dataType, stats.Indexed, stats.Skipped, stats.Failed))
	}
	return ops
}
