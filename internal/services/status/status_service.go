package status

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// Service summarizes where a store stands in the sync lifecycle and
// recommends the next operation.
type Service struct {
	syncStates interfaces.SyncStateStorage
	jobStorage interfaces.JobStorage
	staleAfter time.Duration
	logger     arbor.ILogger
}

// NewService creates the status service.
func NewService(syncStates interfaces.SyncStateStorage, jobStorage interfaces.JobStorage, config *common.IndexingConfig, logger arbor.ILogger) *Service {
	return &Service{
		syncStates: syncStates,
		jobStorage: jobStorage,
		staleAfter: common.Duration(config.StaleAfter, 24*time.Hour),
		logger:     logger,
	}
}

// GetSyncStatus builds the user-facing sync summary for one store.
func (s *Service) GetSyncStatus(ctx context.Context, storeID string) (*models.SyncStatusReport, error) {
	report := &models.SyncStatusReport{
		StoreID:         storeID,
		Recommendations: []string{},
	}

	state, err := s.syncStates.GetSyncState(ctx, storeID)
	if err != nil {
		return nil, err
	}

	inFlight, err := s.jobStorage.GetInFlightJob(ctx, models.JobTypeFullIndex, storeID)
	if err != nil {
		return nil, err
	}
	if inFlight == nil {
		inFlight, err = s.jobStorage.GetInFlightJob(ctx, models.JobTypeCleanupSync, storeID)
		if err != nil {
			return nil, err
		}
	}

	if state != nil {
		report.HasData = state.DocumentCount > 0
		report.LastIndexedAt = state.LastIndexedAt
	}

	switch {
	case inFlight != nil:
		report.SyncStatus = models.SyncStatusSyncing
		report.Recommendations = append(report.Recommendations, "a sync is already running, wait for it to finish")

	case state == nil || state.LastIndexedAt == nil:
		report.SyncStatus = models.SyncStatusNeverSynced
		report.Recommendations = append(report.Recommendations, "run a full index to build the knowledge base")

	case state.LastError != "":
		report.SyncStatus = models.SyncStatusError
		report.Recommendations = append(report.Recommendations, "last sync ended with an error, re-run the full index")

	case time.Since(*state.LastIndexedAt) > s.staleAfter:
		report.SyncStatus = models.SyncStatusNeedsSync
		report.Recommendations = append(report.Recommendations, "indexed data is stale, run a full index to refresh it")

	default:
		report.SyncStatus = models.SyncStatusSynced
	}

	if report.SyncStatus == models.SyncStatusSynced && !report.HasData {
		report.Recommendations = append(report.Recommendations, "last sync indexed no documents, check the store's catalog")
	}

	return report, nil
}
