package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// Service builds and tears down one store's partitioned index. Each data
// type is fetched, embedded and upserted independently so one bad partition
// cannot poison the others.
type Service struct {
	connectors  map[models.DataType]interfaces.SourceConnector
	embedder    interfaces.EmbeddingService
	vectorStore interfaces.VectorStore
	lockService interfaces.LockService
	syncStates  interfaces.SyncStateStorage
	logger      arbor.ILogger
}

// NewService creates the indexer.
func NewService(
	connectors map[models.DataType]interfaces.SourceConnector,
	embedder interfaces.EmbeddingService,
	vectorStore interfaces.VectorStore,
	lockService interfaces.LockService,
	syncStates interfaces.SyncStateStorage,
	logger arbor.ILogger,
) interfaces.IndexerService {
	return &Service{
		connectors:  connectors,
		embedder:    embedder,
		vectorStore: vectorStore,
		lockService: lockService,
		syncStates:  syncStates,
		logger:      logger,
	}
}

// IndexStoreData runs a full index across every data type.
func (s *Service) IndexStoreData(ctx context.Context, creds *models.StoreCredentials) (*models.IndexReport, error) {
	return s.run(ctx, creds, models.AllDataTypes(), false)
}

// CleanupSync deletes the requested namespaces before re-indexing them, so
// documents orphaned by mapping changes do not survive. Empty dataTypes
// means all of them.
func (s *Service) CleanupSync(ctx context.Context, creds *models.StoreCredentials, dataTypes []models.DataType) (*models.IndexReport, error) {
	if len(dataTypes) == 0 {
		dataTypes = models.AllDataTypes()
	}
	return s.run(ctx, creds, dataTypes, true)
}

func (s *Service) run(ctx context.Context, creds *models.StoreCredentials, dataTypes []models.DataType, cleanup bool) (*models.IndexReport, error) {
	if lock := s.lockService.CheckLock(creds.StoreID); lock != nil {
		return nil, &models.StoreLockedError{StoreID: creds.StoreID, Reason: lock.Reason}
	}

	report := &models.IndexReport{
		StoreID:     creds.StoreID,
		PerDataType: make(map[models.DataType]models.IndexStats),
	}

	var lastErr error
	for _, dataType := range dataTypes {
		stats, err := s.indexDataType(ctx, creds, dataType, cleanup)
		report.PerDataType[dataType] = stats
		if err != nil {
			// Revoked credentials hit every connector the same way; bail out
			// instead of burning five more failed fetches.
			var reconnectErr *models.ReconnectRequiredError
			if errors.As(err, &reconnectErr) {
				s.recordSyncState(ctx, creds.StoreID, report, err)
				return report, err
			}
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			lastErr = err
			s.logger.Error().
				Str("store_id", creds.StoreID).
				Str("data_type", string(dataType)).
				Err(err).
				Msg("Data type indexing failed, continuing with remaining types")
		}
	}
	report.CompletedAt = time.Now().UTC()

	s.recordSyncState(ctx, creds.StoreID, report, lastErr)

	s.logger.Info().
		Str("store_id", creds.StoreID).
		Int("indexed", report.TotalIndexed()).
		Int("failed", report.TotalFailed()).
		Bool("cleanup", cleanup).
		Msg("Indexing run completed")

	return report, nil
}

func (s *Service) indexDataType(ctx context.Context, creds *models.StoreCredentials, dataType models.DataType, cleanup bool) (models.IndexStats, error) {
	stats := models.IndexStats{}

	connector, ok := s.connectors[dataType]
	if !ok {
		return stats, fmt.Errorf("no connector registered for data type %s", dataType)
	}

	if cleanup {
		if err := s.vectorStore.DeleteNamespace(ctx, creds.StoreID, dataType); err != nil {
			return stats, fmt.Errorf("failed to clear namespace before re-index: %w", err)
		}
	}

	fetched, err := connector.Fetch(ctx, creds, "")
	if err != nil {
		return stats, fmt.Errorf("fetch failed for %s: %w", dataType, err)
	}
	stats.Skipped = fetched.Skipped

	if len(fetched.Records) == 0 {
		return stats, nil
	}

	docs, dropped, err := s.embedder.EmbedRecords(ctx, creds.StoreID, fetched.Records)
	if err != nil {
		stats.Failed += len(fetched.Records)
		return stats, fmt.Errorf("embedding failed for %s: %w", dataType, err)
	}
	stats.Failed += dropped

	indexed, err := s.vectorStore.Upsert(ctx, creds.StoreID, dataType, docs)
	if err != nil {
		stats.Failed += len(docs)
		return stats, fmt.Errorf("upsert failed for %s: %w", dataType, err)
	}
	stats.Indexed = indexed

	s.logger.Debug().
		Str("store_id", creds.StoreID).
		Str("data_type", string(dataType)).
		Int("indexed", stats.Indexed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Data type indexed")

	return stats, nil
}

func (s *Service) recordSyncState(ctx context.Context, storeID string, report *models.IndexReport, runErr error) {
	now := time.Now().UTC()
	state := &models.SyncState{
		StoreID:       storeID,
		LastIndexedAt: &now,
		DocumentCount: report.TotalIndexed(),
		UpdatedAt:     now,
	}
	if runErr != nil {
		state.LastError = runErr.Error()
	}
	if err := s.syncStates.SaveSyncState(ctx, state); err != nil {
		s.logger.Warn().
			Str("store_id", storeID).
			Err(err).
			Msg("Failed to record sync state")
	}
}

// DeleteStoreData removes every namespace and all sync bookkeeping for the
// store. The deletion lock is taken first and released on every path.
func (s *Service) DeleteStoreData(ctx context.Context, storeID string) error {
	if replaced := s.lockService.LockForDeletion(storeID, "store_deletion"); replaced != nil {
		s.logger.Warn().
			Str("store_id", storeID).
			Str("previous_reason", replaced.Reason).
			Msg("Deletion started while another lock was live")
	}
	defer s.lockService.Unlock(storeID)

	if err := s.vectorStore.DeleteAllNamespaces(ctx, storeID); err != nil {
		return fmt.Errorf("failed to delete store namespaces: %w", err)
	}

	if err := s.syncStates.DeleteSyncState(ctx, storeID); err != nil {
		s.logger.Warn().
			Str("store_id", storeID).
			Err(err).
			Msg("Failed to delete sync state")
	}

	s.logger.Info().
		Str("store_id", storeID).
		Msg("Store knowledge base deleted")

	return nil
}
