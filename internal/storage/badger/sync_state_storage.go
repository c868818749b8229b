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

// SyncStateStorage keeps the per-store "last indexed" bookkeeping.
type SyncStateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSyncStateStorage creates the sync state storage service.
func NewSyncStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SyncStateStorage {
	return &SyncStateStorage{db: db, logger: logger}
}

// SaveSyncState inserts or updates the store's sync state.
func (s *SyncStateStorage) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if err := s.db.Store().Upsert(state.StoreID, state); err != nil {
		return fmt.Errorf("failed to save sync state for store %s: %w", state.StoreID, err)
	}
	return nil
}

// GetSyncState returns the store's sync state or nil when it never synced.
func (s *SyncStateStorage) GetSyncState(ctx context.Context, storeID string) (*models.SyncState, error) {
	var state models.SyncState
	err := s.db.Store().Get(storeID, &state)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for store %s: %w", storeID, err)
	}
	return &state, nil
}

// ListSyncStates returns every store's sync state.
func (s *SyncStateStorage) ListSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	var states []models.SyncState
	if err := s.db.Store().Find(&states, nil); err != nil {
		return nil, fmt.Errorf("failed to list sync states: %w", err)
	}
	result := make([]*models.SyncState, len(states))
	for i := range states {
		result[i] = &states[i]
	}
	return result, nil
}

// DeleteSyncState removes the store's sync state during teardown.
func (s *SyncStateStorage) DeleteSyncState(ctx context.Context, storeID string) error {
	err := s.db.Store().Delete(storeID, &models.SyncState{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete sync state for store %s: %w", storeID, err)
	}
	return nil
}
