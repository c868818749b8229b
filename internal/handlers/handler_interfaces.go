package handlers

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// StatusService summarizes a store's sync lifecycle position.
type StatusService interface {
	GetSyncStatus(ctx context.Context, storeID string) (*models.SyncStatusReport, error)
}
