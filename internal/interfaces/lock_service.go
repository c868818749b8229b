package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/taberna/internal/models"
)

// LockService is the process-wide deletion lock registry. It prevents index
// mutation/read races during store teardown within one process; multi-instance
// deployments need a distributed lease behind this same interface.
type LockService interface {
	// LockForDeletion sets the lock unconditionally (last caller wins) and
	// returns the lock it replaced, if any was still live.
	LockForDeletion(storeID, reason string) *models.DeletionLock

	// CheckLock purges stale entries, then reports the live lock for the
	// store, or nil when unlocked.
	CheckLock(storeID string) *models.LockStatus

	// Unlock releases the lock after teardown completes.
	Unlock(storeID string)

	// WaitForUnlock polls until the store is unlocked or the timeout
	// elapses. On timeout it force-unlocks and returns false so callers can
	// log the race; availability wins over strict consistency here.
	WaitForUnlock(ctx context.Context, storeID string, timeout time.Duration) bool

	// GetStatus returns all live locks for observability.
	GetStatus() []models.LockStatus
}
