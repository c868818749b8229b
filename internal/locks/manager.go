// Deletion lock registry - prevents index mutation/read races during store teardown.

package locks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

const (
	// DefaultTTL is the age past which a lock is treated as absent by any
	// reader and purged by the next status check.
	DefaultTTL = 10 * time.Second

	// pollInterval is how often WaitForUnlock re-checks the registry.
	pollInterval = 100 * time.Millisecond
)

// Manager is the process-local deletion lock registry. All mutation goes
// through its methods; in a multi-instance deployment it only protects
// against races within one process.
type Manager struct {
	mu     sync.Mutex
	locks  map[string]*models.DeletionLock
	ttl    time.Duration
	logger arbor.ILogger
}

// NewManager creates a lock manager with the default TTL.
func NewManager(logger arbor.ILogger) interfaces.LockService {
	return NewManagerWithTTL(DefaultTTL, logger)
}

// NewManagerWithTTL creates a lock manager with a custom TTL (used by tests
// that exercise expiry without waiting out the full window).
func NewManagerWithTTL(ttl time.Duration, logger arbor.ILogger) interfaces.LockService {
	return &Manager{
		locks:  make(map[string]*models.DeletionLock),
		ttl:    ttl,
		logger: logger,
	}
}

// LockForDeletion sets the lock unconditionally; the last caller wins.
// Deletion is rare and single-initiator in practice, so last-writer-wins is
// accepted instead of full mutual exclusion. When a live lock held for a
// different reason is overwritten, the replaced lock is returned and a
// warning logged so concurrent-initiator races stay observable.
func (m *Manager) LockForDeletion(storeID, reason string) *models.DeletionLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	var replaced *models.DeletionLock
	if existing, ok := m.locks[storeID]; ok && existing.Age() <= m.ttl {
		replaced = existing
		if existing.Reason != reason {
			m.logger.Warn().
				Str("store_id", storeID).
				Str("held_reason", existing.Reason).
				Str("new_reason", reason).
				Msg("Overwriting live deletion lock held for a different reason")
		}
	}

	m.locks[storeID] = &models.DeletionLock{
		StoreID:  storeID,
		LockedAt: time.Now(),
		Reason:   reason,
	}

	return replaced
}

// CheckLock purges stale entries, then reports the live lock for the store
// or nil when unlocked.
func (m *Manager) CheckLock(storeID string) *models.LockStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeStaleLocked()

	lock, ok := m.locks[storeID]
	if !ok {
		return nil
	}

	age := lock.Age()
	return &models.LockStatus{
		StoreID: storeID,
		Reason:  lock.Reason,
		AgeMs:   age.Milliseconds(),
		Age:     age,
	}
}

// Unlock releases the lock after teardown completes. Unlocking an absent
// lock is a no-op.
func (m *Manager) Unlock(storeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, storeID)
}

// WaitForUnlock polls until the store is unlocked or the timeout elapses.
// On timeout it force-unlocks and returns false rather than blocking
// forever: an explicit availability-over-strict-consistency tradeoff.
func (m *Manager) WaitForUnlock(ctx context.Context, storeID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if m.CheckLock(storeID) == nil {
			return true
		}
		if time.Now().After(deadline) {
			m.logger.Warn().
				Str("store_id", storeID).
				Dur("timeout", timeout).
				Msg("Lock wait timed out, force-unlocking (possible race with deletion)")
			m.Unlock(storeID)
			return false
		}
		select {
		case <-ctx.Done():
			return m.CheckLock(storeID) == nil
		case <-ticker.C:
		}
	}
}

// GetStatus returns all live locks for observability, sorted by store ID.
func (m *Manager) GetStatus() []models.LockStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeStaleLocked()

	statuses := make([]models.LockStatus, 0, len(m.locks))
	for storeID, lock := range m.locks {
		age := lock.Age()
		statuses = append(statuses, models.LockStatus{
			StoreID: storeID,
			Reason:  lock.Reason,
			AgeMs:   age.Milliseconds(),
			Age:     age,
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].StoreID < statuses[j].StoreID
	})

	return statuses
}

// purgeStaleLocked drops locks older than the TTL. Callers must hold m.mu.
func (m *Manager) purgeStaleLocked() {
	for storeID, lock := range m.locks {
		if lock.Age() > m.ttl {
			m.logger.Debug().
				Str("store_id", storeID).
				Dur("age", lock.Age()).
				Msg("Purging stale deletion lock")
			delete(m.locks, storeID)
		}
	}
}
