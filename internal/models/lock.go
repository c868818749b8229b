package models

import "time"

// DeletionLock marks a store whose knowledge base is being torn down.
// At most one lock exists per store ID. A lock older than the manager's TTL
// is treated as absent by readers and purged on the next status check.
type DeletionLock struct {
	StoreID  string    `json:"store_id"`
	LockedAt time.Time `json:"locked_at"`
	Reason   string    `json:"reason"`
}

// Age returns how long the lock has been held.
func (l *DeletionLock) Age() time.Duration {
	return time.Since(l.LockedAt)
}

// LockStatus is the observable state of one lock, returned by CheckLock
// and GetStatus.
type LockStatus struct {
	StoreID string        `json:"store_id"`
	Reason  string        `json:"reason"`
	AgeMs   int64         `json:"age_ms"`
	Age     time.Duration `json:"-"`
}
