package models

import "fmt"

// StoreLockedError is returned when an operation is refused because the
// store's knowledge base is locked for deletion.
type StoreLockedError struct {
	StoreID string
	Reason  string
}

func (e *StoreLockedError) Error() string {
	return fmt.Sprintf("store %s is locked for deletion (reason: %s)", e.StoreID, e.Reason)
}

// SearchUnavailableError signals that the store's knowledge base is briefly
// unavailable (deletion in progress, or the embedding provider is down)
// rather than empty. Callers should retry shortly instead of treating it as
// "no results".
type SearchUnavailableError struct {
	StoreID string
}

func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("knowledge base for store %s is temporarily unavailable", e.StoreID)
}

// ReconnectRequiredError indicates the commerce platform rejected the store's
// credentials; the merchant must re-authorize before syncs can resume.
type ReconnectRequiredError struct {
	StoreID string
}

func (e *ReconnectRequiredError) Error() string {
	return fmt.Sprintf("store %s requires reconnection: credentials rejected by commerce platform", e.StoreID)
}
