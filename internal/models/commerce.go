package models

import "time"

// StoreCredentials is supplied by the account/session collaborator for each
// sync run. The access token is guaranteed non-expired by the token manager;
// the core never refreshes tokens itself.
type StoreCredentials struct {
	StoreID     string `json:"store_id"`
	AccessToken string `json:"access_token"`
	APIBaseURL  string `json:"api_base_url"`
	// PrimaryLocale drives multi-locale text resolution for this store.
	PrimaryLocale string `json:"primary_locale"`
}

// LocalizedString is a multi-locale text field as returned by the commerce
// platform, e.g. {"es": "Zapatos", "en": "Shoes"}.
type LocalizedString map[string]string

// Resolve returns a single display string using a deterministic precedence:
// the primary locale, then each locale in the declared fallback order, then
// any remaining locale in sorted key order, then the fallback literal.
// A raw structured value is never surfaced as display text.
func (ls LocalizedString) Resolve(primary string, fallbacks []string, literal string) string {
	if len(ls) == 0 {
		return literal
	}
	if v, ok := ls[primary]; ok && v != "" {
		return v
	}
	for _, loc := range fallbacks {
		if v, ok := ls[loc]; ok && v != "" {
			return v
		}
	}
	// Deterministic pick among whatever locales remain.
	best := ""
	for loc, v := range ls {
		if v == "" {
			continue
		}
		if best == "" || loc < best {
			best = loc
		}
	}
	if best != "" {
		return ls[best]
	}
	return literal
}

// SourceRecord is the normalized output of a connector: one source entity
// flattened to display text plus typed metadata, tagged for incremental sync.
type SourceRecord struct {
	SourceID  string                 `json:"source_id"`
	DataType  DataType               `json:"data_type"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Product is a catalog entry from the commerce platform.
type Product struct {
	ID          string          `json:"id"`
	Title       LocalizedString `json:"title"`
	Description LocalizedString `json:"description"`
	Price       float64         `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int             `json:"stock"`
	Categories  []string        `json:"categories"`
	PublishedAt *time.Time      `json:"published_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Order is a purchase record from the commerce platform.
type Order struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customer_id"`
	Status      string      `json:"status"`
	Total       float64     `json:"total"`
	Currency    string      `json:"currency"`
	Items       []OrderItem `json:"items"`
	PlacedAt    *time.Time  `json:"placed_at"`
	FulfilledAt *time.Time  `json:"fulfilled_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      LocalizedString `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice float64         `json:"unit_price"`
}

// Customer is a buyer profile from the commerce platform.
type Customer struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	OrdersCount int        `json:"orders_count"`
	TotalSpent  float64    `json:"total_spent"`
	LastOrderAt *time.Time `json:"last_order_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AnalyticsSnapshot is one reporting period of store analytics.
type AnalyticsSnapshot struct {
	ID          string    `json:"id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Visits      int       `json:"visits"`
	Revenue     float64   `json:"revenue"`
	OrderCount  int       `json:"order_count"`
	TopProducts []string  `json:"top_products"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConversationThread is an assistant conversation transcript.
type ConversationThread struct {
	ID        string                `json:"id"`
	Channel   string                `json:"channel"`
	Messages  []ConversationMessage `json:"messages"`
	StartedAt *time.Time            `json:"started_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ConversationMessage is one turn of a conversation.
type ConversationMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// StoreProfile describes the store itself.
type StoreProfile struct {
	ID          string          `json:"id"`
	Name        LocalizedString `json:"name"`
	Description LocalizedString `json:"description"`
	Domain      string          `json:"domain"`
	Plan        string          `json:"plan"`
	Locale      string          `json:"locale"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SyncState is the per-store bookkeeping the core keeps about indexing runs.
type SyncState struct {
	StoreID       string     `json:"store_id" badgerhold:"key"`
	LastIndexedAt *time.Time `json:"last_indexed_at,omitempty"`
	LastJobID     string     `json:"last_job_id,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	DocumentCount int        `json:"document_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SyncStatusValue summarizes where a store stands in the sync lifecycle.
type SyncStatusValue string

const (
	SyncStatusNeverSynced SyncStatusValue = "never_synced"
	SyncStatusSyncing     SyncStatusValue = "syncing"
	SyncStatusSynced      SyncStatusValue = "synced"
	SyncStatusNeedsSync   SyncStatusValue = "needs_sync"
	SyncStatusError       SyncStatusValue = "error"
)

// SyncStatusReport is the user-facing sync summary for one store.
type SyncStatusReport struct {
	StoreID         string          `json:"store_id"`
	SyncStatus      SyncStatusValue `json:"sync_status"`
	HasData         bool            `json:"has_data"`
	LastIndexedAt   *time.Time      `json:"last_indexed_at,omitempty"`
	Recommendations []string        `json:"recommendations"`
}
