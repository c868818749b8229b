package models

import (
	"encoding/json"
	"time"
)

// DataType identifies the knowledge partition a document belongs to.
// Together with the store ID it forms the vector store namespace.
type DataType string

const (
	DataTypeStore         DataType = "store"
	DataTypeProducts      DataType = "products"
	DataTypeOrders        DataType = "orders"
	DataTypeCustomers     DataType = "customers"
	DataTypeAnalytics     DataType = "analytics"
	DataTypeConversations DataType = "conversations"
)

// AllDataTypes lists every data type in a fixed order. Indexing and search
// iterate this list when the caller does not restrict data types.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeStore,
		DataTypeProducts,
		DataTypeOrders,
		DataTypeCustomers,
		DataTypeAnalytics,
		DataTypeConversations,
	}
}

// IsValidDataType reports whether s names a known data type.
func IsValidDataType(s string) bool {
	switch DataType(s) {
	case DataTypeStore, DataTypeProducts, DataTypeOrders,
		DataTypeCustomers, DataTypeAnalytics, DataTypeConversations:
		return true
	}
	return false
}

// Document is a retrievable unit of store knowledge.
//
// The ID is deterministic from (storeID, dataType, sourceID, chunkIndex) so
// re-indexing the same source record overwrites rather than duplicates.
type Document struct {
	ID       string   `json:"id"`
	StoreID  string   `json:"store_id"`
	DataType DataType `json:"data_type"`

	// Text is the chunk content sent to the embedding provider and returned
	// as the passage excerpt in search results.
	Text string `json:"text"`

	// Source tracking for incremental sync and citation provenance.
	SourceID        string    `json:"source_id"`
	SourceUpdatedAt time.Time `json:"source_updated_at"`
	ChunkIndex      int       `json:"chunk_index"`

	// Metadata holds the per-data-type fields (see the typed metadata
	// variants below). Stored as a map for the vector store payload.
	Metadata map[string]interface{} `json:"metadata"`

	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductMetadata carries the fields valid only for product documents.
type ProductMetadata struct {
	ProductID   string     `json:"product_id"`
	Title       string     `json:"title"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	Stock       int        `json:"stock"`
	Categories  []string   `json:"categories,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// OrderMetadata carries the fields valid only for order documents.
type OrderMetadata struct {
	OrderID     string     `json:"order_id"`
	CustomerID  string     `json:"customer_id"`
	Total       float64    `json:"total"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	ItemCount   int        `json:"item_count"`
	PlacedAt    *time.Time `json:"placed_at,omitempty"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}

// CustomerMetadata carries the fields valid only for customer documents.
type CustomerMetadata struct {
	CustomerID  string     `json:"customer_id"`
	Email       string     `json:"email"`
	OrdersCount int        `json:"orders_count"`
	TotalSpent  float64    `json:"total_spent"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty"`
}

// AnalyticsMetadata carries the fields valid only for analytics documents.
type AnalyticsMetadata struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Visits      int       `json:"visits"`
	Revenue     float64   `json:"revenue"`
	OrderCount  int       `json:"order_count"`
}

// ConversationMetadata carries the fields valid only for conversation documents.
type ConversationMetadata struct {
	ConversationID string     `json:"conversation_id"`
	Channel        string     `json:"channel"`
	MessageCount   int        `json:"message_count"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// StoreMetadata carries the fields valid only for store profile documents.
type StoreMetadata struct {
	StoreName string `json:"store_name"`
	Domain    string `json:"domain"`
	Plan      string `json:"plan"`
	Locale    string `json:"locale"`
}

// ToMap converts typed metadata to a map for the vector store payload.
func (p *ProductMetadata) ToMap() (map[string]interface{}, error)      { return metadataToMap(p) }
func (o *OrderMetadata) ToMap() (map[string]interface{}, error)        { return metadataToMap(o) }
func (c *CustomerMetadata) ToMap() (map[string]interface{}, error)     { return metadataToMap(c) }
func (a *AnalyticsMetadata) ToMap() (map[string]interface{}, error)    { return metadataToMap(a) }
func (c *ConversationMetadata) ToMap() (map[string]interface{}, error) { return metadataToMap(c) }
func (s *StoreMetadata) ToMap() (map[string]interface{}, error)        { return metadataToMap(s) }

func metadataToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// IndexStats reports per-data-type indexing outcomes.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IndexReport aggregates IndexStats across data types for one indexing run.
type IndexReport struct {
	StoreID     string                  `json:"store_id"`
	PerDataType map[DataType]IndexStats `json:"per_data_type"`
	CompletedAt time.Time               `json:"completed_at"`
}

// TotalIndexed sums indexed counts across all data types.
func (r *IndexReport) TotalIndexed() int {
	total := 0
	for _, stats := range r.PerDataType {
		total += stats.Indexed
	}
	return total
}

// TotalFailed sums failed counts across all data types.
func (r *IndexReport) TotalFailed() int {
	total := 0
	for _, stats := range r.PerDataType {
		total += stats.Failed
	}
	return total
}
