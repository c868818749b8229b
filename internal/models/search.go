package models

import "time"

// SearchContext identifies who is searching and which store partition the
// query runs against. Authorization happens upstream; the core trusts the
// store ID it is handed.
type SearchContext struct {
	StoreID   string `json:"store_id"`
	AgentType string `json:"agent_type,omitempty"`
}

// LockWaitMode selects how search behaves when the store is locked for
// deletion.
type LockWaitMode string

const (
	// LockWaitBrief polls for unlock up to a short timeout before giving up.
	LockWaitBrief LockWaitMode = "wait"
	// LockWaitNone returns an empty, temporarily-unavailable result at once.
	LockWaitNone LockWaitMode = "none"
)

// SearchOptions tunes one search call.
type SearchOptions struct {
	TopK           int          `json:"top_k"`
	ScoreThreshold float64      `json:"score_threshold"`
	LockWait       LockWaitMode `json:"lock_wait,omitempty"`
}

// SearchFilters restricts which namespaces are queried.
type SearchFilters struct {
	DataTypes []DataType `json:"data_types,omitempty"`
}

// Candidate is a raw nearest-neighbor hit returned by the vector store
// before reranking.
type Candidate struct {
	DocumentID      string                 `json:"document_id"`
	StoreID         string                 `json:"store_id"`
	DataType        DataType               `json:"data_type"`
	SourceID        string                 `json:"source_id"`
	SourceUpdatedAt time.Time              `json:"source_updated_at"`
	Text            string                 `json:"text"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Score           float64                `json:"score"`
}

// SearchResult is one ranked passage with provenance for citation.
// Results are ephemeral; nothing here is persisted.
type SearchResult struct {
	DocumentID      string    `json:"document_id"`
	DataType        DataType  `json:"data_type"`
	SourceID        string    `json:"source_id"`
	SourceUpdatedAt time.Time `json:"source_updated_at"`
	Excerpt         string    `json:"excerpt"`
	SemanticScore   float64   `json:"semantic_score"`
	KeywordScore    float64   `json:"keyword_score"`
	FinalScore      float64   `json:"final_score"`
}

// SearchResponse wraps ranked results with an availability status so callers
// can distinguish "no matches" from "store briefly unavailable mid-deletion".
type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	Unavailable bool           `json:"unavailable,omitempty"`
}
