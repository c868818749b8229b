package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// FetchResult is the outcome of one connector run.
type FetchResult struct {
	Records []models.SourceRecord
	// NextCursor resumes an incremental sync; empty means exhausted.
	NextCursor string
	// Skipped counts malformed records dropped during normalization.
	Skipped int
}

// SourceConnector pulls and normalizes one kind of record from the external
// commerce platform. Connectors page until exhausted or a safety cap is hit,
// and fail soft: a single malformed record is skipped and counted, not fatal
// to the run.
type SourceConnector interface {
	// DataType returns the knowledge partition this connector feeds.
	DataType() models.DataType

	// Fetch pulls records modified since sinceCursor (empty for a full pull).
	Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*FetchResult, error)
}
