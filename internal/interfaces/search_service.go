package interfaces

import (
	"context"

	"github.com/ternarybob/taberna/internal/models"
)

// SearchService answers conversational agents' retrieval queries with hybrid
// (semantic + keyword) ranking over a store's namespaces.
type SearchService interface {
	Search(ctx context.Context, query string, sctx models.SearchContext, opts models.SearchOptions, filters models.SearchFilters) (*models.SearchResponse, error)
}
