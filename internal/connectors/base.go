// Connectors pull entities from the commerce platform and normalize them
// into source records. The sinceCursor handed to Fetch is the RFC3339
// timestamp of the previous run's newest record; connectors pass it to the
// platform as updated_since and return the new high-water mark as NextCursor.

package connectors

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/commerce"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/models"
)

// maxPagesDefault caps runaway pagination when the platform keeps returning
// cursors.
const maxPagesDefault = 100

type base struct {
	client    *commerce.Client
	fallbacks []string
	maxPages  int
	logger    arbor.ILogger
}

func newBase(client *commerce.Client, config *common.CommerceConfig, logger arbor.ILogger) base {
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = maxPagesDefault
	}
	return base{
		client:    client,
		fallbacks: config.FallbackLocales,
		maxPages:  maxPages,
		logger:    logger,
	}
}

// resolve flattens a localized field to display text for the store's
// primary locale.
func (b base) resolve(ls models.LocalizedString, creds *models.StoreCredentials, literal string) string {
	return ls.Resolve(creds.PrimaryLocale, b.fallbacks, literal)
}

// cursorAfter advances the incremental high-water mark past ts.
func cursorAfter(current string, ts time.Time) string {
	if ts.IsZero() {
		return current
	}
	candidate := ts.UTC().Format(time.RFC3339)
	if candidate > current {
		return candidate
	}
	return current
}

// fetchAll drains a cursor-paged listing up to the page cap.
func fetchAll[T any](ctx context.Context, b base, fetch func(ctx context.Context, cursor string) (*commerce.Page[T], error)) ([]T, error) {
	var items []T
	cursor := ""
	for page := 0; page < b.maxPages; page++ {
		result, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if result.NextCursor == "" {
			return items, nil
		}
		cursor = result.NextCursor
	}
	b.logger.Warn().
		Int("max_pages", b.maxPages).
		Msg("Pagination cap reached, returning partial listing")
	return items, nil
}
