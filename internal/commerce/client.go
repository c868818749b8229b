// Commerce platform REST client. All list endpoints page with an opaque
// cursor; requests are rate limited client-side so one store's sync cannot
// exhaust the platform's per-app quota.

package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/models"
	"golang.org/x/time/rate"
)

// Client calls the external commerce platform API on behalf of one store at
// a time. Credentials are passed per call; the client itself is store-free
// and safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	logger     arbor.ILogger
}

// Page is one page of a cursor-paged listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

type listEnvelope struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

// NewClient creates a commerce client from configuration.
func NewClient(config *common.CommerceConfig, logger arbor.ILogger) *Client {
	rps := config.RequestsPerSec
	if rps <= 0 {
		rps = 4
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: common.Duration(config.RequestTimeout, 30*time.Second),
		},
		limiter:  rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		pageSize: pageSize,
		logger:   logger,
	}
}

// GetStoreProfile fetches the store's own profile record.
func (c *Client) GetStoreProfile(ctx context.Context, creds *models.StoreCredentials) (*models.StoreProfile, error) {
	var profile models.StoreProfile
	path := fmt.Sprintf("/v1/stores/%s", url.PathEscape(creds.StoreID))
	if err := c.get(ctx, creds, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProducts fetches one page of products modified since updatedSince.
func (c *Client) ListProducts(ctx context.Context, creds *models.StoreCredentials, cursor, updatedSince string) (*Page[models.Product], error) {
	return listPage[models.Product](ctx, c, creds, "products", cursor, updatedSince)
}

// ListOrders fetches one page of orders modified since updatedSince.
func (c *Client) ListOrders(ctx context.Context, creds *models.StoreCredentials, cursor, updatedSince string) (*Page[models.Order], error) {
	return listPage[models.Order](ctx, c, creds, "orders", cursor, updatedSince)
}

// ListCustomers fetches one page of customers modified since updatedSince.
func (c *Client) ListCustomers(ctx context.Context, creds *models.StoreCredentials, cursor, updatedSince string) (*Page[models.Customer], error) {
	return listPage[models.Customer](ctx, c, creds, "customers", cursor, updatedSince)
}

// ListAnalytics fetches one page of analytics snapshots.
func (c *Client) ListAnalytics(ctx context.Context, creds *models.StoreCredentials, cursor, updatedSince string) (*Page[models.AnalyticsSnapshot], error) {
	return listPage[models.AnalyticsSnapshot](ctx, c, creds, "analytics", cursor, updatedSince)
}

// ListConversations fetches one page of conversation threads.
func (c *Client) ListConversations(ctx context.Context, creds *models.StoreCredentials, cursor, updatedSince string) (*Page[models.ConversationThread], error) {
	return listPage[models.ConversationThread](ctx, c, creds, "conversations", cursor, updatedSince)
}

func listPage[T any](ctx context.Context, c *Client, creds *models.StoreCredentials, resource, cursor, updatedSince string) (*Page[T], error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if updatedSince != "" {
		params.Set("updated_since", updatedSince)
	}

	var envelope listEnvelope
	path := fmt.Sprintf("/v1/stores/%s/%s", url.PathEscape(creds.StoreID), resource)
	if err := c.get(ctx, creds, path, params, &envelope); err != nil {
		return nil, err
	}

	page := &Page[T]{NextCursor: envelope.NextCursor}
	for _, raw := range envelope.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			// Malformed items are the connector's problem to count; here we
			// cannot even type them, so drop with a warning.
			c.logger.Warn().
				Str("store_id", creds.StoreID).
				Str("resource", resource).
				Err(err).
				Msg("Dropping undecodable item from platform response")
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, creds *models.StoreCredentials, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := creds.APIBaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &models.ReconnectRequiredError{StoreID: creds.StoreID}
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("platform rate limit exceeded (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("platform returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}
