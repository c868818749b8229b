package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// Namespace builds the vector database namespace for one store partition.
func Namespace(storeID string, dataType models.DataType) string {
	return storeID + ":" + string(dataType)
}

// HTTPClient talks to the external vector database over its JSON REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  arbor.ILogger
}

// NewHTTPClient creates a vector store client from configuration.
func NewHTTPClient(config *common.VectorStoreConfig, logger arbor.ILogger) interfaces.VectorStore {
	return &HTTPClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client: &http.Client{
			Timeout: common.Duration(config.Timeout, 30*time.Second),
		},
		logger: logger,
	}
}

type upsertRequest struct {
	Documents []upsertDocument `json:"documents"`
}

type upsertDocument struct {
	ID       string                 `json:"id"`
	Vector   []float32              `json:"vector"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type upsertResponse struct {
	Upserted int `json:"upserted"`
}

type queryRequest struct {
	Vector         []float32 `json:"vector"`
	TopK           int       `json:"top_k"`
	ScoreThreshold float64   `json:"score_threshold"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

type queryMatch struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Upsert writes documents into the namespace for (storeID, dataType).
func (c *HTTPClient) Upsert(ctx context.Context, storeID string, dataType models.DataType, docs []*models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	ns := Namespace(storeID, dataType)
	req := upsertRequest{Documents: make([]upsertDocument, 0, len(docs))}
	for _, doc := range docs {
		meta := map[string]interface{}{
			"store_id":          doc.StoreID,
			"data_type":         string(doc.DataType),
			"source_id":         doc.SourceID,
			"source_updated_at": doc.SourceUpdatedAt.UTC().Format(time.RFC3339),
			"chunk_index":       doc.ChunkIndex,
		}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		req.Documents = append(req.Documents, upsertDocument{
			ID:       doc.ID,
			Vector:   doc.Embedding,
			Text:     doc.Text,
			Metadata: meta,
		})
	}

	var resp upsertResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/namespaces/%s/documents", ns), req, &resp); err != nil {
		return 0, &Error{Op: "upsert", Namespace: ns, StatusCode: statusOf(err), Err: err}
	}

	c.logger.Debug().
		Str("namespace", ns).
		Int("count", resp.Upserted).
		Msg("Upserted documents")

	return resp.Upserted, nil
}

// Query fans out one nearest-neighbor query per data type and merges the
// candidates. A namespace that does not exist contributes nothing; a
// namespace that errors is skipped with a warning so one bad partition
// cannot blank the whole result. The call fails only when every queried
// namespace fails.
func (c *HTTPClient) Query(ctx context.Context, storeID string, dataTypes []models.DataType, vector []float32, topK int, scoreThreshold float64) ([]models.Candidate, error) {
	if len(dataTypes) == 0 {
		dataTypes = models.AllDataTypes()
	}

	var candidates []models.Candidate
	var lastErr error
	failed := 0

	for _, dataType := range dataTypes {
		ns := Namespace(storeID, dataType)
		req := queryRequest{Vector: vector, TopK: topK, ScoreThreshold: scoreThreshold}

		var resp queryResponse
		err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/namespaces/%s/query", ns), req, &resp)
		if err != nil {
			if statusOf(err) == http.StatusNotFound {
				continue
			}
			failed++
			lastErr = &Error{Op: "query", Namespace: ns, StatusCode: statusOf(err), Err: err}
			c.logger.Warn().
				Str("namespace", ns).
				Err(err).
				Msg("Namespace query failed, skipping data type")
			continue
		}

		for _, match := range resp.Matches {
			candidates = append(candidates, matchToCandidate(storeID, dataType, match))
		}
	}

	if failed == len(dataTypes) && failed > 0 {
		return nil, lastErr
	}

	return candidates, nil
}

// DeleteNamespace removes one (storeID, dataType) namespace. A 404 means the
// namespace was never created, which is fine.
func (c *HTTPClient) DeleteNamespace(ctx context.Context, storeID string, dataType models.DataType) error {
	ns := Namespace(storeID, dataType)
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/namespaces/%s", ns), nil, nil)
	if err != nil && statusOf(err) != http.StatusNotFound {
		return &Error{Op: "delete_namespace", Namespace: ns, StatusCode: statusOf(err), Err: err}
	}
	return nil
}

// DeleteAllNamespaces removes every namespace belonging to the store. Each
// data type is attempted even when an earlier one fails so a partial outage
// deletes as much as possible.
func (c *HTTPClient) DeleteAllNamespaces(ctx context.Context, storeID string) error {
	var firstErr error
	for _, dataType := range models.AllDataTypes() {
		if err := c.DeleteNamespace(ctx, storeID, dataType); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.logger.Warn().
				Str("store_id", storeID).
				Str("data_type", string(dataType)).
				Err(err).
				Msg("Failed to delete namespace")
		}
	}
	return firstErr
}

func matchToCandidate(storeID string, dataType models.DataType, match queryMatch) models.Candidate {
	candidate := models.Candidate{
		DocumentID: match.ID,
		StoreID:    storeID,
		DataType:   dataType,
		Text:       match.Text,
		Metadata:   match.Metadata,
		Score:      match.Score,
	}
	if sourceID, ok := match.Metadata["source_id"].(string); ok {
		candidate.SourceID = sourceID
	}
	if raw, ok := match.Metadata["source_updated_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			candidate.SourceUpdatedAt = ts
		}
	}
	return candidate
}

// httpStatusError carries the remote status code through the error chain.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func statusOf(err error) int {
	if statusErr, ok := err.(*httpStatusError); ok {
		return statusErr.status
	}
	return 0
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{status: resp.StatusCode, body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
