package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// SearchRequest is the JSON body for POST /api/search.
type SearchRequest struct {
	Query          string            `json:"query"`
	StoreID        string            `json:"store_id"`
	AgentType      string            `json:"agent_type,omitempty"`
	TopK           int               `json:"top_k,omitempty"`
	ScoreThreshold float64           `json:"score_threshold,omitempty"`
	LockWait       string            `json:"lock_wait,omitempty"`
	DataTypes      []models.DataType `json:"data_types,omitempty"`
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService interfaces.SearchService
	logger        arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(searchService interfaces.SearchService, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// SearchHandler handles POST /api/search requests
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.StoreID == "" {
		WriteError(w, http.StatusBadRequest, "store_id is required")
		return
	}

	h.logger.Info().
		Str("store_id", req.StoreID).
		Str("query", req.Query).
		Msg("Search request received")

	sctx := models.SearchContext{
		StoreID:   req.StoreID,
		AgentType: req.AgentType,
	}
	opts := models.SearchOptions{
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		LockWait:       models.LockWaitMode(req.LockWait),
	}
	filters := models.SearchFilters{
		DataTypes: req.DataTypes,
	}

	response, err := h.searchService.Search(r.Context(), req.Query, sctx, opts, filters)
	if err != nil {
		var unavailableErr *models.SearchUnavailableError
		if errors.As(err, &unavailableErr) {
			h.logger.Warn().
				Str("store_id", req.StoreID).
				Err(err).
				Msg("Search temporarily unavailable")
			WriteError(w, http.StatusServiceUnavailable, unavailableErr.Error())
			return
		}

		h.logger.Error().
			Err(err).
			Str("store_id", req.StoreID).
			Msg("Failed to execute search")
		WriteError(w, http.StatusInternalServerError, "Failed to execute search")
		return
	}

	h.logger.Debug().
		Str("store_id", req.StoreID).
		Int("results", len(response.Results)).
		Bool("unavailable", response.Unavailable).
		Msg("Search completed")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results":     response.Results,
		"count":       len(response.Results),
		"unavailable": response.Unavailable,
		"query":       req.Query,
	})
}
