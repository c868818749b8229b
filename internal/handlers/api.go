package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
)

type APIHandler struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

func NewAPIHandler(llmService interfaces.LLMService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		llmService: llmService,
		logger:     logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status, probing the embedding provider.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	embeddings := "ok"
	if h.llmService != nil {
		if err := h.llmService.HealthCheck(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("Embedding provider health check failed")
			embeddings = "unavailable"
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"embeddings": embeddings,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
