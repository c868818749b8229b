package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/models"
)

// CleanupRequest is the optional JSON body for cleanup submissions.
type CleanupRequest struct {
	// DataTypes restricts the cleanup; empty means all data types.
	DataTypes []models.DataType `json:"data_types,omitempty"`
}

// JobHandler exposes background job submission and inspection.
type JobHandler struct {
	jobService interfaces.JobService
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler with dependencies
func NewJobHandler(jobService interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// SubmitIndexHandler handles POST /api/stores/{storeID}/index
func (h *JobHandler) SubmitIndexHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	storeID := PathSegment(r.URL.Path, "/api/stores/", 0)
	if storeID == "" {
		WriteError(w, http.StatusBadRequest, "store ID is required")
		return
	}

	jobID, err := h.jobService.SubmitIndexJob(r.Context(), storeID)
	if err != nil {
		h.logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to submit index job")
		WriteError(w, http.StatusInternalServerError, "Failed to submit index job")
		return
	}

	h.logger.Info().Str("store_id", storeID).Str("job_id", jobID).Msg("Index job submitted")
	WriteAccepted(w, jobID)
}

// SubmitCleanupHandler handles POST /api/stores/{storeID}/cleanup
func (h *JobHandler) SubmitCleanupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	storeID := PathSegment(r.URL.Path, "/api/stores/", 0)
	if storeID == "" {
		WriteError(w, http.StatusBadRequest, "store ID is required")
		return
	}

	// Body is optional; an empty body means cleanup of every data type.
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for _, dataType := range req.DataTypes {
		if !models.IsValidDataType(string(dataType)) {
			WriteError(w, http.StatusBadRequest, "unknown data type: "+string(dataType))
			return
		}
	}

	jobID, err := h.jobService.SubmitCleanupJob(r.Context(), storeID, req.DataTypes)
	if err != nil {
		h.logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to submit cleanup job")
		WriteError(w, http.StatusInternalServerError, "Failed to submit cleanup job")
		return
	}

	h.logger.Info().Str("store_id", storeID).Str("job_id", jobID).Msg("Cleanup job submitted")
	WriteAccepted(w, jobID)
}

// SubmitDeleteHandler handles DELETE /api/stores/{storeID}
func (h *JobHandler) SubmitDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	storeID := PathSegment(r.URL.Path, "/api/stores/", 0)
	if storeID == "" {
		WriteError(w, http.StatusBadRequest, "store ID is required")
		return
	}

	jobID, err := h.jobService.SubmitDeleteJob(r.Context(), storeID)
	if err != nil {
		h.logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to submit delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to submit delete job")
		return
	}

	h.logger.Info().Str("store_id", storeID).Str("job_id", jobID).Msg("Delete job submitted")
	WriteAccepted(w, jobID)
}

// GetJobHandler handles GET /api/jobs/{jobID}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathSegment(r.URL.Path, "/api/jobs/", 0)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
