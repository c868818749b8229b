package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
)

// StatusHandler exposes per-store sync status and the deletion lock registry.
type StatusHandler struct {
	statusService StatusService
	lockService   interfaces.LockService
	logger        arbor.ILogger
}

// NewStatusHandler creates a new status handler with dependencies
func NewStatusHandler(statusService StatusService, lockService interfaces.LockService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		lockService:   lockService,
		logger:        logger,
	}
}

// GetSyncStatusHandler handles GET /api/stores/{storeID}/status
func (h *StatusHandler) GetSyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	storeID := PathSegment(r.URL.Path, "/api/stores/", 0)
	if storeID == "" {
		WriteError(w, http.StatusBadRequest, "store ID is required")
		return
	}

	report, err := h.statusService.GetSyncStatus(r.Context(), storeID)
	if err != nil {
		h.logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to build sync status")
		WriteError(w, http.StatusInternalServerError, "Failed to build sync status")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// GetLocksHandler handles GET /api/locks
func (h *StatusHandler) GetLocksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	locks := h.lockService.GetStatus()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"locks": locks,
		"count": len(locks),
	})
}

// GetStoreLockHandler handles GET /api/stores/{storeID}/lock
func (h *StatusHandler) GetStoreLockHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	storeID := PathSegment(r.URL.Path, "/api/stores/", 0)
	if storeID == "" {
		WriteError(w, http.StatusBadRequest, "store ID is required")
		return
	}

	status := h.lockService.CheckLock(storeID)
	if status == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"store_id": storeID,
			"locked":   false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"store_id": storeID,
		"locked":   true,
		"lock":     status,
	})
}
