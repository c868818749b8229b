package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job event feed)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler)

	// API routes - Store sync operations
	mux.HandleFunc("/api/stores/", s.handleStoreRoutes) // index/cleanup/status/lock per store, DELETE store

	// API routes - Jobs
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler) // GET /api/jobs/{id}

	// API routes - Locks
	mux.HandleFunc("/api/locks", s.app.StatusHandler.GetLocksHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleStoreRoutes routes store-scoped requests to the appropriate handler.
//
//	POST   /api/stores/{id}/index   - submit full index job
//	POST   /api/stores/{id}/cleanup - submit cleanup sync job
//	GET    /api/stores/{id}/status  - sync status summary
//	GET    /api/stores/{id}/lock    - deletion lock state
//	DELETE /api/stores/{id}         - submit delete job
func (s *Server) handleStoreRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/index"):
		s.app.JobHandler.SubmitIndexHandler(w, r)
	case strings.HasSuffix(path, "/cleanup"):
		s.app.JobHandler.SubmitCleanupHandler(w, r)
	case strings.HasSuffix(path, "/status"):
		s.app.StatusHandler.GetSyncStatusHandler(w, r)
	case strings.HasSuffix(path, "/lock"):
		s.app.StatusHandler.GetStoreLockHandler(w, r)
	case r.Method == http.MethodDelete:
		s.app.JobHandler.SubmitDeleteHandler(w, r)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
