package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteAccepted writes the standard response for an accepted async job.
func WriteAccepted(w http.ResponseWriter, jobID string) error {
	return WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job_id": jobID,
	})
}

// PathSegment returns the path segment at index after trimming prefix.
// Example: PathSegment("/api/stores/store-1/index", "/api/stores/", 0) -> "store-1".
func PathSegment(path, prefix string, index int) string {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}
