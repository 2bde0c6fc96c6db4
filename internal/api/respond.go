package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/coursedrop/coursedrop/internal/blob"
	"github.com/coursedrop/coursedrop/internal/catalog"
	"github.com/coursedrop/coursedrop/internal/upload"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps pipeline and catalog errors onto HTTP statuses:
// client faults are 4xx and retryable per the error's contract, storage
// faults are 5xx with the session preserved.
func respondServiceError(w http.ResponseWriter, err error) {
	var missing *upload.MissingChunkError
	var writeErr *blob.WriteError

	switch {
	case errors.Is(err, upload.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &missing), errors.Is(err, upload.ErrNoChunks):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Upload session not found")
	case errors.Is(err, upload.ErrTopicNotFound), errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, catalog.ErrDefaultOwner):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, blob.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, "Object storage not configured")
	case errors.As(err, &writeErr):
		respondError(w, http.StatusBadGateway, "Object storage write failed")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
