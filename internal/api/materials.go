package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coursedrop/coursedrop/internal/catalog"
)

func parseIDParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type registerMaterialRequest struct {
	TopicID     uint   `json:"topicId"`
	Title       string `json:"title"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	BlobURL     string `json:"blobUrl"`
}

// handleRegisterMaterial records a material whose file the client already
// uploaded directly to object storage via a presigned URL.
func (s *Server) handleRegisterMaterial(w http.ResponseWriter, r *http.Request) {
	var req registerMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TopicID == 0 || req.FileName == "" || req.BlobURL == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	material := &catalog.Material{
		TopicID:     req.TopicID,
		Title:       req.Title,
		FileName:    req.FileName,
		ContentType: contentType,
		FileSize:    req.FileSize,
		BlobURL:     req.BlobURL,
	}
	if err := s.catalog.CreateMaterial(material); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"material": material})
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	material, err := s.catalog.GetMaterial(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"material": material})
}

// handleDeleteMaterial removes the metadata row, then tries to delete the
// backing blob. Blob deletion failures are logged and swallowed so storage
// flakiness never blocks metadata cleanup.
func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	blobURL, err := s.catalog.DeleteMaterial(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if blobURL != "" {
		if err := s.blobs.Delete(r.Context(), blobURL); err != nil {
			log.Printf("failed to delete blob %s: %v", blobURL, err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type moveMaterialRequest struct {
	Owner string `json:"owner"`
}

// handleMoveMaterial reassigns a material to another owner's unsorted topic.
func (s *Server) handleMoveMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req moveMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Owner == "" {
		respondError(w, http.StatusBadRequest, "owner required")
		return
	}
	if err := s.catalog.MoveMaterialToOwner(id, req.Owner); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
