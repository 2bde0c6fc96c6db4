package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/coursedrop/coursedrop/internal/upload"
)

const (
	// maxChunkMemory bounds how much of a chunk form parse stays in memory.
	maxChunkMemory = 32 << 20

	// presignTTL is how long an issued direct-upload URL stays usable.
	presignTTL = 15 * time.Minute
)

type uploadInitRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	TopicID     uint   `json:"topicId"`
	Title       string `json:"title"`
}

// handleUploadInit opens a chunked upload session.
func (s *Server) handleUploadInit(w http.ResponseWriter, r *http.Request) {
	var req uploadInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id, err := s.uploads.Init(r.Context(), upload.InitRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		TopicID:     req.TopicID,
		Title:       req.Title,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"uploadId": id})
}

// handleUploadChunk receives one chunk as a multipart form with fields
// uploadId, chunkIndex and chunk.
func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxChunkMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	uploadID := r.FormValue("uploadId")
	indexValue := r.FormValue("chunkIndex")
	if uploadID == "" || indexValue == "" {
		respondError(w, http.StatusBadRequest, "Missing uploadId, chunkIndex, or chunk")
		return
	}
	index, err := strconv.Atoi(indexValue)
	if err != nil {
		respondError(w, http.StatusBadRequest, "chunkIndex must be an integer")
		return
	}

	file, _, err := r.FormFile("chunk")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing uploadId, chunkIndex, or chunk")
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read chunk")
		return
	}

	if err := s.uploads.PutChunk(r.Context(), uploadID, index, payload); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"received": index})
}

type uploadFinalizeRequest struct {
	UploadID string `json:"uploadId"`
}

// handleUploadFinalize assembles the session's chunks, promotes the result
// and returns the recorded material.
func (s *Server) handleUploadFinalize(w http.ResponseWriter, r *http.Request) {
	var req uploadFinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.UploadID == "" {
		respondError(w, http.StatusBadRequest, "Missing uploadId")
		return
	}

	material, err := s.uploads.Finalize(r.Context(), req.UploadID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"material": material})
}

// handleDirectUpload is the single-shot path: a complete file in one
// multipart form (topicId, title, file).
func (s *Server) handleDirectUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxChunkMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	topicID, err := strconv.ParseUint(r.FormValue("topicId"), 10, 32)
	if err != nil || topicID == 0 {
		respondError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	material, err := s.uploads.UploadDirect(r.Context(), uint(topicID), r.FormValue("title"), header.Filename, contentType, file, header.Size)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"material": material})
}

type uploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// handleUploadURL issues a presigned PUT URL so the client can upload a file
// straight to object storage, then register it via the register endpoint.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.FileName == "" {
		respondError(w, http.StatusBadRequest, "fileName required")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadURL, publicURL, err := s.blobs.PresignPut(r.Context(), req.FileName, contentType, presignTTL)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"uploadUrl":   uploadURL,
		"publicUrl":   publicURL,
		"contentType": contentType,
	})
}
