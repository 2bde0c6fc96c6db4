package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.catalog.ListOwners()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"owners": owners})
}

type createOwnerRequest struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

func (s *Server) handleCreateOwner(w http.ResponseWriter, r *http.Request) {
	var req createOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name required")
		return
	}
	owner, err := s.catalog.CreateOwner(req.Slug, req.Name, req.SortOrder)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"owner": owner})
}

type updateOwnerRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req updateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name required")
		return
	}
	owner, err := s.catalog.UpdateOwnerName(id, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"owner": owner})
}

func (s *Server) handleDeleteOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := s.catalog.DeleteOwner(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
