package api

import (
	"encoding/json"
	"net/http"

	"github.com/coursedrop/coursedrop/internal/catalog"
)

// handleListTopics returns the owner's topics with their materials nested,
// in display order. Unknown owner slugs yield an empty list.
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = catalog.DefaultOwnerSlug
	}
	topics, err := s.catalog.ListTopicsWithMaterials(owner)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

type createTopicRequest struct {
	Title string `json:"title"`
	Owner string `json:"owner"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Missing title")
		return
	}
	if req.Owner == "" {
		req.Owner = catalog.DefaultOwnerSlug
	}
	topic, err := s.catalog.CreateTopic(req.Title, req.Owner, 0)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"topic": topic})
}

type updateTopicRequest struct {
	Title string `json:"title"`
	Owner string `json:"owner"`
}

// handleUpdateTopic renames a topic and/or moves it under another owner.
func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req updateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Title == "" && req.Owner == "" {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	if req.Owner != "" {
		if err := s.catalog.UpdateTopicOwner(id, req.Owner); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if req.Title != "" {
		topic, err := s.catalog.UpdateTopicTitle(id, req.Title)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"topic": topic})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type reorderTopicsRequest struct {
	TopicIDs []uint `json:"topicIds"`
}

func (s *Server) handleReorderTopics(w http.ResponseWriter, r *http.Request) {
	var req reorderTopicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.TopicIDs) == 0 {
		respondError(w, http.StatusBadRequest, "topicIds array required")
		return
	}
	if err := s.catalog.ReorderTopics(req.TopicIDs); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := s.catalog.DeleteTopic(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
