package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"

	"github.com/coursedrop/coursedrop/internal/auth"
)

type loginRequest struct {
	Password string `json:"password"`
}

// handleLogin checks the shared admin secret and issues the admin cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) != 1 {
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := s.signer.IssueAdminToken()
	if err != nil {
		log.Printf("failed to issue admin token: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	auth.SetAdminCookie(w, token)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearAdminCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
