package http

import (
	"net/http"
	"time"

	"wisma/internal/auth"
)

type sessionResponse struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionBody(s auth.Session) sessionResponse {
	return sessionResponse{
		Subject:   s.Subject,
		Email:     s.Email,
		Admin:     s.Admin,
		ExpiresAt: s.ExpiresAt,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "create_session", err)
		return
	}
	token, sess, err := s.sessions.CreateSession(r.Context(), req.IDToken)
	if err != nil {
		s.writeError(w, r, "create_session", err)
		return
	}
	auth.SetCookie(w, token, s.cookieSecure)
	writeJSON(w, http.StatusCreated, sessionBody(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Revoke(r.Context(), auth.TokenFromRequest(r)); err != nil {
		s.writeError(w, r, "delete_session", err)
		return
	}
	auth.ClearCookie(w, s.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sessionBody(sess))
}

func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	var req grantAdminRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "grant_admin", err)
		return
	}
	actor, _ := sessionFrom(r.Context())
	if err := s.sessions.GrantAdmin(r.Context(), actor, req.Email); err != nil {
		s.writeError(w, r, "grant_admin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
