package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"daycare-backend-go/internal/services"
	"daycare-backend-go/internal/session"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token   string             `json:"token,omitempty"`
	Session session.Session    `json:"session"`
	Menu    []session.MenuItem `json:"menu"`
}

type NavigateRequest struct {
	Page string `json:"page"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := services.Authenticate(r.Context(), s.Store, s.Tokens, req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		s.Metrics.LoginFailures.Inc()
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sess := session.Anonymous().Authenticate(identity)
	s.writeSession(w, sess)
	slog.Info("login", "username", sess.Username, "role", sess.Role)
}

// Logout ends every session of the account and answers with the anonymous
// session. The version bump is stored, so it holds across restarts.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	current := CurrentSession(r)
	if err := services.EndSessions(r.Context(), s.Store, current.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.Tokens.Revoke(currentTokenID(r))
	sess := current.Logout()
	WriteJSON(w, http.StatusOK, SessionResponse{Session: sess, Menu: sess.Menu()})
}

func (s *Server) Menu(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r)
	WriteJSON(w, http.StatusOK, SessionResponse{Session: sess, Menu: sess.Menu()})
}

// Navigate moves the session to another page. The old token is revoked and a
// new one carrying the page is returned.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	next, err := CurrentSession(r).Navigate(session.Page(req.Page))
	switch {
	case errors.Is(err, session.ErrPageNotAllowed):
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	case errors.Is(err, session.ErrUnknownPage):
		WriteError(w, http.StatusBadRequest, "Unknown page")
		return
	case err != nil:
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	s.Tokens.Revoke(currentTokenID(r))
	s.writeSession(w, next)
}

func (s *Server) writeSession(w http.ResponseWriter, sess session.Session) {
	token, err := s.Tokens.CreateSessionToken(sess)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{Token: token, Session: sess, Menu: sess.Menu()})
}
