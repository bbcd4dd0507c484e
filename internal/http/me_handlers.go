package httpapi

import (
	"net/http"

	"daycare-backend-go/internal/services"
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r)
	user, err := services.GetUser(r.Context(), s.Store, sess.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"user": user, "session": sess})
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		WriteError(w, http.StatusBadRequest, "Password confirmation does not match")
		return
	}
	current := CurrentSession(r)
	if err := services.ChangePassword(r.Context(), s.Store, s.Tokens, current.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	// older tokens are void now; hand back one for the new version
	identity, err := services.LoadIdentity(r.Context(), s.Store, current.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	next := current
	next.Version = identity.Version
	s.writeSession(w, next)
}
