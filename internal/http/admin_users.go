package httpapi

import (
	"log/slog"
	"net/http"

	"daycare-backend-go/internal/services"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type DeleteUserRequest struct {
	Password string `json:"password"`
}

type UsersResponse struct {
	Items []services.UserSummary `json:"items"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := services.ListUsers(r.Context(), s.Store)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UsersResponse{Items: users})
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.CreateUser(r.Context(), s.Store, s.Tokens, req.Username, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Info("user created", "by", CurrentSession(r).Username, "username", user.Username, "role", user.Role)
	WriteJSON(w, http.StatusCreated, user)
}

func (s *Server) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	var req UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.UpdateUserRole(r.Context(), s.Store, userID, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	var req DeleteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := CurrentSession(r)
	if err := services.DeleteUser(r.Context(), s.Store, s.Tokens, actor, userID, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Info("user deleted", "by", actor.Username, "userId", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SystemStatus(w http.ResponseWriter, r *http.Request) {
	sample, err := services.CaptureSystem(r.Context(), s.Store, s.Config.MetricsDiskPath, s.Config.DatabaseURL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sample)
}
