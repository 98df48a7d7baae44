package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the administrative session and user operations.
type AdminHandler struct {
	service *Service
}

// NewAdminHandler creates the admin HTTP layer.
func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	users, err := h.service.ListUsers(r.Context(), actor)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "All users fetched successfully", users)
}

func (h *AdminHandler) UserSessionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	sessions, err := h.service.UserSessions(r.Context(), actor, userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(sessions) == 0 {
		WriteJSON(w, http.StatusOK, "No sessions are active", nil)
		return
	}
	WriteJSON(w, http.StatusOK, "User sessions fetched successfully", sessions)
}

func (h *AdminHandler) RevokeSessionHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.RevokeSession(r.Context(), actor, sessionID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Session revoked successfully", nil)
}

func (h *AdminHandler) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	var req UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.service.UpdateUserRole(r.Context(), actor, userID, req); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "User role updated successfully", nil)
}

func (h *AdminHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	if err := h.service.DeleteUser(r.Context(), actor, userID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "User deleted successfully", nil)
}
