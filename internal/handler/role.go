package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/security/middleware"
	"github.com/yourorg/flowhub/internal/service"
)

// RoleChangeRequest carries the new role for a target user
type RoleChangeRequest struct {
	NewRoleName domain.Role `json:"newRoleName"`
}

// RoleHandler changes a user's global role
type RoleHandler struct {
	users  *service.UserDirectoryService
	repo   domain.UserRepository
	logger *slog.Logger
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(users *service.UserDirectoryService, repo domain.UserRepository, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{
		users:  users,
		repo:   repo,
		logger: logger,
	}
}

// ServeHTTP handles PATCH /api/users/{id}/role requests
func (h *RoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	actor, err := h.repo.FindByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if actor.Role != domain.RoleOwner && actor.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "only owners and admins can change roles")
		return
	}

	target, err := h.repo.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if target.IsOwner() {
		writeError(w, http.StatusForbidden, "the owner role cannot be changed")
		return
	}

	var req RoleChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !slices.Contains(domain.AssignableRoles, req.NewRoleName) {
		writeError(w, http.StatusBadRequest, "role must be one of global:admin, global:member")
		return
	}

	if err := h.users.ChangeUserRole(r.Context(), actor, target, req.NewRoleName); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("role change failed",
			slog.String("target_id", target.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to change role")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
