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

// InviteHandler handles invitation batches
type InviteHandler struct {
	users  *service.UserDirectoryService
	repo   domain.UserRepository
	logger *slog.Logger
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(users *service.UserDirectoryService, repo domain.UserRepository, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		users:  users,
		repo:   repo,
		logger: logger,
	}
}

// ServeHTTP handles POST /api/users/invite requests
func (h *InviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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
		writeError(w, http.StatusForbidden, "only owners and admins can invite users")
		return
	}

	var invitations []domain.Invitation
	if err := json.NewDecoder(r.Body).Decode(&invitations); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(invitations) == 0 {
		writeError(w, http.StatusBadRequest, "at least one invitation is required")
		return
	}
	for _, inv := range invitations {
		if inv.Email == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		if !slices.Contains(domain.AssignableRoles, inv.Role) {
			writeError(w, http.StatusBadRequest, "role must be one of global:admin, global:member")
			return
		}
	}

	result, err := h.users.InviteUsers(r.Context(), actor, invitations)
	if err != nil {
		if errors.Is(err, domain.ErrInternal) {
			h.logger.Error("invite batch failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "error during user creation")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
