package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/security/middleware"
	"github.com/yourorg/flowhub/internal/service"
)

// SettingsHandler updates a user's settings map
type SettingsHandler struct {
	users  *service.UserDirectoryService
	logger *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(users *service.UserDirectoryService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		users:  users,
		logger: logger,
	}
}

// ServeHTTP handles PATCH /api/users/{id}/settings requests
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	targetID := r.PathValue("id")
	// Users may edit their own settings; admins and owners may edit anyone's.
	if claims.UserID != targetID &&
		claims.Role != string(domain.RoleOwner) && claims.Role != string(domain.RoleAdmin) {
		writeError(w, http.StatusForbidden, "cannot edit another user's settings")
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.users.UpdateSettings(r.Context(), targetID, patch); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("settings update failed",
			slog.String("user_id", targetID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
