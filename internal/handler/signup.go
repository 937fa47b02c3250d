package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/flowhub/internal/service"
)

// SignupRequest completes an invitation from the accept link
type SignupRequest struct {
	InviterID string `json:"inviterId"`
	InviteeID string `json:"inviteeId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// SignupHandler handles invitation acceptance
type SignupHandler struct {
	authService *service.AuthService
	users       *service.UserDirectoryService
	logger      *slog.Logger
}

// NewSignupHandler creates a new signup handler
func NewSignupHandler(authService *service.AuthService, users *service.UserDirectoryService, logger *slog.Logger) *SignupHandler {
	return &SignupHandler{
		authService: authService,
		users:       users,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/signup requests
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.InviterID == "" || req.InviteeID == "" {
		writeError(w, http.StatusBadRequest, "inviterId and inviteeId are required")
		return
	}

	user, err := h.authService.AcceptInvitation(r.Context(), req.InviterID, req.InviteeID, req.FirstName, req.LastName, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	public, err := h.users.ToPublic(r.Context(), user, service.PublicOptions{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to project user")
		return
	}

	writeJSON(w, http.StatusOK, public)
}
