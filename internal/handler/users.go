package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/featureflags"
	"github.com/yourorg/flowhub/internal/security/middleware"
	"github.com/yourorg/flowhub/internal/service"
)

// UsersHandler lists users in their public projection
type UsersHandler struct {
	users  *service.UserDirectoryService
	repo   domain.UserRepository
	flags  featureflags.Provider
	logger *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(
	users *service.UserDirectoryService,
	repo domain.UserRepository,
	flags featureflags.Provider,
	logger *slog.Logger,
) *UsersHandler {
	return &UsersHandler{
		users:  users,
		repo:   repo,
		flags:  flags,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/users requests
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	all, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	opts := service.PublicOptions{WithScopes: r.URL.Query().Get("includeScopes") == "true"}
	if r.URL.Query().Get("includeFlags") == "true" {
		opts.Flags = h.flags
	}

	public := make([]*domain.PublicUser, 0, len(all))
	for _, user := range all {
		p, err := h.users.ToPublic(r.Context(), user, opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to project users")
			return
		}
		public = append(public, p)
	}

	writeJSON(w, http.StatusOK, public)
}
