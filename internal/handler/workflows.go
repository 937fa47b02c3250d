package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/security/middleware"
	"github.com/yourorg/flowhub/internal/service"
)

// WorkflowsHandler creates and lists a user's workflows
type WorkflowsHandler struct {
	workflows *service.WorkflowService
	logger    *slog.Logger
}

// NewWorkflowsHandler creates a new workflows handler
func NewWorkflowsHandler(workflows *service.WorkflowService, logger *slog.Logger) *WorkflowsHandler {
	return &WorkflowsHandler{
		workflows: workflows,
		logger:    logger,
	}
}

// ServeHTTP handles POST and GET /api/workflows requests
func (h *WorkflowsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.create(w, r, claims.UserID)
	case http.MethodGet:
		h.list(w, r, claims.UserID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WorkflowsHandler) create(w http.ResponseWriter, r *http.Request, userID string) {
	var wf domain.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if wf.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	wf.UserID = userID

	if err := h.workflows.CreateWorkflow(r.Context(), &wf); err != nil {
		h.logger.Error("workflow save failed",
			slog.String("name", wf.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to save workflow")
		return
	}

	writeJSON(w, http.StatusCreated, wf)
}

func (h *WorkflowsHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	workflows, err := h.workflows.WorkflowsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("workflow query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to fetch workflows")
		return
	}
	if workflows == nil {
		workflows = []domain.Workflow{}
	}
	writeJSON(w, http.StatusOK, workflows)
}
