package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yourorg/flowhub/internal/domain"
)

// WorkflowStore is the remote persistence surface workflows live in
type WorkflowStore interface {
	InsertWorkflow(ctx context.Context, wf *domain.Workflow) error
	WorkflowsByUser(ctx context.Context, userID string) ([]domain.Workflow, error)
	InsertExecution(ctx context.Context, exec domain.Execution)
	InsertLogEntry(ctx context.Context, entry domain.LogEntry)
}

// WorkflowService persists workflow definitions and execution telemetry to
// the remote store. Definition writes are caller-visible failures; execution
// and log writes are best-effort.
type WorkflowService struct {
	store    WorkflowStore
	resolver *CredentialResolver
	logger   *slog.Logger
}

// NewWorkflowService creates a workflow service
func NewWorkflowService(store WorkflowStore, resolver *CredentialResolver, logger *slog.Logger) *WorkflowService {
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkflowService{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// AddNodeIDs assigns a UUID to every node missing one
func AddNodeIDs(wf *domain.Workflow) {
	for i := range wf.Nodes {
		if wf.Nodes[i].ID == "" {
			wf.Nodes[i].ID = uuid.NewString()
		}
	}
}

// CreateWorkflow fixes up node ids and credential references, then persists
// the definition. A persistence failure is returned: the definition has no
// other home.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, wf *domain.Workflow) error {
	AddNodeIDs(wf)

	if s.resolver != nil {
		if err := s.resolver.ResolveWorkflowCredentials(ctx, wf); err != nil {
			s.logger.Warn("credential resolution incomplete",
				slog.String("workflow", wf.Name),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.store.InsertWorkflow(ctx, wf)
}

// WorkflowsByUser lists a user's workflows, newest first
func (s *WorkflowService) WorkflowsByUser(ctx context.Context, userID string) ([]domain.Workflow, error) {
	return s.store.WorkflowsByUser(ctx, userID)
}

// RecordExecution logs one workflow run to the remote store, best-effort
func (s *WorkflowService) RecordExecution(ctx context.Context, exec domain.Execution) {
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	s.store.InsertExecution(ctx, exec)
}

// Log ships a platform log line to the remote store, best-effort
func (s *WorkflowService) Log(ctx context.Context, entry domain.LogEntry) {
	s.store.InsertLogEntry(ctx, entry)
}
