package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/flowhub/internal/domain"
)

type memWorkflowStore struct {
	workflows  []*domain.Workflow
	executions []domain.Execution
	logs       []domain.LogEntry
	insertErr  error
}

func (m *memWorkflowStore) InsertWorkflow(_ context.Context, wf *domain.Workflow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.workflows = append(m.workflows, wf)
	return nil
}

func (m *memWorkflowStore) WorkflowsByUser(_ context.Context, userID string) ([]domain.Workflow, error) {
	var out []domain.Workflow
	for _, wf := range m.workflows {
		if wf.UserID == userID {
			out = append(out, *wf)
		}
	}
	return out, nil
}

func (m *memWorkflowStore) InsertExecution(_ context.Context, exec domain.Execution) {
	m.executions = append(m.executions, exec)
}

func (m *memWorkflowStore) InsertLogEntry(_ context.Context, entry domain.LogEntry) {
	m.logs = append(m.logs, entry)
}

func TestCreateWorkflowAssignsNodeIDs(t *testing.T) {
	store := &memWorkflowStore{}
	svc := NewWorkflowService(store, nil, nil)

	wf := &domain.Workflow{
		UserID: "u-1",
		Name:   "daily-report",
		Nodes: []domain.Node{
			{Name: "trigger", Type: "cron"},
			{ID: "existing-id", Name: "fetch", Type: "httpRequest"},
		},
	}
	if err := svc.CreateWorkflow(context.Background(), wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if wf.Nodes[0].ID == "" {
		t.Fatalf("expected id assigned to first node")
	}
	if wf.Nodes[1].ID != "existing-id" {
		t.Fatalf("existing node id must be kept, got %s", wf.Nodes[1].ID)
	}
}

func TestCreateWorkflowSurfacesStoreFailure(t *testing.T) {
	store := &memWorkflowStore{insertErr: errors.New("remote down")}
	svc := NewWorkflowService(store, nil, nil)

	err := svc.CreateWorkflow(context.Background(), &domain.Workflow{UserID: "u-1", Name: "wf"})
	if err == nil {
		t.Fatalf("expected persistence failure to be caller-visible")
	}
}

func TestRecordExecutionAssignsID(t *testing.T) {
	store := &memWorkflowStore{}
	svc := NewWorkflowService(store, nil, nil)

	svc.RecordExecution(context.Background(), domain.Execution{
		UserID:     "u-1",
		WorkflowID: "wf-1",
		Status:     "success",
	})
	if len(store.executions) != 1 {
		t.Fatalf("expected execution recorded")
	}
	if store.executions[0].ID == "" {
		t.Fatalf("expected execution id assigned")
	}
}
