package service

import (
	"context"
	"testing"

	"github.com/yourorg/flowhub/internal/domain"
)

type memCredentialRepo struct {
	creds   []*domain.Credential
	byID    int // query counters
	byName  int
}

func (m *memCredentialRepo) FindByIDAndType(_ context.Context, id, credType string) (*domain.Credential, error) {
	m.byID++
	for _, c := range m.creds {
		if c.ID == id && c.Type == credType {
			return c, nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

func (m *memCredentialRepo) FindManyByNameAndType(_ context.Context, name, credType string) ([]*domain.Credential, error) {
	m.byName++
	var out []*domain.Credential
	for _, c := range m.creds {
		if c.Name == name && c.Type == credType {
			out = append(out, c)
		}
	}
	return out, nil
}

func nodeWithCred(name string, ref domain.CredentialRef) domain.Node {
	return domain.Node{
		Name:        name,
		Type:        "httpRequest",
		Credentials: map[string]domain.CredentialRef{"httpAuth": ref},
	}
}

func TestResolveByNamePromotesMatch(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-1", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	wf := &domain.Workflow{Nodes: []domain.Node{
		nodeWithCred("a", domain.CredentialRef{Name: "prod-api"}),
	}}
	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := wf.Nodes[0].Credentials["httpAuth"]
	if got.ID != "c-1" || got.Name != "prod-api" {
		t.Fatalf("unexpected ref: %+v", got)
	}
}

func TestResolveByNameCachesAcrossNodes(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-1", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	wf := &domain.Workflow{Nodes: []domain.Node{
		nodeWithCred("a", domain.CredentialRef{Name: "prod-api"}),
		nodeWithCred("b", domain.CredentialRef{Name: "prod-api"}),
	}}
	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if repo.byName != 1 {
		t.Fatalf("expected 1 backing query for shared credential, got %d", repo.byName)
	}
	if wf.Nodes[1].Credentials["httpAuth"].ID != "c-1" {
		t.Fatalf("second node not resolved from cache")
	}
}

func TestResolveByNameMissLeavesPlaceholder(t *testing.T) {
	repo := &memCredentialRepo{}
	r := NewCredentialResolver(repo, nil)

	wf := &domain.Workflow{Nodes: []domain.Node{
		nodeWithCred("a", domain.CredentialRef{Name: "gone"}),
	}}
	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("a missing credential must not fail the pass: %v", err)
	}
	got := wf.Nodes[0].Credentials["httpAuth"]
	if got.ID != "" || got.Name != "gone" {
		t.Fatalf("expected unresolved placeholder, got %+v", got)
	}
}

func TestResolveSkipsDisabledNodes(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-1", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	disabled := nodeWithCred("a", domain.CredentialRef{Name: "prod-api"})
	disabled.Disabled = true
	wf := &domain.Workflow{Nodes: []domain.Node{disabled}}

	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if repo.byName != 0 || repo.byID != 0 {
		t.Fatalf("disabled nodes must not trigger lookups")
	}
	if wf.Nodes[0].Credentials["httpAuth"].ID != "" {
		t.Fatalf("disabled node must not be mutated")
	}
}

func TestResolveByIDFallsBackToUniqueName(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-new", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	wf := &domain.Workflow{Nodes: []domain.Node{
		nodeWithCred("a", domain.CredentialRef{ID: "c-stale", Name: "prod-api"}),
	}}
	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := wf.Nodes[0].Credentials["httpAuth"]
	if got.ID != "c-new" {
		t.Fatalf("expected unique name match promoted, got %+v", got)
	}
}

func TestResolveByIDAmbiguityLeftUntouched(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-1", Name: "prod-api", Type: "httpAuth"},
		{ID: "c-2", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	stale := domain.CredentialRef{ID: "c-stale", Name: "prod-api"}
	wf := &domain.Workflow{Nodes: []domain.Node{nodeWithCred("a", stale)}}

	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if wf.Nodes[0].Credentials["httpAuth"] != stale {
		t.Fatalf("ambiguous reference must stay untouched, got %+v", wf.Nodes[0].Credentials["httpAuth"])
	}
}

func TestResolveByIDCachesAcrossNodes(t *testing.T) {
	repo := &memCredentialRepo{creds: []*domain.Credential{
		{ID: "c-1", Name: "prod-api", Type: "httpAuth"},
	}}
	r := NewCredentialResolver(repo, nil)

	wf := &domain.Workflow{Nodes: []domain.Node{
		nodeWithCred("a", domain.CredentialRef{ID: "c-1", Name: "prod-api"}),
		nodeWithCred("b", domain.CredentialRef{ID: "c-1", Name: "prod-api"}),
	}}
	if err := r.ResolveWorkflowCredentials(context.Background(), wf); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if repo.byID != 1 {
		t.Fatalf("expected 1 id lookup, got %d", repo.byID)
	}
}
