package remotesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/reliability/retry"
)

type memQueue struct {
	payloads [][]byte
}

func (q *memQueue) EnqueueSyncPayload(_ context.Context, payload []byte) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

func newTestClient(t *testing.T, serverURL string, queue DeadLetterQueue) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: serverURL, ServiceKey: "test-key"}, queue, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	c.retryConfig = &retry.Config{
		MaxAttempts:       1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}
	return c
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(Config{ServiceKey: "k"}, nil, nil); err == nil {
		t.Fatalf("expected error for missing URL")
	}
	if _, err := NewClient(Config{URL: "http://remote"}, nil, nil); err == nil {
		t.Fatalf("expected error for missing service key")
	}
}

func TestUpsertUserSendsAuthAndUpsertHeaders(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth, gotPrefer string
	var gotRecord UserRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotRecord)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	c.UpsertUser(context.Background(), &domain.User{
		ID:        "u-1",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      domain.RoleMember,
	})

	if gotPath != "/rest/v1/users" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAPIKey != "test-key" || gotAuth != "Bearer test-key" {
		t.Fatalf("auth headers not set: apikey=%q auth=%q", gotAPIKey, gotAuth)
	}
	if gotPrefer != "resolution=merge-duplicates" {
		t.Fatalf("expected upsert Prefer header, got %q", gotPrefer)
	}
	if gotRecord.ID != "u-1" || gotRecord.FullName != "Alice Smith" {
		t.Fatalf("unexpected record: %+v", gotRecord)
	}
}

func TestUpsertUserFailureIsSwallowedAndQueued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"duplicate"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	queue := &memQueue{}
	c := newTestClient(t, srv.URL, queue)

	// Must not panic or surface the failure in any way.
	c.UpsertUser(context.Background(), &domain.User{ID: "u-1", Email: "a@b.c"})

	if len(queue.payloads) != 1 {
		t.Fatalf("expected 1 queued payload, got %d", len(queue.payloads))
	}
	var record UserRecord
	if err := json.Unmarshal(queue.payloads[0], &record); err != nil {
		t.Fatalf("queued payload not valid json: %v", err)
	}
	if record.ID != "u-1" {
		t.Fatalf("unexpected queued record: %+v", record)
	}
}

func TestRetryUpsertRoundTripsQueuedPayload(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	payload, _ := json.Marshal(UserRecord{ID: "u-1", Email: "a@b.c"})
	if err := c.RetryUpsert(context.Background(), payload); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 request, got %d", calls)
	}

	if err := c.RetryUpsert(context.Background(), []byte("{broken")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestInsertWorkflowFailureIsCallerVisible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	err := c.InsertWorkflow(context.Background(), &domain.Workflow{UserID: "u-1", Name: "wf"})
	if err == nil {
		t.Fatalf("expected workflow save error to propagate")
	}
	if !strings.Contains(err.Error(), "workflow save failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInsertLogEntryDefaultsFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	c.InsertLogEntry(context.Background(), domain.LogEntry{Message: "hello"})

	if got["level"] != "info" {
		t.Fatalf("expected defaulted level info, got %v", got["level"])
	}
	if got["timestamp"] == "" || got["timestamp"] == nil {
		t.Fatalf("expected defaulted timestamp")
	}
}

func TestWorkflowsByUserOrdersNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "eq.u-1" {
			t.Errorf("unexpected user filter: %s", r.URL.Query().Get("user_id"))
		}
		if r.URL.Query().Get("order") != "created_at.desc" {
			t.Errorf("unexpected order: %s", r.URL.Query().Get("order"))
		}
		json.NewEncoder(w).Encode([]domain.Workflow{
			{Name: "newest", UserID: "u-1"},
			{Name: "older", UserID: "u-1"},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	workflows, err := c.WorkflowsByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(workflows) != 2 || workflows[0].Name != "newest" {
		t.Fatalf("unexpected workflows: %+v", workflows)
	}
}

func TestWorkflowsByUserFailsLoudly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	if _, err := c.WorkflowsByUser(context.Background(), "u-1"); err == nil {
		t.Fatalf("expected query error to propagate")
	}
}

func TestCredentialsUsesAnonKeyForAuthEndpoint(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusBadRequest) // missing grant params, but keys accepted
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, ServiceKey: "service-key", AnonKey: "anon-key"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := c.TestCredentials(context.Background()); err != nil {
		t.Fatalf("expected non-auth 4xx treated as reachable, got %v", err)
	}
	if gotPath != "/auth/v1/token" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAPIKey != "anon-key" || gotAuth != "Bearer anon-key" {
		t.Fatalf("expected anon key on the auth endpoint, got apikey=%q auth=%q", gotAPIKey, gotAuth)
	}
}

func TestCredentialsFallsBackToServiceKey(t *testing.T) {
	var gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, ServiceKey: "service-key"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := c.TestCredentials(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAPIKey != "service-key" {
		t.Fatalf("expected service key fallback, got %q", gotAPIKey)
	}
}
