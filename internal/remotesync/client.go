package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/observability/metrics"
	"github.com/yourorg/flowhub/internal/reliability/circuitbreaker"
	"github.com/yourorg/flowhub/internal/reliability/retry"
)

// Config holds remote backend connection settings. ServiceKey authenticates
// data-plane writes; AnonKey, when set, is used for the public auth endpoint
// instead of exposing the service key there.
type Config struct {
	URL        string
	ServiceKey string
	AnonKey    string
	Timeout    time.Duration
}

// DeadLetterQueue receives payloads of failed best-effort user syncs so a
// background worker can retry them later
type DeadLetterQueue interface {
	EnqueueSyncPayload(ctx context.Context, payload []byte) error
}

// UserRecord is the shape of a user row in the remote store
type UserRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

// Client talks to the hosted database/auth backend over its REST surface.
// The local store stays the source of truth: user, execution, and log writes
// are best-effort mirrors and never surface errors to callers. Workflow
// persistence is the exception, because a workflow lost here is lost for good.
type Client struct {
	baseURL     string
	serviceKey  string
	anonKey     string
	httpClient  *http.Client
	logger      *slog.Logger
	retryConfig *retry.Config
	breaker     *circuitbreaker.CircuitBreaker
	queue       DeadLetterQueue
}

// NewClient creates a remote sync client. URL and service key are required;
// operating unauthenticated against the remote store is a configuration bug.
func NewClient(cfg Config, queue DeadLetterQueue, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote sync URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("remote sync service key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := circuitbreaker.New(5, 2, 30*time.Second)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("remote sync circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Client{
		baseURL:     cfg.URL,
		serviceKey:  cfg.ServiceKey,
		anonKey:     cfg.AnonKey,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		retryConfig: retry.DefaultConfig(),
		breaker:     cb,
		queue:       queue,
	}, nil
}

// UpsertUser mirrors a user into the remote `users` table, keyed by id.
// Failures are logged, counted, and queued for retry; they never propagate.
func (c *Client) UpsertUser(ctx context.Context, user *domain.User) {
	record := userRecordFor(user)
	if err := c.upsertRecord(ctx, record); err != nil {
		c.logger.Error("remote user upsert failed",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		metrics.ObserveSwallowedSyncFailure("users")
		c.enqueueForRetry(ctx, record)
		return
	}
	c.logger.Debug("remote user synced", slog.String("email", user.Email))
}

// RetryUpsert re-attempts a previously failed user sync payload. Used by the
// retry worker; the error is the worker's signal to re-enqueue.
func (c *Client) RetryUpsert(ctx context.Context, payload []byte) error {
	var record UserRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return fmt.Errorf("malformed sync payload: %w", err)
	}
	return c.upsertRecord(ctx, record)
}

// InsertExecution logs a workflow run into the remote `executions` table.
// Telemetry must never block the run, so failures are only logged.
func (c *Client) InsertExecution(ctx context.Context, exec domain.Execution) {
	if exec.Output == nil {
		exec.Output = map[string]any{}
	}
	if err := c.insert(ctx, "executions", exec, false); err != nil {
		c.logger.Error("remote execution insert failed",
			slog.String("execution_id", exec.ID),
			slog.String("workflow_id", exec.WorkflowID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveSwallowedSyncFailure("executions")
		return
	}
	metrics.ObserveRemoteSync("executions", "ok")
}

// InsertLogEntry ships a platform log line to the remote `logs` table.
// Missing fields are defaulted; failures are only logged.
func (c *Client) InsertLogEntry(ctx context.Context, entry domain.LogEntry) {
	if entry.Level == "" {
		entry.Level = domain.LogInfo
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := c.insert(ctx, "logs", entry, false); err != nil {
		c.logger.Error("remote log insert failed", slog.String("error", err.Error()))
		metrics.ObserveSwallowedSyncFailure("logs")
		return
	}
	metrics.ObserveRemoteSync("logs", "ok")
}

// InsertWorkflow persists a workflow definition to the remote `workflows`
// table. Unlike user and log sync this failure is caller-visible: the
// workflow is unrecoverable if the write is lost.
func (c *Client) InsertWorkflow(ctx context.Context, wf *domain.Workflow) error {
	row := map[string]any{
		"user_id":    wf.UserID,
		"name":       wf.Name,
		"data":       wf.Data,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if len(wf.Nodes) > 0 {
		row["nodes"] = wf.Nodes
	}
	if err := c.insert(ctx, "workflows", row, false); err != nil {
		metrics.ObserveRemoteSync("workflows", "error")
		return fmt.Errorf("workflow save failed: %w", err)
	}
	metrics.ObserveRemoteSync("workflows", "ok")
	return nil
}

// WorkflowsByUser fetches a user's workflows, most recently created first
func (c *Client) WorkflowsByUser(ctx context.Context, userID string) ([]domain.Workflow, error) {
	if !c.breaker.AllowRequest() {
		return nil, fmt.Errorf("remote store temporarily unavailable (circuit breaker open)")
	}

	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("order", "created_at.desc")
	query.Set("select", "*")
	endpoint := fmt.Sprintf("%s/rest/v1/workflows?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow query: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("failed to fetch workflows: %s", responseError(resp))
	}
	c.breaker.RecordSuccess()

	var workflows []domain.Workflow
	if err := json.NewDecoder(resp.Body).Decode(&workflows); err != nil {
		return nil, fmt.Errorf("failed to decode workflows: %w", err)
	}
	return workflows, nil
}

// TestCredentials verifies the configured keys against the remote auth
// endpoint. The auth surface takes the anon key when one is configured; the
// service key is only a fallback for single-key setups.
func (c *Client) TestCredentials(ctx context.Context) error {
	endpoint := c.baseURL + "/auth/v1/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build credential test: %w", err)
	}
	key := c.anonKey
	if key == "" {
		key = c.serviceKey
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("credential test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("credential test failed: %s", responseError(resp))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("remote store rejected credentials (status %d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) upsertRecord(ctx context.Context, record UserRecord) error {
	if err := c.insert(ctx, "users", record, true); err != nil {
		metrics.ObserveRemoteSync("users", "error")
		return err
	}
	metrics.ObserveRemoteSync("users", "ok")
	return nil
}

// insert POSTs a row to /rest/v1/{table}, optionally with merge-duplicates
// upsert semantics, behind the retry policy and circuit breaker.
func (c *Client) insert(ctx context.Context, table string, row any, isUpsert bool) error {
	if !c.breaker.AllowRequest() {
		return fmt.Errorf("remote store temporarily unavailable (circuit breaker open)")
	}

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode %s row: %w", table, err)
	}

	_, err = retry.Do(ctx, c.retryConfig, c.logger, "insert:"+table, func(ctx context.Context) (struct{}, error) {
		endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		c.setAuthHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		if isUpsert {
			req.Header.Set("Prefer", "resolution=merge-duplicates")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("insert into %s rejected: %s", table, responseError(resp))
		}
		return struct{}{}, nil
	})

	if err != nil {
		c.breaker.RecordFailure()
		return err
	}
	c.breaker.RecordSuccess()
	return nil
}

func (c *Client) enqueueForRetry(ctx context.Context, record UserRecord) {
	if c.queue == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.queue.EnqueueSyncPayload(ctx, payload); err != nil {
		c.logger.Error("failed to queue sync payload for retry",
			slog.String("user_id", record.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

func userRecordFor(user *domain.User) UserRecord {
	fullName := user.FirstName
	if user.LastName != "" {
		if fullName != "" {
			fullName += " "
		}
		fullName += user.LastName
	}
	return UserRecord{
		ID:        user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		FullName:  fullName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func responseError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(snippet) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, string(snippet))
}
