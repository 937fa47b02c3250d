package domain

import (
	"context"
	"time"
)

// CredentialRef points a node at a stored credential, by id or by name.
// A ref with an empty ID is name-keyed; resolution may fill the ID in.
type CredentialRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Node is one step of a workflow definition
type Node struct {
	ID          string                   `json:"id,omitempty"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	Disabled    bool                     `json:"disabled,omitempty"`
	Parameters  map[string]any           `json:"parameters,omitempty"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
}

// Workflow is a workflow definition owned by a user
type Workflow struct {
	ID        string         `json:"id,omitempty"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Nodes     []Node         `json:"nodes,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Execution records one workflow run
type Execution struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	WorkflowID string         `json:"workflow_id"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"output"`
}

// LogLevel classifies a log entry
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is a free-form platform log line shipped to the remote store
type LogEntry struct {
	UserID    string    `json:"user_id,omitempty"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level,omitempty"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// Credential is a stored credential usable by workflow nodes
type Credential struct {
	ID        string
	Name      string
	Type      string
	Data      string // encrypted payload, opaque here
	CreatedAt time.Time
}

// CredentialRepository defines lookup access for stored credentials
type CredentialRepository interface {
	FindByIDAndType(ctx context.Context, id, credType string) (*Credential, error)
	FindManyByNameAndType(ctx context.Context, name, credType string) ([]*Credential, error)
}
