package domain

import (
	"context"
	"time"
)

// Role is a user's global role on the instance
type Role string

const (
	RoleOwner  Role = "global:owner"
	RoleAdmin  Role = "global:admin"
	RoleMember Role = "global:member"
)

// AssignableRoles are the roles an invitation or role change may grant.
// The owner role is assigned at instance setup only.
var AssignableRoles = []Role{RoleAdmin, RoleMember}

// AuthIdentity links a user to an external sign-in provider
type AuthIdentity struct {
	ProviderID   string
	ProviderType string // "ldap", "saml", "email"
}

// User represents a platform user
type User struct {
	ID               string // UUID
	Email            string // Unique email address
	FirstName        string
	LastName         string
	Password         string // Bcrypt hash, empty for pending shells (not returned in API)
	Role             Role
	Pending          bool // Invited but not yet signed up
	Disabled         bool
	MFASecret        string
	MFARecoveryCodes []string
	Settings         map[string]any // Open key-value user settings
	AuthIdentities   []AuthIdentity
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOwner reports whether the user holds the instance owner role
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// PublicUser is the projection of User safe to return from the API.
// It never carries password, MFA material, or raw auth identities.
type PublicUser struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"firstName,omitempty"`
	LastName        string          `json:"lastName,omitempty"`
	Role            Role            `json:"role"`
	Pending         bool            `json:"isPending"`
	Disabled        bool            `json:"disabled,omitempty"`
	SignInType      string          `json:"signInType"`
	IsOwner         bool            `json:"isOwner"`
	Settings        map[string]any  `json:"settings,omitempty"`
	InviteAcceptURL string          `json:"inviteAcceptUrl,omitempty"`
	EmailSent       bool            `json:"emailSent,omitempty"`
	FeatureFlags    map[string]bool `json:"featureFlags,omitempty"`
	GlobalScopes    []string        `json:"globalScopes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Invitation is a single invite request: who to invite and with what role
type Invitation struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// InviteResult is the per-recipient outcome of an invite batch entry
type InviteResult struct {
	User  InvitedUser `json:"user"`
	Error string      `json:"error,omitempty"`
}

// InvitedUser describes one invitee in an InviteResult
type InvitedUser struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            Role   `json:"role"`
	InviteAcceptURL string `json:"inviteAcceptUrl,omitempty"`
	EmailSent       bool   `json:"emailSent"`
}

// UserTx bundles the user-store operations that must share one transaction
type UserTx interface {
	CreateUserWithProject(ctx context.Context, email string, role Role) (*User, error)
	UpdateUserRole(ctx context.Context, userID string, role Role) error
	RemoveOwnerOnlyScopesFromAPIKeys(ctx context.Context, userID string) error
}

// UserRepository defines data access for users
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindManyByEmail(ctx context.Context, emails []string) ([]*User, error)
	List(ctx context.Context) ([]*User, error)
	Save(ctx context.Context, user *User) error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error
}

// APIKey is a public API key issued to a user
type APIKey struct {
	ID        string
	UserID    string
	Label     string
	KeyHash   string
	Scopes    []string
	CreatedAt time.Time
}

// OwnerOnlyScopes are API-key scopes stripped when a user loses admin standing
var OwnerOnlyScopes = []string{
	"user:create",
	"user:delete",
	"user:changeRole",
	"securityAudit:generate",
}
