package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/events"
	"github.com/yourorg/flowhub/internal/featureflags"
	"github.com/yourorg/flowhub/internal/observability/metrics"
)

// featureFlagTimeout bounds how long a public-user projection waits for the
// flag provider. The lookup is cancelled, not abandoned, when it expires.
const featureFlagTimeout = 1500 * time.Millisecond

// Mailer sends invitation emails
type Mailer interface {
	Invite(ctx context.Context, email, inviteAcceptURL string) (sent bool, err error)
}

// EventRecorder receives user lifecycle events
type EventRecorder interface {
	Emit(name string, payload map[string]any)
}

// RemoteSync mirrors users into the remote store. Implementations swallow
// their own failures; callers never see a sync error.
type RemoteSync interface {
	UpsertUser(ctx context.Context, user *domain.User)
}

// UserPatch carries the fields an update may change; nil fields are kept
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
	Disabled  *bool
}

// PublicOptions controls optional augmentation of a public-user projection
type PublicOptions struct {
	WithInviteURL bool
	InviterID     string
	Flags         featureflags.Provider
	WithScopes    bool
}

// InviteUsersResult is the outcome of one invite batch
type InviteUsersResult struct {
	UsersInvited []domain.InviteResult `json:"usersInvited"`
	UsersCreated []string              `json:"usersCreated"`
}

// UserDirectoryService owns the user lifecycle: updates, settings, public
// projection, invitation batches, and role changes. The local repository is
// the source of truth; the remote store is a best-effort mirror.
type UserDirectoryService struct {
	repo    domain.UserRepository
	mailer  Mailer
	events  EventRecorder
	sync    RemoteSync
	baseURL string
	logger  *slog.Logger
}

// NewUserDirectoryService creates a new user directory service
func NewUserDirectoryService(
	repo domain.UserRepository,
	mailer Mailer,
	recorder EventRecorder,
	sync RemoteSync,
	baseURL string,
	logger *slog.Logger,
) *UserDirectoryService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserDirectoryService{
		repo:    repo,
		mailer:  mailer,
		events:  recorder,
		sync:    sync,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Update merges a patch into an existing user and persists it, then mirrors
// the saved record to the remote store. A missing user is a silent no-op.
func (s *UserDirectoryService) Update(ctx context.Context, userID string, patch UserPatch) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Disabled != nil {
		user.Disabled = *patch.Disabled
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return err
	}

	s.sync.UpsertUser(ctx, user)
	return nil
}

// UpdateSettings shallow-merges new settings into the user's settings map
func (s *UserDirectoryService) UpdateSettings(ctx context.Context, userID string, newSettings map[string]any) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Settings == nil {
		user.Settings = newSettings
	} else {
		for k, v := range newSettings {
			user.Settings[k] = v
		}
	}

	return s.repo.Save(ctx, user)
}

// ToPublic projects a user into its API-safe form. Secret fields are never
// copied, regardless of options. Feature-flag augmentation is best-effort
// under a deadline; scope augmentation always completes when requested.
func (s *UserDirectoryService) ToPublic(ctx context.Context, user *domain.User, opts PublicOptions) (*domain.PublicUser, error) {
	signInType := "email"
	for _, identity := range user.AuthIdentities {
		if identity.ProviderType == "ldap" {
			signInType = "ldap"
			break
		}
	}

	public := &domain.PublicUser{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       user.Role,
		Pending:    user.Pending,
		Disabled:   user.Disabled,
		SignInType: signInType,
		IsOwner:    user.IsOwner(),
		Settings:   user.Settings,
		CreatedAt:  user.CreatedAt,
	}

	if opts.WithInviteURL && opts.InviterID == "" {
		return nil, domain.ErrInviterRequired
	}

	if opts.WithInviteURL && public.Pending {
		public.InviteAcceptURL = s.inviteURL(opts.InviterID, public.ID)
	}

	if opts.Flags != nil {
		flagCtx, cancel := context.WithTimeout(ctx, featureFlagTimeout)
		flags, err := opts.Flags.FlagsFor(flagCtx, user.ID)
		cancel()
		if err != nil {
			s.logger.Warn("feature flag lookup skipped",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			public.FeatureFlags = flags
		}
	}

	if opts.WithScopes {
		public.GlobalScopes = domain.ScopesForRole(user.Role)
	}

	return public, nil
}

// InviteUsers processes an invitation batch. New accounts are created in one
// transaction; existing pending accounts are re-invited without new rows.
// Remote sync and email delivery run after commit, each isolated so one
// failure cannot affect other recipients or the committed state.
func (s *UserDirectoryService) InviteUsers(ctx context.Context, owner *domain.User, invitations []domain.Invitation) (*InviteUsersResult, error) {
	if len(invitations) == 0 {
		return &InviteUsersResult{}, nil
	}

	emails := make([]string, 0, len(invitations))
	for _, inv := range invitations {
		emails = append(emails, inv.Email)
	}

	existing, err := s.repo.FindManyByEmail(ctx, emails)
	if err != nil {
		return nil, err
	}

	existingByEmail := make(map[string]*domain.User, len(existing))
	for _, u := range existing {
		existingByEmail[u.Email] = u
	}

	var toCreate []domain.Invitation
	for _, inv := range invitations {
		if _, ok := existingByEmail[inv.Email]; !ok {
			toCreate = append(toCreate, inv)
		}
	}

	created := make(map[string]*domain.User, len(toCreate))
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx domain.UserTx) error {
		for _, inv := range toCreate {
			user, err := tx.CreateUserWithProject(ctx, inv.Email, inv.Role)
			if err != nil {
				return err
			}
			created[inv.Email] = user
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create user shells",
			slog.Int("count", len(toCreate)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: error during user creation: %w", domain.ErrInternal, err)
	}

	// Post-commit effects. Sync is best-effort by contract: a remote failure
	// can no longer touch the committed rows.
	invitees := make(map[string]*domain.User, len(created))
	for email, user := range created {
		invitees[email] = user
		metrics.ObserveUserInvited()
		s.sync.UpsertUser(ctx, user)
	}
	for _, user := range existing {
		if user.Pending {
			invitees[user.Email] = user
			s.sync.UpsertUser(ctx, user)
		}
	}

	usersInvited := s.sendInviteEmails(ctx, owner, invitations, invitees)

	usersCreated := make([]string, 0, len(toCreate))
	for _, inv := range toCreate {
		usersCreated = append(usersCreated, inv.Email)
	}

	return &InviteUsersResult{
		UsersInvited: usersInvited,
		UsersCreated: usersCreated,
	}, nil
}

// sendInviteEmails delivers one invite per recipient, isolating failures so
// a single bad address never aborts the rest of the batch.
func (s *UserDirectoryService) sendInviteEmails(
	ctx context.Context,
	owner *domain.User,
	invitations []domain.Invitation,
	invitees map[string]*domain.User,
) []domain.InviteResult {
	results := make([]domain.InviteResult, 0, len(invitees))

	for _, inv := range invitations {
		user, ok := invitees[inv.Email]
		if !ok {
			continue
		}

		acceptURL := s.inviteURL(owner.ID, user.ID)
		result := domain.InviteResult{
			User: domain.InvitedUser{
				ID:              user.ID,
				Email:           user.Email,
				Role:            inv.Role,
				InviteAcceptURL: acceptURL,
			},
		}

		sent, err := s.mailer.Invite(ctx, user.Email, acceptURL)
		if err != nil {
			s.events.Emit(events.EmailFailed, map[string]any{
				"user_id":     owner.ID,
				"messageType": "New user invite",
			})
			s.logger.Error("failed to send invite email",
				slog.String("user_id", owner.ID),
				slog.String("email", user.Email),
			)
			metrics.ObserveInviteEmail("error")
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		if sent {
			result.User.EmailSent = true
			result.User.InviteAcceptURL = ""
			metrics.ObserveInviteEmail("sent")
			s.events.Emit(events.TransactionalEmailSent, map[string]any{
				"user_id":     user.ID,
				"messageType": "New user invite",
			})
		} else {
			metrics.ObserveInviteEmail("suppressed")
		}

		s.events.Emit(events.UserInvited, map[string]any{
			"inviter_id":   owner.ID,
			"invitee_id":   user.ID,
			"invitee_role": string(inv.Role),
			"email_sent":   sent,
		})

		results = append(results, result)
	}

	return results
}

// ChangeUserRole updates the target's role inside one transaction. An owner
// demoting an admin to member also loses the target's owner-only API-key
// scopes; both changes commit or roll back together.
func (s *UserDirectoryService) ChangeUserRole(ctx context.Context, actor, target *domain.User, newRole domain.Role) error {
	err := s.repo.InTransaction(ctx, func(ctx context.Context, tx domain.UserTx) error {
		if err := tx.UpdateUserRole(ctx, target.ID, newRole); err != nil {
			return err
		}

		downgrade := actor.IsOwner() &&
			target.Role == domain.RoleAdmin &&
			newRole == domain.RoleMember
		if downgrade {
			return tx.RemoveOwnerOnlyScopesFromAPIKeys(ctx, target.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Emit(events.UserRoleChanged, map[string]any{
		"actor_id":  actor.ID,
		"target_id": target.ID,
		"new_role":  string(newRole),
	})

	synced := *target
	synced.Role = newRole
	s.sync.UpsertUser(ctx, &synced)
	return nil
}

func (s *UserDirectoryService) inviteURL(inviterID, inviteeID string) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		u = &url.URL{Scheme: "http", Host: "localhost"}
	}
	u.Path = "/signup"
	q := url.Values{}
	q.Set("inviterId", inviterID)
	q.Set("inviteeId", inviteeID)
	u.RawQuery = q.Encode()
	return u.String()
}
