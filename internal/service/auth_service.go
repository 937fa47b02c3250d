package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/events"
	"github.com/yourorg/flowhub/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 15 * time.Minute

// AuthService handles login and invitation acceptance
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	events   EventRecorder
	sync     RemoteSync
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	recorder EventRecorder,
	sync RemoteSync,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		events:   recorder,
		sync:     sync,
		logger:   logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}
	if user.Pending || user.Disabled {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &LoginResult{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresIn: int(tokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// AcceptInvitation completes a pending user's signup from an invite link:
// the shell gets a name and password, stops being pending, and is mirrored
// to the remote store.
func (s *AuthService) AcceptInvitation(ctx context.Context, inviterID, inviteeID, firstName, lastName, password string) (*domain.User, error) {
	if password == "" || len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if _, err := s.userRepo.FindByID(ctx, inviterID); err != nil {
		return nil, errors.New("invalid invitation")
	}

	invitee, err := s.userRepo.FindByID(ctx, inviteeID)
	if err != nil {
		return nil, errors.New("invalid invitation")
	}
	if !invitee.Pending {
		return nil, errors.New("invitation already accepted")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to accept invitation")
	}

	invitee.FirstName = firstName
	invitee.LastName = lastName
	invitee.Password = string(hash)
	invitee.Pending = false

	if err := s.userRepo.Save(ctx, invitee); err != nil {
		s.logger.Error("failed to save invitee", slog.String("error", err.Error()))
		return nil, errors.New("failed to accept invitation")
	}

	s.events.Emit(events.UserSignedUp, map[string]any{
		"user_id":    invitee.ID,
		"inviter_id": inviterID,
	})
	s.sync.UpsertUser(ctx, invitee)

	return invitee, nil
}
