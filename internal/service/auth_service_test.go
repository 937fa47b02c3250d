package service

import (
	"context"
	"testing"

	"github.com/yourorg/flowhub/internal/domain"
	"github.com/yourorg/flowhub/internal/events"
	"github.com/yourorg/flowhub/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(repo *memUserRepo) (*AuthService, *mockSync, *mockRecorder) {
	sync := &mockSync{}
	recorder := &mockRecorder{}
	tokens := auth.NewTokenManager("secret", "flowhub-test")
	return NewAuthService(repo, tokens, recorder, sync, nil), sync, recorder
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return string(hash)
}

func TestLogin(t *testing.T) {
	repo := newMemUserRepo()
	repo.add(&domain.User{
		Email:    "alice@example.com",
		Password: hashPassword(t, "Password123"),
		Role:     domain.RoleMember,
	})
	svc, _, _ := newTestAuthService(repo)

	result, err := svc.Login(context.Background(), "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" || result.TokenType != "Bearer" {
		t.Fatalf("expected bearer token, got %+v", result)
	}

	if _, err := svc.Login(context.Background(), "alice@example.com", "wrong"); err == nil {
		t.Fatalf("expected invalid credentials for wrong password")
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "Password123"); err == nil {
		t.Fatalf("expected invalid credentials for unknown email")
	}
}

func TestLoginRejectsPendingAndDisabled(t *testing.T) {
	repo := newMemUserRepo()
	repo.add(&domain.User{
		Email:    "pending@example.com",
		Password: hashPassword(t, "Password123"),
		Pending:  true,
	})
	repo.add(&domain.User{
		Email:    "disabled@example.com",
		Password: hashPassword(t, "Password123"),
		Disabled: true,
	})
	svc, _, _ := newTestAuthService(repo)

	if _, err := svc.Login(context.Background(), "pending@example.com", "Password123"); err == nil {
		t.Fatalf("pending users must not log in")
	}
	if _, err := svc.Login(context.Background(), "disabled@example.com", "Password123"); err == nil {
		t.Fatalf("disabled users must not log in")
	}
}

func TestAcceptInvitation(t *testing.T) {
	repo := newMemUserRepo()
	owner := repo.add(&domain.User{Email: "owner@example.com", Role: domain.RoleOwner})
	invitee := repo.add(&domain.User{Email: "new@example.com", Role: domain.RoleMember, Pending: true})
	svc, sync, recorder := newTestAuthService(repo)

	user, err := svc.AcceptInvitation(context.Background(), owner.ID, invitee.ID, "New", "User", "Password123")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if user.Pending {
		t.Fatalf("accepted user must not stay pending")
	}
	if user.Password == "Password123" || user.Password == "" {
		t.Fatalf("password must be stored hashed")
	}
	if recorder.count(events.UserSignedUp) != 1 {
		t.Fatalf("expected signed-up event")
	}
	if len(sync.upserted) != 1 {
		t.Fatalf("expected accepted user re-synced")
	}

	// Second accept must fail: the invitation is spent.
	if _, err := svc.AcceptInvitation(context.Background(), owner.ID, invitee.ID, "New", "User", "Password123"); err == nil {
		t.Fatalf("expected error for already-accepted invitation")
	}
}

func TestAcceptInvitationValidation(t *testing.T) {
	repo := newMemUserRepo()
	owner := repo.add(&domain.User{Email: "owner@example.com", Role: domain.RoleOwner})
	invitee := repo.add(&domain.User{Email: "new@example.com", Pending: true})
	svc, _, _ := newTestAuthService(repo)

	if _, err := svc.AcceptInvitation(context.Background(), owner.ID, invitee.ID, "N", "U", "short"); err == nil {
		t.Fatalf("expected short password rejected")
	}
	if _, err := svc.AcceptInvitation(context.Background(), "missing", invitee.ID, "N", "U", "Password123"); err == nil {
		t.Fatalf("expected unknown inviter rejected")
	}
	if _, err := svc.AcceptInvitation(context.Background(), owner.ID, "missing", "N", "U", "Password123"); err == nil {
		t.Fatalf("expected unknown invitee rejected")
	}
}
