package service

import (
	"context"
	"testing"
	"time"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func newTestAuthService() (*AuthService, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewAuthService(users, tokens), users
}

func seedActiveUser(t *testing.T, users *testutil.MockUserRepository, email, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := users.Create(context.Background(), &domain.User{Email: email, PasswordHash: hash, Role: domain.RoleAdmin, Active: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, users := newTestAuthService()
	seedActiveUser(t, users, "admin@example.com", "correct-horse")

	user, access, refresh, err := svc.Login(context.Background(), "admin@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "admin@example.com" {
		t.Errorf("expected matching user, got %s", user.Email)
	}
	if access == "" || refresh == "" {
		t.Error("expected both tokens to be minted")
	}
}

func TestAuthService_Login_WrongPasswordRejected(t *testing.T) {
	svc, users := newTestAuthService()
	seedActiveUser(t, users, "admin@example.com", "correct-horse")

	_, _, _, err := svc.Login(context.Background(), "admin@example.com", "wrong-password")
	if err != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmailAndWrongPasswordLookTheSame(t *testing.T) {
	svc, _ := newTestAuthService()
	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	if err != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for an unknown email, got %v", err)
	}
}

func TestAuthService_Login_DeactivatedUserRejected(t *testing.T) {
	svc, users := newTestAuthService()
	user := seedActiveUser(t, users, "admin@example.com", "correct-horse")
	users.Deactivate(context.Background(), user.ID)

	_, _, _, err := svc.Login(context.Background(), "admin@example.com", "correct-horse")
	if err != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for a deactivated account, got %v", err)
	}
}

func TestAuthService_Refresh_MintsNewPairAndRejectsAccessTokenAsRefresh(t *testing.T) {
	svc, users := newTestAuthService()
	seedActiveUser(t, users, "admin@example.com", "correct-horse")
	_, access, refresh, err := svc.Login(context.Background(), "admin@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, newAccess, newRefresh, err := svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if newAccess == "" || newRefresh == "" {
		t.Error("expected a freshly minted pair")
	}

	if _, _, _, err := svc.Refresh(context.Background(), access); err == nil {
		t.Error("expected an access token presented as a refresh token to be rejected")
	}
}
