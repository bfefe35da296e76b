package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/service"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

func newAuthFixtureHandler(t *testing.T) (*AuthHandler, *testutil.MockUserRepository) {
	t.Helper()
	users := testutil.NewMockUserRepository()
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	authSvc := service.NewAuthService(users, tokens)
	authMw := middleware.NewAuthMiddleware(tokens, users)
	return NewAuthHandler(authSvc, authMw, false), users
}

func TestAuthHandler_Login_SetsSessionCookies(t *testing.T) {
	h, users := newAuthFixtureHandler(t)
	hash, err := service.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := users.Create(context.Background(), &domain.User{Email: "admin@example.com", PasswordHash: hash, Role: domain.RoleAdmin, Active: true}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	e := echo.New()
	body := `{"email": "admin@example.com", "password": "correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	var sawAccess, sawRefresh bool
	for _, ck := range cookies {
		if ck.Name == middleware.AccessCookieName {
			sawAccess = true
		}
		if ck.Name == middleware.RefreshCookieName {
			sawRefresh = true
		}
	}
	if !sawAccess || !sawRefresh {
		t.Errorf("expected both session cookies to be set, got %v", cookies)
	}
}

func TestAuthHandler_Login_WrongPasswordRejected(t *testing.T) {
	h, users := newAuthFixtureHandler(t)
	hash, _ := service.HashPassword("correct-horse")
	users.Create(context.Background(), &domain.User{Email: "admin@example.com", PasswordHash: hash, Role: domain.RoleAdmin, Active: true})

	e := echo.New()
	body := `{"email": "admin@example.com", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	h, users := newAuthFixtureHandler(t)
	admin := seedUser(t, users, domain.RoleAdmin)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := h.Me(c); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != admin.ID.String() {
		t.Errorf("expected the authenticated user's id, got %s", resp.ID)
	}
}

func TestAuthHandler_Me_NoSessionRejected(t *testing.T) {
	h, _ := newAuthFixtureHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookies(t *testing.T) {
	h, _ := newAuthFixtureHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected both cookies to be cleared, got %d", len(cookies))
	}
	for _, ck := range cookies {
		if ck.MaxAge >= 0 {
			t.Errorf("expected cookie %s to be expired, got MaxAge %d", ck.Name, ck.MaxAge)
		}
	}
}
