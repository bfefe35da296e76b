package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestFixedWindowLimiter_Allow(t *testing.T) {
	l := NewFixedWindowLimiter(3, time.Minute)
	defer l.Stop()

	key := "1.2.3.4"
	for i := 0; i < 3; i++ {
		if allowed, _ := l.Allow(key); !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if allowed, retryAfter := l.Allow(key); allowed {
		t.Error("4th request should be rate limited")
	} else if retryAfter < 0 {
		t.Errorf("expected a non-negative retry-after, got %d", retryAfter)
	}
}

func TestFixedWindowLimiter_DifferentKeys(t *testing.T) {
	l := NewFixedWindowLimiter(1, time.Minute)
	defer l.Stop()

	if allowed, _ := l.Allow("a"); !allowed {
		t.Error("key a's first request should be allowed")
	}
	if allowed, _ := l.Allow("a"); allowed {
		t.Error("key a's second request should be rate limited")
	}
	if allowed, _ := l.Allow("b"); !allowed {
		t.Error("key b should have its own independent window")
	}
}

func TestLoginRateLimit_SetsRetryAfterHeader(t *testing.T) {
	e := echo.New()
	l := NewFixedWindowLimiter(1, time.Minute)
	defer l.Stop()

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "OK") }

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := LoginRateLimit(l)(handler)(c); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req, rec2)
	if err := LoginRateLimit(l)(handler)(c2); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("expected a numeric Retry-After header")
	}
}

func TestAgentRateLimiter_Allow(t *testing.T) {
	rl := NewAgentRateLimiter(10, 3)
	defer rl.Stop()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if !rl.Allow(userID) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(userID) {
		t.Error("4th request should be rate limited")
	}
}

func TestAgentRateLimiter_DifferentUsers(t *testing.T) {
	rl := NewAgentRateLimiter(10, 2)
	defer rl.Stop()

	userA, userB := uuid.New(), uuid.New()
	for i := 0; i < 2; i++ {
		if !rl.Allow(userA) {
			t.Errorf("userA request %d should be allowed", i+1)
		}
	}
	if rl.Allow(userA) {
		t.Error("userA should be rate limited")
	}
	if !rl.Allow(userB) {
		t.Error("userB should have its own independent bucket")
	}
}

func TestAgentRateLimit_SkipsUnauthenticatedRequests(t *testing.T) {
	e := echo.New()
	rl := NewAgentRateLimiter(1, 1)
	defer rl.Stop()

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "OK")
	}

	req := httptest.NewRequest(http.MethodPost, "/loans", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := AgentRateLimit(rl)(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("handler should run when no user id is on the request context")
	}
}

func TestAgentRateLimit_RateLimitsAuthenticatedUser(t *testing.T) {
	e := echo.New()
	rl := NewAgentRateLimiter(10, 1)
	defer rl.Stop()

	userID := uuid.New()
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "OK") }

	newAuthedContext := func() echo.Context {
		req := httptest.NewRequest(http.MethodPost, "/loans", nil)
		ctx := context.WithValue(req.Context(), UserIDKey, userID)
		rec := httptest.NewRecorder()
		return e.NewContext(req.WithContext(ctx), rec)
	}

	c := newAuthedContext()
	if err := AgentRateLimit(rl)(handler)(c); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if c.Response().Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", c.Response().Status)
	}

	c2 := newAuthedContext()
	if err := AgentRateLimit(rl)(handler)(c2); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if c2.Response().Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", c2.Response().Status)
	}
	if c2.Response().Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
}
