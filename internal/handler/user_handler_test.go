package handler

import (
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

func newUserFixtureHandler(t *testing.T) (*UserHandler, *testutil.MockUserRepository) {
	t.Helper()
	users := testutil.NewMockUserRepository()
	audit := service.NewAuditService(testutil.NewMockAuditRepository())
	userSvc := service.NewUserService(users, audit)
	tokens := auth.NewTokenManager("access", "refresh", 15*time.Minute, 24*time.Hour)
	authMw := middleware.NewAuthMiddleware(tokens, users)
	return NewUserHandler(userSvc, authMw), users
}

func TestUserHandler_Create_AdminMayCreateAgent(t *testing.T) {
	h, users := newUserFixtureHandler(t)
	admin := seedUser(t, users, domain.RoleAdmin)

	e := echo.New()
	body := `{"email": "agent@example.com", "password": "hunter2hunter2", "name": "Agent A", "role": "agent"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Role != "agent" {
		t.Errorf("expected role agent, got %s", resp.Role)
	}
}

func TestUserHandler_Create_AgentCannotCreateAnyAccount(t *testing.T) {
	h, users := newUserFixtureHandler(t)
	agent := seedUser(t, users, domain.RoleAgent)

	e := echo.New()
	body := `{"email": "x@example.com", "password": "hunter2hunter2", "name": "X", "role": "agent"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, agent.ID)

	if err := h.Create(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestUserHandler_Create_InvalidRoleRejected(t *testing.T) {
	h, users := newUserFixtureHandler(t)
	admin := seedUser(t, users, domain.RoleAdmin)

	e := echo.New()
	body := `{"email": "x@example.com", "password": "hunter2hunter2", "name": "X", "role": "superadmin"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := h.Create(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUserHandler_Deactivate_AdminAllowed(t *testing.T) {
	h, users := newUserFixtureHandler(t)
	admin := seedUser(t, users, domain.RoleAdmin)
	target := seedUser(t, users, domain.RoleAgent)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/users/"+target.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(target.ID.String())
	setupAuthContext(c, admin.ID)

	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}
