package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/service"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

type customerFixtureHandler struct {
	handler   *CustomerHandler
	users     *testutil.MockUserRepository
	customers *testutil.MockCustomerRepository
}

func newCustomerFixtureHandler(t *testing.T) *customerFixtureHandler {
	t.Helper()
	users := testutil.NewMockUserRepository()
	customers := testutil.NewMockCustomerRepository()
	assignments := testutil.NewMockAgentAssignmentRepository()

	checker := authz.New(assignments, customers)
	audit := service.NewAuditService(testutil.NewMockAuditRepository())

	customerSvc := service.NewCustomerService(customers, checker, audit)
	userSvc := service.NewUserService(users, audit)
	tokens := auth.NewTokenManager("access", "refresh", 15*time.Minute, 24*time.Hour)
	authMw := middleware.NewAuthMiddleware(tokens, users)

	return &customerFixtureHandler{
		handler:   NewCustomerHandler(customerSvc, userSvc, authMw),
		users:     users,
		customers: customers,
	}
}

func TestCustomerHandler_Create_ComposesUserAndCustomerAccounts(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)

	e := echo.New()
	body := `{
		"email": "new-customer@example.com",
		"password": "hunter2hunter2",
		"name": "New Customer",
		"dateOfBirth": "1990-05-01",
		"idProof": "AAAA1111B"
	}`
	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp customerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Email != "new-customer@example.com" {
		t.Errorf("expected the provisioned login email to be echoed, got %s", resp.Email)
	}
}

func TestCustomerHandler_Create_ManagerAllowed(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	manager := seedUser(t, f.users, domain.RoleManager)

	e := echo.New()
	body := `{
		"email": "manager-created@example.com",
		"password": "hunter2hunter2",
		"name": "Managed Customer",
		"dateOfBirth": "1990-05-01"
	}`
	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, manager.ID)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected a manager to be able to provision a customer, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCustomerHandler_Create_AgentRejected(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	agent := seedUser(t, f.users, domain.RoleAgent)

	e := echo.New()
	body := `{"email": "x@example.com", "password": "hunter2hunter2", "name": "X", "dateOfBirth": "1990-05-01"}`
	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, agent.ID)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestCustomerHandler_Create_InvalidDateOfBirth(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)

	e := echo.New()
	body := `{"email": "x@example.com", "password": "hunter2hunter2", "name": "X", "dateOfBirth": "not-a-date"}`
	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.Create(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCustomerHandler_GetByID_CustomerScopedToSelf(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	selfUser, err := f.users.Create(context.Background(), &domain.User{Email: "self@example.com", Role: domain.RoleCustomer, Active: true})
	if err != nil {
		t.Fatalf("seed self user: %v", err)
	}
	self, err := f.customers.Create(context.Background(), &domain.Customer{UserID: selfUser.ID})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	other, err := f.customers.Create(context.Background(), &domain.Customer{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/customers/"+self.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(self.ID.String())
	setupAuthContext(c, selfUser.ID)

	if err := f.handler.GetByID(c); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a customer to view their own record, got %d: %s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/customers/"+other.ID.String(), nil)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	c2.SetParamNames("id")
	c2.SetParamValues(other.ID.String())
	setupAuthContext(c2, selfUser.ID)

	if err := f.handler.GetByID(c2); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec2.Code != http.StatusForbidden {
		t.Errorf("expected a customer viewing another's record to be forbidden, got %d", rec2.Code)
	}
}

func TestCustomerHandler_Delete_AdminAllowed(t *testing.T) {
	f := newCustomerFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)
	cust, err := f.customers.Create(context.Background(), &domain.Customer{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/customers/"+cust.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cust.ID.String())
	setupAuthContext(c, admin.ID)

	if err := f.handler.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}
