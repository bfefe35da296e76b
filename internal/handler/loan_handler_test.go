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

type loanFixture struct {
	handler   *LoanHandler
	users     *testutil.MockUserRepository
	customers *testutil.MockCustomerRepository
	loans     *testutil.MockLoanRepository
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()
	users := testutil.NewMockUserRepository()
	customers := testutil.NewMockCustomerRepository()
	assignments := testutil.NewMockAgentAssignmentRepository()
	loans := testutil.NewMockLoanRepository()
	fees := testutil.NewMockFeePenaltyRepository()
	schedules := testutil.NewMockScheduleRepository()
	collections := testutil.NewMockCollectionRepository()

	checker := authz.New(assignments, customers)
	audit := service.NewAuditService(testutil.NewMockAuditRepository())
	c := testutil.NewTestCache(t)
	tx := testutil.NewMockTransactor()

	scheduleSvc := service.NewScheduleService(loans, schedules)
	loanSvc := service.NewLoanService(tx, loans, customers, fees, checker, audit, c, nil, scheduleSvc)
	collectionSvc := service.NewCollectionService(tx, loans, collections, schedules, fees, checker, audit, c)

	tokens := auth.NewTokenManager("access", "refresh", 15*time.Minute, 24*time.Hour)
	authMw := middleware.NewAuthMiddleware(tokens, users)

	return &loanFixture{
		handler:   NewLoanHandler(loanSvc, scheduleSvc, collectionSvc, authMw),
		users:     users,
		customers: customers,
		loans:     loans,
	}
}

func seedUser(t *testing.T, users *testutil.MockUserRepository, role domain.Role) *domain.User {
	t.Helper()
	u, err := users.Create(context.Background(), &domain.User{Email: uuid.New().String() + "@example.com", Role: role, Active: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedFixtureCustomer(t *testing.T, customers *testutil.MockCustomerRepository) *domain.Customer {
	t.Helper()
	cust, err := customers.Create(context.Background(), &domain.Customer{UserID: uuid.New(), DateOfBirth: time.Now()})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return cust
}

func TestLoanHandler_CreateLoan_Success(t *testing.T) {
	f := newLoanFixture(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)
	cust := seedFixtureCustomer(t, f.customers)

	e := echo.New()
	body := `{
		"customerId": "` + cust.ID.String() + `",
		"principal": "12000",
		"interestRate": "12",
		"frequency": "monthly",
		"tenureInstallments": 12,
		"repaymentType": "emi"
	}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.CustomerID != cust.ID.String() {
		t.Errorf("expected customer id %s, got %s", cust.ID, resp.CustomerID)
	}
	if resp.Status != string(domain.LoanPending) {
		t.Errorf("expected a pending loan, got %s", resp.Status)
	}
}

func TestLoanHandler_CreateLoan_InvalidCustomerID(t *testing.T) {
	f := newLoanFixture(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)

	e := echo.New()
	body := `{"customerId": "not-a-uuid", "principal": "100", "interestRate": "1", "frequency": "monthly", "tenureInstallments": 1}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.CreateLoan(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLoanHandler_CreateLoan_AgentRejected(t *testing.T) {
	f := newLoanFixture(t)
	agent := seedUser(t, f.users, domain.RoleAgent)
	cust := seedFixtureCustomer(t, f.customers)

	e := echo.New()
	body := `{"customerId": "` + cust.ID.String() + `", "principal": "100", "interestRate": "1", "frequency": "monthly", "tenureInstallments": 1}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, agent.ID)

	if err := f.handler.CreateLoan(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoanHandler_GetLoan_NotFound(t *testing.T) {
	f := newLoanFixture(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/loans/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	setupAuthContext(c, admin.ID)

	if err := f.handler.GetLoan(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestLoanHandler_PatchLoan_ApproveThenClose(t *testing.T) {
	f := newLoanFixture(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)
	cust := seedFixtureCustomer(t, f.customers)

	e := echo.New()
	createBody := `{
		"customerId": "` + cust.ID.String() + `",
		"principal": "1000",
		"interestRate": "12",
		"frequency": "monthly",
		"tenureInstallments": 2,
		"repaymentType": "emi"
	}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)
	if err := f.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	var created loanResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	approveBody := `{"action": "approve"}`
	req2 := httptest.NewRequest(http.MethodPatch, "/loans/"+created.ID, strings.NewReader(approveBody))
	req2.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	c2.SetParamNames("id")
	c2.SetParamValues(created.ID)
	setupAuthContext(c2, admin.ID)
	if err := f.handler.PatchLoan(c2); err != nil {
		t.Fatalf("PatchLoan approve: %v", err)
	}
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", rec2.Code, rec2.Body.String())
	}
}
