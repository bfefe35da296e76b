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
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/auth"
	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
	"github.com/namma-finance/ledger-core/internal/service"
	"github.com/namma-finance/ledger-core/internal/testutil"
)

type collectionFixtureHandler struct {
	handler *CollectionHandler
	users   *testutil.MockUserRepository
	loans   *testutil.MockLoanRepository
}

func newCollectionFixtureHandler(t *testing.T) *collectionFixtureHandler {
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

	collectionSvc := service.NewCollectionService(tx, loans, collections, schedules, fees, checker, audit, c)
	tokens := auth.NewTokenManager("access", "refresh", 15*time.Minute, 24*time.Hour)
	authMw := middleware.NewAuthMiddleware(tokens, users)

	return &collectionFixtureHandler{
		handler: NewCollectionHandler(collectionSvc, authMw),
		users:   users,
		loans:   loans,
	}
}

func seedActiveLoan(t *testing.T, loans *testutil.MockLoanRepository, customerID uuid.UUID) *domain.Loan {
	t.Helper()
	loan, err := loans.Create(context.Background(), &domain.Loan{
		CustomerID:           customerID,
		OutstandingPrincipal: decimal.NewFromInt(1000),
		OutstandingInterest:  decimal.NewFromInt(100),
		Status:               domain.LoanActive,
	})
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return loan
}

func TestCollectionHandler_Record_Success(t *testing.T) {
	f := newCollectionFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)
	loan := seedActiveLoan(t, f.loans, uuid.New())

	e := echo.New()
	body := `{"loanId": "` + loan.ID.String() + `", "amount": "50"}`
	req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.Record(c); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp recordCollectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Collection.ReceiptNumber == "" {
		t.Error("expected a generated receipt number")
	}
}

func TestCollectionHandler_Record_OverpaymentEchoesOutstanding(t *testing.T) {
	f := newCollectionFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)
	loan := seedActiveLoan(t, f.loans, uuid.New())

	e := echo.New()
	body := `{"loanId": "` + loan.ID.String() + `", "amount": "999999"}`
	req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.Record(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["outstanding"] == "" {
		t.Error("expected the outstanding total to be echoed back")
	}
}

func TestCollectionHandler_Record_InvalidAmountRejected(t *testing.T) {
	f := newCollectionFixtureHandler(t)
	agent := seedUser(t, f.users, domain.RoleAgent)
	loan := seedActiveLoan(t, f.loans, uuid.New())

	e := echo.New()
	body := `{"loanId": "` + loan.ID.String() + `", "amount": "not-a-number"}`
	req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, agent.ID)

	if err := f.handler.Record(c); err != nil {
		t.Fatalf("expected a rendered error, got Go error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCollectionHandler_List_FiltersByLoan(t *testing.T) {
	f := newCollectionFixtureHandler(t)
	admin := seedUser(t, f.users, domain.RoleAdmin)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/collections?loanId="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, admin.ID)

	if err := f.handler.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
