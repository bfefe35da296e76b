// Package testutil provides in-memory fake repositories for service-layer
// tests, following the teacher's map-backed MockXRepository idiom
// (internal/testutil/mocks.go there) adapted to this module's domain
// interfaces. Every fake is safe for sequential use only; concurrency isn't
// exercised here because pgx/redis are the things that actually serialize
// access in production.
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// MockTransactor runs fn directly against the same context: fakes have no
// real transactional isolation to offer, so WithinTx only exists to satisfy
// repository.Transactor's contract for service-layer unit tests.
type MockTransactor struct{}

func NewMockTransactor() *MockTransactor { return &MockTransactor{} }

func (t *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---- users ----

type MockUserRepository struct {
	ByID    map[uuid.UUID]*domain.User
	ByEmail map[string]*domain.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{ByID: map[uuid.UUID]*domain.User{}, ByEmail: map[string]*domain.User{}}
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if _, exists := m.ByEmail[u.Email]; exists {
		return nil, domain.ErrEmailAlreadyExists
	}
	u.ID = uuid.New()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.ByID[u.ID] = u
	m.ByEmail[u.Email] = u
	return u, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := m.ByID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := m.ByEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if _, ok := m.ByID[u.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	u.UpdatedAt = time.Now()
	m.ByID[u.ID] = u
	m.ByEmail[u.Email] = u
	return u, nil
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	u, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Active = false
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, role domain.Role, page, limit int) ([]*domain.User, int, error) {
	var all []*domain.User
	for _, u := range m.ByID {
		if role == "" || u.Role == role {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page, limit), len(all), nil
}

// ---- customers ----

type MockCustomerRepository struct {
	ByID     map[uuid.UUID]*domain.Customer
	ByUserID map[uuid.UUID]*domain.Customer
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{ByID: map[uuid.UUID]*domain.Customer{}, ByUserID: map[uuid.UUID]*domain.Customer{}}
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	m.ByID[c.ID] = c
	m.ByUserID[c.UserID] = c
	return c, nil
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if c, ok := m.ByID[id]; ok && c.DeletedAt == nil {
		return c, nil
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *MockCustomerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	if c, ok := m.ByUserID[userID]; ok && c.DeletedAt == nil {
		return c, nil
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *MockCustomerRepository) Update(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	if _, ok := m.ByID[c.ID]; !ok {
		return nil, domain.ErrCustomerNotFound
	}
	c.UpdatedAt = time.Now()
	m.ByID[c.ID] = c
	return c, nil
}

func (m *MockCustomerRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, ok := m.ByID[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (m *MockCustomerRepository) List(ctx context.Context, page, limit int) ([]*domain.Customer, int, error) {
	var all []*domain.Customer
	for _, c := range m.ByID {
		if c.DeletedAt == nil {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page, limit), len(all), nil
}

// ---- agent assignments ----

type MockAgentAssignmentRepository struct {
	ByCustomer map[uuid.UUID]*domain.AgentAssignment
}

func NewMockAgentAssignmentRepository() *MockAgentAssignmentRepository {
	return &MockAgentAssignmentRepository{ByCustomer: map[uuid.UUID]*domain.AgentAssignment{}}
}

func (m *MockAgentAssignmentRepository) Create(ctx context.Context, a *domain.AgentAssignment) (*domain.AgentAssignment, error) {
	a.ID = uuid.New()
	a.AssignedAt = time.Now()
	a.Active = true
	m.ByCustomer[a.CustomerID] = a
	return a, nil
}

func (m *MockAgentAssignmentRepository) GetActiveForCustomer(ctx context.Context, customerID uuid.UUID) (*domain.AgentAssignment, error) {
	if a, ok := m.ByCustomer[customerID]; ok && a.Active {
		return a, nil
	}
	return nil, domain.ErrNotAuthorized
}

func (m *MockAgentAssignmentRepository) EndActiveForCustomer(ctx context.Context, customerID uuid.UUID) error {
	if a, ok := m.ByCustomer[customerID]; ok {
		a.Active = false
		now := time.Now()
		a.EndedAt = &now
	}
	return nil
}

func (m *MockAgentAssignmentRepository) ListActiveForAgent(ctx context.Context, agentID uuid.UUID) ([]*domain.AgentAssignment, error) {
	var out []*domain.AgentAssignment
	for _, a := range m.ByCustomer {
		if a.Active && a.AgentID == agentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAgentAssignmentRepository) IsActiveAssignment(ctx context.Context, agentID, customerID uuid.UUID) (bool, error) {
	a, ok := m.ByCustomer[customerID]
	return ok && a.Active && a.AgentID == agentID, nil
}

// ---- loans ----

type MockLoanRepository struct {
	ByID        map[uuid.UUID]*domain.Loan
	Charges     map[uuid.UUID][]*domain.LoanCharge
	loanCounter int
}

func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{ByID: map[uuid.UUID]*domain.Loan{}, Charges: map[uuid.UUID][]*domain.LoanCharge{}}
}

func (m *MockLoanRepository) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	l.ID = uuid.New()
	l.CreatedAt, l.UpdatedAt = time.Now(), time.Now()
	m.ByID[l.ID] = l
	return l, nil
}

func (m *MockLoanRepository) CreateCharges(ctx context.Context, charges []*domain.LoanCharge) error {
	for _, c := range charges {
		c.ID = uuid.New()
		m.Charges[c.LoanID] = append(m.Charges[c.LoanID], c)
	}
	return nil
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if l, ok := m.ByID[id]; ok {
		return l, nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return m.GetByID(ctx, id)
}

func (m *MockLoanRepository) GetNextLoanNumber(ctx context.Context) (string, error) {
	m.loanCounter++
	return "LN-" + uuid.New().String()[:8], nil
}

func (m *MockLoanRepository) Update(ctx context.Context, l *domain.Loan) error {
	if _, ok := m.ByID[l.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	l.UpdatedAt = time.Now()
	m.ByID[l.ID] = l
	return nil
}

func (m *MockLoanRepository) ListCharges(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanCharge, error) {
	return m.Charges[loanID], nil
}

func (m *MockLoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, int, error) {
	var all []*domain.Loan
	for _, l := range m.ByID {
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && l.CustomerID != *filter.CustomerID {
			continue
		}
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, filter.Page, filter.Limit), len(all), nil
}

func (m *MockLoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.ByID[id]; !ok {
		return domain.ErrLoanNotFound
	}
	delete(m.ByID, id)
	return nil
}

// ---- schedule ----

type MockScheduleRepository struct {
	ByLoan map[uuid.UUID][]*domain.ScheduleRow
}

func NewMockScheduleRepository() *MockScheduleRepository {
	return &MockScheduleRepository{ByLoan: map[uuid.UUID][]*domain.ScheduleRow{}}
}

func (m *MockScheduleRepository) ExistsAny(ctx context.Context, loanID uuid.UUID) (bool, error) {
	return len(m.ByLoan[loanID]) > 0, nil
}

func (m *MockScheduleRepository) InsertBatch(ctx context.Context, rows []*domain.ScheduleRow) error {
	for _, r := range rows {
		r.ID = uuid.New()
		m.ByLoan[r.LoanID] = append(m.ByLoan[r.LoanID], r)
	}
	return nil
}

func (m *MockScheduleRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleRow, error) {
	rows := m.ByLoan[loanID]
	sort.Slice(rows, func(i, j int) bool { return rows[i].InstallmentNumber < rows[j].InstallmentNumber })
	return rows, nil
}

func (m *MockScheduleRepository) ListUnpaidAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleRow, error) {
	var out []*domain.ScheduleRow
	for _, r := range m.ByLoan[loanID] {
		if !r.Paid {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstallmentNumber < out[j].InstallmentNumber })
	return out, nil
}

func (m *MockScheduleRepository) UpdateRow(ctx context.Context, row *domain.ScheduleRow) error {
	for i, r := range m.ByLoan[row.LoanID] {
		if r.ID == row.ID {
			m.ByLoan[row.LoanID][i] = row
			return nil
		}
	}
	return domain.ErrLoanNotFound
}

// ---- collections ----

type MockCollectionRepository struct {
	ByID       map[uuid.UUID]*domain.Collection
	ByReceipt  map[string]*domain.Collection
}

func NewMockCollectionRepository() *MockCollectionRepository {
	return &MockCollectionRepository{ByID: map[uuid.UUID]*domain.Collection{}, ByReceipt: map[string]*domain.Collection{}}
}

func (m *MockCollectionRepository) Create(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if _, exists := m.ByReceipt[c.ReceiptNumber]; exists {
		return nil, domain.ErrReceiptCollision
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.ByID[c.ID] = c
	m.ByReceipt[c.ReceiptNumber] = c
	return c, nil
}

func (m *MockCollectionRepository) GetByReceiptNumber(ctx context.Context, receipt string) (*domain.Collection, error) {
	if c, ok := m.ByReceipt[receipt]; ok {
		return c, nil
	}
	return nil, domain.ErrCollectionNotFound
}

func (m *MockCollectionRepository) List(ctx context.Context, filter domain.CollectionFilter) ([]*domain.Collection, int, error) {
	var all []*domain.Collection
	for _, c := range m.ByID {
		if filter.LoanID != nil && c.LoanID != *filter.LoanID {
			continue
		}
		if filter.AgentID != nil && c.AgentID != *filter.AgentID {
			continue
		}
		if filter.StartDate != nil && c.CollectionDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && !c.CollectionDate.Before(*filter.EndDate) {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CollectionDate.Before(all[j].CollectionDate) })
	return paginate(all, filter.Page, filter.Limit), len(all), nil
}

// ---- fees/penalties ----

type MockFeePenaltyRepository struct {
	LateFees  map[uuid.UUID][]*domain.LateFeeRecord
	Penalties map[uuid.UUID][]*domain.PenaltyRecord
}

func NewMockFeePenaltyRepository() *MockFeePenaltyRepository {
	return &MockFeePenaltyRepository{LateFees: map[uuid.UUID][]*domain.LateFeeRecord{}, Penalties: map[uuid.UUID][]*domain.PenaltyRecord{}}
}

func (m *MockFeePenaltyRepository) CreateLateFee(ctx context.Context, f *domain.LateFeeRecord) error {
	f.ID = uuid.New()
	m.LateFees[f.LoanID] = append(m.LateFees[f.LoanID], f)
	return nil
}

func (m *MockFeePenaltyRepository) CreatePenalty(ctx context.Context, p *domain.PenaltyRecord) error {
	p.ID = uuid.New()
	m.Penalties[p.LoanID] = append(m.Penalties[p.LoanID], p)
	return nil
}

func (m *MockFeePenaltyRepository) ListUnpaidLateFeesAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.LateFeeRecord, error) {
	var out []*domain.LateFeeRecord
	for _, f := range m.LateFees[loanID] {
		if !f.Paid {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (m *MockFeePenaltyRepository) ListUnpaidPenaltiesAscending(ctx context.Context, loanID uuid.UUID) ([]*domain.PenaltyRecord, error) {
	var out []*domain.PenaltyRecord
	for _, p := range m.Penalties[loanID] {
		if !p.Paid {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (m *MockFeePenaltyRepository) MarkLateFeePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	for _, fees := range m.LateFees {
		for _, f := range fees {
			if f.ID == id {
				f.Paid = true
				f.PaidAt = &paidAt
				return nil
			}
		}
	}
	return nil
}

func (m *MockFeePenaltyRepository) MarkPenaltyPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	for _, penalties := range m.Penalties {
		for _, p := range penalties {
			if p.ID == id {
				p.Paid = true
				p.PaidAt = &paidAt
				return nil
			}
		}
	}
	return nil
}

func (m *MockFeePenaltyRepository) SumUnpaidLateFees(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, f := range m.LateFees[loanID] {
		if !f.Paid {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}

func (m *MockFeePenaltyRepository) SumUnpaidPenalties(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range m.Penalties[loanID] {
		if !p.Paid {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

// ---- audit ----

type MockAuditRepository struct {
	Entries []*domain.AuditEntry
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.Entries = append(m.Entries, e)
	return nil
}

// ---- capital ledger ----

type MockInvestmentRepository struct {
	ByID map[uuid.UUID]*domain.Investment
}

func NewMockInvestmentRepository() *MockInvestmentRepository {
	return &MockInvestmentRepository{ByID: map[uuid.UUID]*domain.Investment{}}
}

func (m *MockInvestmentRepository) Create(ctx context.Context, i *domain.Investment) (*domain.Investment, error) {
	i.ID = uuid.New()
	i.CreatedAt = time.Now()
	m.ByID[i.ID] = i
	return i, nil
}

func (m *MockInvestmentRepository) List(ctx context.Context, page, limit int) ([]*domain.Investment, int, error) {
	var all []*domain.Investment
	for _, i := range m.ByID {
		all = append(all, i)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page, limit), len(all), nil
}

type MockBorrowingRepository struct {
	ByID map[uuid.UUID]*domain.Borrowing
}

func NewMockBorrowingRepository() *MockBorrowingRepository {
	return &MockBorrowingRepository{ByID: map[uuid.UUID]*domain.Borrowing{}}
}

func (m *MockBorrowingRepository) Create(ctx context.Context, b *domain.Borrowing) (*domain.Borrowing, error) {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	m.ByID[b.ID] = b
	return b, nil
}

func (m *MockBorrowingRepository) List(ctx context.Context, page, limit int) ([]*domain.Borrowing, int, error) {
	var all []*domain.Borrowing
	for _, b := range m.ByID {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page, limit), len(all), nil
}

// ---- analytics ----

// MockAnalyticsRepository is a fixed-response fake: analytics aggregation
// lives in AnalyticsRepository's SQL, which no test in this module runs, so
// the unit-test fake just returns whatever the test preloads instead of re-deriving sums from
// the other fakes' maps.
type MockAnalyticsRepository struct {
	StatusCounts      []domain.StatusCount
	OutstandingPrinc  decimal.Decimal
	OutstandingInt    decimal.Decimal
	Disbursed         decimal.Decimal
	Collected         decimal.Decimal
	Trend             []domain.TrendPoint
}

func NewMockAnalyticsRepository() *MockAnalyticsRepository {
	return &MockAnalyticsRepository{}
}

func (m *MockAnalyticsRepository) CountLoansByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return m.StatusCounts, nil
}

func (m *MockAnalyticsRepository) SumOutstanding(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return m.OutstandingPrinc, m.OutstandingInt, nil
}

func (m *MockAnalyticsRepository) SumDisbursedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	return m.Disbursed, nil
}

func (m *MockAnalyticsRepository) SumCollectedInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	return m.Collected, nil
}

func (m *MockAnalyticsRepository) TrendBuckets(ctx context.Context, start, end time.Time, truncUnit string) ([]domain.TrendPoint, error) {
	return m.Trend, nil
}

// paginate applies page (1-indexed) and limit to an already-sorted slice.
func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
