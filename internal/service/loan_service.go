package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namma-finance/ledger-core/internal/authz"
	"github.com/namma-finance/ledger-core/internal/cache"
	"github.com/namma-finance/ledger-core/internal/calculator"
	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/jobs"
	"github.com/namma-finance/ledger-core/internal/money"
	"github.com/namma-finance/ledger-core/internal/repository"
)

// LoanService implements §4.4's lifecycle operations. It is constructed once
// per process with every repository, the shared Transactor, the authz
// checker, the audit service, the cache and the deferred job queue.
type LoanService struct {
	tx        repository.Transactor
	loans     domain.LoanRepository
	customers domain.CustomerRepository
	fees      domain.FeePenaltyRepository
	checker   *authz.Checker
	audit     *AuditService
	cache     *cache.Cache
	queue     *jobs.Queue
	scheduler *ScheduleService
}

func NewLoanService(
	tx repository.Transactor,
	loans domain.LoanRepository,
	customers domain.CustomerRepository,
	fees domain.FeePenaltyRepository,
	checker *authz.Checker,
	audit *AuditService,
	c *cache.Cache,
	queue *jobs.Queue,
	scheduler *ScheduleService,
) *LoanService {
	return &LoanService{
		tx: tx, loans: loans, customers: customers, fees: fees,
		checker: checker, audit: audit, cache: c, queue: queue, scheduler: scheduler,
	}
}

// CreateLoanInput mirrors POST /loans's body.
type CreateLoanInput struct {
	CustomerID            uuid.UUID
	Principal             decimal.Decimal
	AnnualInterestPercent decimal.Decimal
	Frequency             domain.Frequency
	TenureInstallments    int
	CustomPeriodDays      int
	RepaymentType         domain.RepaymentType
	GracePeriodDays       int
	LateFeeDailyPercent   decimal.Decimal
	PenaltyPercent        decimal.Decimal
	Charges               []*domain.LoanCharge
	StartDate             *time.Time
	Remarks               string
}

// CreateLoan implements create-loan.
func (s *LoanService) CreateLoan(ctx context.Context, actor *domain.User, in CreateLoanInput) (*domain.Loan, error) {
	if !authz.MayMutateLoanLifecycle(actor) {
		return nil, domain.ErrNotAuthorized
	}
	if _, err := s.customers.GetByID(ctx, in.CustomerID); err != nil {
		return nil, domain.ErrCustomerNotFound
	}

	startDate := time.Now()
	if in.StartDate != nil {
		startDate = *in.StartDate
	}
	terms := calculator.Terms{
		Principal:             in.Principal,
		AnnualInterestPercent: in.AnnualInterestPercent,
		TenureInstallments:    in.TenureInstallments,
		Frequency:             in.Frequency,
		CustomPeriodDays:      in.CustomPeriodDays,
		RepaymentType:         in.RepaymentType,
		StartDate:             startDate,
	}
	if err := calculator.ValidateTerms(terms); err != nil {
		return nil, err
	}
	installment, err := calculator.InstallmentAmount(terms)
	if err != nil {
		return nil, err
	}
	totalInterest := calculator.TotalInterest(installment, in.TenureInstallments, in.Principal)
	totalAmount := money.RoundAmount(in.Principal.Add(totalInterest))

	var chargesSum decimal.Decimal
	for _, c := range in.Charges {
		chargesSum = chargesSum.Add(c.Amount)
	}
	disbursedAmount := money.RoundAmount(in.Principal.Sub(chargesSum))
	if disbursedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrChargesExceedPrincipal
	}

	endDate := calculator.EndDate(terms)

	loan := &domain.Loan{
		CustomerID:            in.CustomerID,
		CreatedBy:              actor.ID,
		Principal:              in.Principal,
		AnnualInterestPercent:  in.AnnualInterestPercent,
		TenureInstallments:     in.TenureInstallments,
		Frequency:              in.Frequency,
		CustomPeriodDays:       in.CustomPeriodDays,
		RepaymentType:          in.RepaymentType,
		GracePeriodDays:        in.GracePeriodDays,
		LateFeeDailyPercent:    in.LateFeeDailyPercent,
		PenaltyPercent:         in.PenaltyPercent,
		InstallmentAmount:      installment,
		TotalInterest:          totalInterest,
		TotalAmount:            totalAmount,
		DisbursedAmount:        disbursedAmount,
		StartDate:              startDate,
		EndDate:                endDate,
		OutstandingPrincipal:   in.Principal,
		OutstandingInterest:    totalInterest,
		Status:                 domain.LoanPending,
		Remarks:                in.Remarks,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loanNumber, err := s.loans.GetNextLoanNumber(ctx)
		if err != nil {
			return err
		}
		loan.LoanNumber = loanNumber
		if _, err := s.loans.Create(ctx, loan); err != nil {
			return err
		}
		for _, c := range in.Charges {
			c.LoanID = loan.ID
		}
		if len(in.Charges) > 0 {
			if err := s.loans.CreateCharges(ctx, in.Charges); err != nil {
				return err
			}
		}
		s.audit.Record(ctx, actor.ID, domain.AuditLoanCreated, "loan", loan.ID, nil, loan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.SubmitScheduleGeneration(ctx, loan.ID); err != nil {
			// Queue unavailable: fall back to synchronous generation so the
			// loan is never left without a schedule (§4.6 degradation path).
			_ = s.scheduler.GenerateForLoan(ctx, jobs.ScheduleGenerationPayload{LoanID: loan.ID})
		}
	}
	s.cache.InvalidateLoan(ctx, loan.ID.String(), loan.CustomerID.String())
	return loan, nil
}

// Transition implements approve/disburse/close/preclose/mark-defaulted.
type Transition string

const (
	TransitionApprove      Transition = "approve"
	TransitionDisburse     Transition = "disburse"
	TransitionClose        Transition = "close"
	TransitionPreclose     Transition = "preclose"
	TransitionMarkDefault  Transition = "default"
)

func (s *LoanService) ApplyTransition(ctx context.Context, actor *domain.User, loanID uuid.UUID, action Transition, remarks string, disbursedAmount *decimal.Decimal, preclosurePenaltyPercent decimal.Decimal) (*domain.Loan, error) {
	if !authz.MayMutateLoanLifecycle(actor) {
		return nil, domain.ErrNotAuthorized
	}

	var before, after *domain.Loan
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		beforeCopy := *loan
		before = &beforeCopy

		now := time.Now()
		switch action {
		case TransitionApprove, TransitionDisburse:
			if loan.Status != domain.LoanPending {
				return domain.ErrLoanNotPending
			}
			loan.Status = domain.LoanActive
			loan.DisbursedAt = &now
			if disbursedAmount != nil {
				loan.DisbursedAmount = *disbursedAmount
			}
		case TransitionClose:
			if loan.Status != domain.LoanActive {
				return domain.ErrLoanNotActive
			}
			loan.Status = domain.LoanClosed
			loan.ClosedAt = &now
		case TransitionPreclose:
			if loan.Status != domain.LoanActive {
				return domain.ErrLoanNotActive
			}
			penalty := calculator.PreclosureAmount(loan.OutstandingPrincipal, loan.OutstandingInterest, preclosurePenaltyPercent).
				Sub(loan.OutstandingPrincipal).Sub(loan.OutstandingInterest)
			loan.TotalPenaltiesPaid = money.RoundAmount(loan.TotalPenaltiesPaid.Add(penalty))
			loan.OutstandingPrincipal = decimal.Zero
			loan.OutstandingInterest = decimal.Zero
			loan.Status = domain.LoanPreclosed
			loan.ClosedAt = &now
		case TransitionMarkDefault:
			if loan.Status != domain.LoanActive {
				return domain.ErrLoanNotActive
			}
			// Marking a loan defaulted does not zero the outstanding ledger
			// (§4.4): the dues remain visible for recovery/write-off reporting.
			loan.Status = domain.LoanDefaulted
			loan.ClosedAt = &now
		default:
			return domain.ErrInvalidTerms
		}
		if remarks != "" {
			loan.Remarks = remarks
		}

		if err := s.loans.Update(ctx, loan); err != nil {
			return err
		}
		after = loan

		var auditAction domain.AuditAction
		switch action {
		case TransitionApprove:
			auditAction = domain.AuditLoanApproved
		case TransitionDisburse:
			auditAction = domain.AuditLoanDisbursed
		case TransitionClose:
			auditAction = domain.AuditLoanClosed
		case TransitionPreclose:
			auditAction = domain.AuditLoanPreclosed
		case TransitionMarkDefault:
			auditAction = domain.AuditLoanDefaulted
		}
		s.audit.Record(ctx, actor.ID, auditAction, "loan", loan.ID, before, after)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLoan(ctx, after.ID.String(), after.CustomerID.String())
	return after, nil
}

// TopUpInput mirrors POST /loans/topup's body.
type TopUpInput struct {
	LoanID                uuid.UUID
	TopUpAmount           decimal.Decimal
	NewTenureInstallments *int
	NewAnnualInterestPercent *decimal.Decimal
	Charges               []*domain.LoanCharge
	Remarks               string
}

// TopUpResult bundles the old (now preclosed) loan, the new active loan, and
// the calculator's numeric breakdown, matching the handler's response shape.
type TopUpResult struct {
	OldLoan *domain.Loan
	NewLoan *domain.Loan
	Detail  *calculator.TopUpResult
}

func (s *LoanService) TopUp(ctx context.Context, actor *domain.User, in TopUpInput) (*TopUpResult, error) {
	if !authz.MayMutateLoanLifecycle(actor) {
		return nil, domain.ErrNotAuthorized
	}

	var result *TopUpResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		oldLoan, err := s.loans.GetByIDForUpdate(ctx, in.LoanID)
		if err != nil {
			return err
		}
		if oldLoan.Status != domain.LoanActive {
			return domain.ErrLoanNotActive
		}
		unpaidFees, err := s.fees.SumUnpaidLateFees(ctx, oldLoan.ID)
		if err != nil {
			return err
		}
		unpaidPenalties, err := s.fees.SumUnpaidPenalties(ctx, oldLoan.ID)
		if err != nil {
			return err
		}
		if unpaidFees.GreaterThan(decimal.Zero) || unpaidPenalties.GreaterThan(decimal.Zero) {
			return domain.ErrHasOutstandingDues
		}

		tenure := oldLoan.TenureInstallments
		if in.NewTenureInstallments != nil {
			tenure = *in.NewTenureInstallments
		}
		rate := oldLoan.AnnualInterestPercent
		if in.NewAnnualInterestPercent != nil {
			rate = *in.NewAnnualInterestPercent
		}
		startDate := time.Now()
		newTerms := calculator.Terms{
			AnnualInterestPercent: rate,
			TenureInstallments:    tenure,
			Frequency:             oldLoan.Frequency,
			CustomPeriodDays:      oldLoan.CustomPeriodDays,
			RepaymentType:         oldLoan.RepaymentType,
			StartDate:             startDate,
		}

		var chargesSum decimal.Decimal
		for _, c := range in.Charges {
			chargesSum = chargesSum.Add(c.Amount)
		}
		detail, err := calculator.TopUpRecompute(oldLoan.OutstandingPrincipal, in.TopUpAmount, newTerms, oldLoan.InstallmentAmount, chargesSum)
		if err != nil {
			return err
		}

		now := time.Now()
		oldLoan.Status = domain.LoanPreclosed
		oldLoan.ClosedAt = &now
		if in.Remarks != "" {
			oldLoan.Remarks = in.Remarks
		} else {
			oldLoan.Remarks = "preclosed via top-up"
		}
		if err := s.loans.Update(ctx, oldLoan); err != nil {
			return err
		}

		newTerms.Principal = detail.NewPrincipal
		totalInterest := calculator.TotalInterest(detail.NewInstallment, tenure, detail.NewPrincipal)
		endDate := calculator.EndDate(newTerms)

		newLoan := &domain.Loan{
			CustomerID:            oldLoan.CustomerID,
			CreatedBy:              actor.ID,
			Principal:              detail.NewPrincipal,
			AnnualInterestPercent:  rate,
			TenureInstallments:     tenure,
			Frequency:              oldLoan.Frequency,
			CustomPeriodDays:       oldLoan.CustomPeriodDays,
			RepaymentType:          oldLoan.RepaymentType,
			GracePeriodDays:        oldLoan.GracePeriodDays,
			LateFeeDailyPercent:    oldLoan.LateFeeDailyPercent,
			PenaltyPercent:         oldLoan.PenaltyPercent,
			InstallmentAmount:      detail.NewInstallment,
			TotalInterest:          totalInterest,
			TotalAmount:            money.RoundAmount(detail.NewPrincipal.Add(totalInterest)),
			DisbursedAmount:        detail.DisbursedToCustomer,
			DisbursedAt:            &now,
			StartDate:              startDate,
			EndDate:                endDate,
			OutstandingPrincipal:   detail.NewPrincipal,
			OutstandingInterest:    totalInterest,
			Status:                 domain.LoanActive,
			OriginalLoanID:         &oldLoan.ID,
			IsTopUp:                true,
			TopUpAmount:            in.TopUpAmount,
			Remarks:                in.Remarks,
		}
		loanNumber, err := s.loans.GetNextLoanNumber(ctx)
		if err != nil {
			return err
		}
		newLoan.LoanNumber = loanNumber
		if _, err := s.loans.Create(ctx, newLoan); err != nil {
			return err
		}
		for _, c := range in.Charges {
			c.LoanID = newLoan.ID
		}
		if len(in.Charges) > 0 {
			if err := s.loans.CreateCharges(ctx, in.Charges); err != nil {
				return err
			}
		}

		s.audit.Record(ctx, actor.ID, domain.AuditLoanTopUp, "loan", newLoan.ID, oldLoan, newLoan)
		result = &TopUpResult{OldLoan: oldLoan, NewLoan: newLoan, Detail: detail}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.SubmitScheduleGeneration(ctx, result.NewLoan.ID); err != nil {
			_ = s.scheduler.GenerateForLoan(ctx, jobs.ScheduleGenerationPayload{LoanID: result.NewLoan.ID})
		}
	}
	s.cache.InvalidateLoan(ctx, result.OldLoan.ID.String(), result.OldLoan.CustomerID.String())
	s.cache.InvalidateLoan(ctx, result.NewLoan.ID.String(), result.NewLoan.CustomerID.String())
	return result, nil
}

// DeletePendingLoan implements the state machine's "delete while pending".
func (s *LoanService) DeletePendingLoan(ctx context.Context, actor *domain.User, loanID uuid.UUID) error {
	if !authz.MayDeletePendingLoan(actor) {
		return domain.ErrNotAuthorized
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		if err := s.loans.Delete(ctx, loanID); err != nil {
			return err
		}
		s.audit.Record(ctx, actor.ID, domain.AuditLoanDeleted, "loan", loanID, loan, nil)
		return nil
	})
}

func (s *LoanService) GetByID(ctx context.Context, actor *domain.User, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.checker.MayAccessLoan(ctx, actor, loan)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrNotAuthorized
	}
	return loan, nil
}

// ListCharges returns the one-time charges recorded at creation/top-up time,
// used by the loan-detail endpoint.
func (s *LoanService) ListCharges(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanCharge, error) {
	return s.loans.ListCharges(ctx, loanID)
}

func (s *LoanService) List(ctx context.Context, actor *domain.User, filter domain.LoanFilter) ([]*domain.Loan, int, error) {
	switch actor.Role {
	case domain.RoleAgent:
		filter.AgentID = &actor.ID
	case domain.RoleCustomer:
		customer, err := s.customers.GetByUserID(ctx, actor.ID)
		if err != nil {
			return nil, 0, err
		}
		filter.CustomerID = &customer.ID
	}
	return s.loans.List(ctx, filter)
}
