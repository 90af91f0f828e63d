package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/domain"
	"github.com/Thaddeus254/blocklend/internal/logger"
	"github.com/Thaddeus254/blocklend/internal/repository"
)

type loanService struct {
	loans   repository.LoanRepository
	feeRate decimal.Decimal
}

// NewLoanService creates the lifecycle engine. feeRatePercent is the
// late fee charged per full 30-day period overdue.
func NewLoanService(loans repository.LoanRepository, feeRatePercent decimal.Decimal) LoanService {
	return &loanService{
		loans:   loans,
		feeRate: feeRatePercent,
	}
}

func (s *loanService) Create(ctx context.Context, borrowerID uuid.UUID, terms domain.Terms) (*domain.Loan, error) {
	loan, err := domain.NewLoan(borrowerID, terms, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	logger.Info("Loan created", "loan_id", loan.ID, "borrower_id", borrowerID, "amount", loan.Amount)
	return loan, nil
}

func (s *loanService) Get(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.loans.GetByID(ctx, id)
}

// mutate loads the loan, applies op and persists the result. op must
// either mutate and return nil, or leave the loan untouched and return
// a typed failure.
func (s *loanService) mutate(ctx context.Context, id uuid.UUID, op func(l *domain.Loan) error) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(loan); err != nil {
		return nil, err
	}
	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	return loan, nil
}

func (s *loanService) UpdateTerms(ctx context.Context, id uuid.UUID, terms domain.Terms) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.SetTerms(terms, time.Now())
	})
}

func (s *loanService) Approve(ctx context.Context, id, approverID uuid.UUID, riskScore int32) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.Approve(approverID, riskScore, time.Now())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Loan approved", "loan_id", loan.ID, "approved_by", approverID, "risk_score", riskScore,
		"monthly_payment", loan.MonthlyPayment)
	return loan, nil
}

func (s *loanService) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.Reject(reason, time.Now())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Loan rejected", "loan_id", loan.ID, "reason", reason)
	return loan, nil
}

func (s *loanService) Disburse(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.Disburse(time.Now())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Loan disbursed", "loan_id", loan.ID, "due_date", loan.DueDate)
	return loan, nil
}

func (s *loanService) AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, transactionRef string) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		_, err := l.ApplyPayment(amount, transactionRef, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Payment applied", "loan_id", loan.ID, "amount", amount,
		"remaining_balance", loan.RemainingBalance, "status", loan.Status)
	return loan, nil
}

func (s *loanService) RecordPendingPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, transactionRef string) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		_, err := l.RecordPendingPayment(amount, transactionRef, time.Now())
		return err
	})
}

func (s *loanService) ConfirmPayment(ctx context.Context, id, paymentID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.ConfirmPayment(paymentID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Payment confirmed", "loan_id", loan.ID, "payment_id", paymentID,
		"remaining_balance", loan.RemainingBalance, "status", loan.Status)
	return loan, nil
}

func (s *loanService) FailPayment(ctx context.Context, id, paymentID uuid.UUID) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.FailPayment(paymentID, time.Now())
	})
}

func (s *loanService) AssessLateness(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		l.AssessLateness(now, s.feeRate)
		return nil
	})
}

func (s *loanService) MarkDefaulted(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.MarkDefaulted(time.Now())
	})
	if err != nil {
		return nil, err
	}
	logger.Warn("Loan marked defaulted", "loan_id", loan.ID, "remaining_balance", loan.RemainingBalance)
	return loan, nil
}

func (s *loanService) AddNote(ctx context.Context, id, authorID uuid.UUID, content string) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		return l.AddNote(authorID, content, time.Now())
	})
}

func (s *loanService) AttachDocument(ctx context.Context, id uuid.UUID, docType domain.DocumentType, name, url string) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		_, err := l.AttachDocument(docType, name, url, time.Now())
		return err
	})
}

func (s *loanService) RecordBlockchainRef(ctx context.Context, id uuid.UUID, ref domain.BlockchainRef) (*domain.Loan, error) {
	return s.mutate(ctx, id, func(l *domain.Loan) error {
		l.SetBlockchainRef(ref, time.Now())
		return nil
	})
}

func (s *loanService) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, page, pageSize int32) ([]domain.Loan, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.loans.ListByBorrower(ctx, borrowerID, page, pageSize)
}

func (s *loanService) FindActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.loans.ListActive(ctx)
}

func (s *loanService) FindOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	return s.loans.ListOverdue(ctx, now)
}
