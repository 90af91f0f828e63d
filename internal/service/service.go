package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/domain"
)

// LoanService is the lifecycle engine exposed to callers (routing,
// schedulers). Every mutator validates the current status first and
// fails fast: a typed failure means no mutation was persisted.
type LoanService interface {
	Create(ctx context.Context, borrowerID uuid.UUID, terms domain.Terms) (*domain.Loan, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	UpdateTerms(ctx context.Context, id uuid.UUID, terms domain.Terms) (*domain.Loan, error)
	Approve(ctx context.Context, id, approverID uuid.UUID, riskScore int32) (*domain.Loan, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.Loan, error)
	Disburse(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, transactionRef string) (*domain.Loan, error)
	RecordPendingPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, transactionRef string) (*domain.Loan, error)
	ConfirmPayment(ctx context.Context, id, paymentID uuid.UUID) (*domain.Loan, error)
	FailPayment(ctx context.Context, id, paymentID uuid.UUID) (*domain.Loan, error)
	AssessLateness(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Loan, error)
	MarkDefaulted(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	AddNote(ctx context.Context, id, authorID uuid.UUID, content string) (*domain.Loan, error)
	AttachDocument(ctx context.Context, id uuid.UUID, docType domain.DocumentType, name, url string) (*domain.Loan, error)
	RecordBlockchainRef(ctx context.Context, id uuid.UUID, ref domain.BlockchainRef) (*domain.Loan, error)
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID, page, pageSize int32) ([]domain.Loan, int32, error)
	FindActiveLoans(ctx context.Context) ([]domain.Loan, error)
	FindOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error)
}
