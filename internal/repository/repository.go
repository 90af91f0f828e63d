package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Thaddeus254/blocklend/internal/domain"
)

// LoanRepository persists the loan aggregate (loan plus its payments,
// notes and document references). Update is an atomic per-record write;
// concurrent writers against the same loan id must be serialized by the
// storage layer, the engine does not protect against lost updates.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	Update(ctx context.Context, loan *domain.Loan) error
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID, page, pageSize int32) ([]domain.Loan, int32, error)
	ListActive(ctx context.Context) ([]domain.Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error)
}
