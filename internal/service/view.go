package service

import (
	"time"

	"github.com/Thaddeus254/blocklend/internal/domain"
)

// LoanView is the read serialization of a loan: the stored fields plus
// the three derived values. The derived values are computed at read time
// and never persisted.
type LoanView struct {
	*domain.Loan
	Progress             int32      `json:"progress"`
	NextPaymentDate      *time.Time `json:"next_payment_date,omitempty"`
	DaysUntilNextPayment *int       `json:"days_until_next_payment,omitempty"`
}

func NewLoanView(l *domain.Loan, now time.Time) LoanView {
	return LoanView{
		Loan:                 l,
		Progress:             l.Progress(),
		NextPaymentDate:      l.NextPaymentDate(),
		DaysUntilNextPayment: l.DaysUntilNextPayment(now),
	}
}

func NewLoanViews(loans []domain.Loan, now time.Time) []LoanView {
	views := make([]LoanView, len(loans))
	for i := range loans {
		views[i] = NewLoanView(&loans[i], now)
	}
	return views
}
