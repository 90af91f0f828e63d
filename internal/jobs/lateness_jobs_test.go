package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Thaddeus254/blocklend/internal/config"
	"github.com/Thaddeus254/blocklend/internal/domain"
)

type MockLoanSweeper struct {
	mock.Mock
}

func (m *MockLoanSweeper) FindActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Loan), args.Error(1)
}

func (m *MockLoanSweeper) FindOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Loan), args.Error(1)
}

func (m *MockLoanSweeper) AssessLateness(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Loan, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func sweeperLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := domain.NewLoan(uuid.New(), domain.Terms{
		Type:         domain.LoanTypePersonal,
		Amount:       decimal.NewFromInt(10000),
		Currency:     domain.CurrencyUSD,
		InterestRate: decimal.NewFromInt(12),
		Term:         12,
		TermUnit:     domain.TermUnitMonths,
		Purpose:      "inventory",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, loan.Approve(uuid.New(), 40, time.Now()))
	require.NoError(t, loan.Disburse(time.Now()))
	return loan
}

func TestSweepLateness(t *testing.T) {
	t.Run("assesses every active loan", func(t *testing.T) {
		sweeper := new(MockLoanSweeper)
		runner := NewJobRunner(sweeper, &config.Config{})
		a, b := sweeperLoan(t), sweeperLoan(t)

		sweeper.On("FindActiveLoans", mock.Anything).Return([]domain.Loan{*a, *b}, nil)
		sweeper.On("AssessLateness", mock.Anything, a.ID, mock.AnythingOfType("time.Time")).Return(a, nil)
		sweeper.On("AssessLateness", mock.Anything, b.ID, mock.AnythingOfType("time.Time")).Return(b, nil)

		runner.SweepLateness()

		sweeper.AssertExpectations(t)
	})

	t.Run("a failing loan does not stop the sweep", func(t *testing.T) {
		sweeper := new(MockLoanSweeper)
		runner := NewJobRunner(sweeper, &config.Config{})
		a, b := sweeperLoan(t), sweeperLoan(t)

		sweeper.On("FindActiveLoans", mock.Anything).Return([]domain.Loan{*a, *b}, nil)
		sweeper.On("AssessLateness", mock.Anything, a.ID, mock.AnythingOfType("time.Time")).
			Return(nil, domain.ErrNotFound)
		sweeper.On("AssessLateness", mock.Anything, b.ID, mock.AnythingOfType("time.Time")).Return(b, nil)

		runner.SweepLateness()

		sweeper.AssertNumberOfCalls(t, "AssessLateness", 2)
	})

	t.Run("listing failure aborts quietly", func(t *testing.T) {
		sweeper := new(MockLoanSweeper)
		runner := NewJobRunner(sweeper, &config.Config{})

		sweeper.On("FindActiveLoans", mock.Anything).Return(nil, assert.AnError)

		runner.SweepLateness()

		sweeper.AssertNotCalled(t, "AssessLateness")
	})
}

func TestReportOverdue(t *testing.T) {
	sweeper := new(MockLoanSweeper)
	runner := NewJobRunner(sweeper, &config.Config{})
	loan := sweeperLoan(t)

	sweeper.On("FindOverdueLoans", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Loan{*loan}, nil)

	runner.ReportOverdue()

	sweeper.AssertExpectations(t)
}

func TestRunAllNightlyJobs(t *testing.T) {
	sweeper := new(MockLoanSweeper)
	runner := NewJobRunner(sweeper, &config.Config{})

	sweeper.On("FindActiveLoans", mock.Anything).Return([]domain.Loan{}, nil)
	sweeper.On("FindOverdueLoans", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Loan{}, nil)

	runner.RunAllNightlyJobs()

	sweeper.AssertExpectations(t)
}
