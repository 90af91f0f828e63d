package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thaddeus254/blocklend/internal/domain"
)

var loanColumnNames = []string{
	"id", "borrower_id", "loan_type", "amount", "currency", "interest_rate", "term", "term_unit", "purpose",
	"collateral_type", "collateral_description", "collateral_value", "collateral_documents",
	"status", "approval_date", "disbursement_date", "due_date", "completed_date",
	"total_amount", "monthly_payment", "remaining_balance",
	"risk_score", "approved_by", "rejection_reason", "late_fees", "days_late",
	"contract_address", "chain_loan_id", "chain_tx_hash", "chain_block_number",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*loanRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &loanRepository{db: db}, mock
}

func testLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := domain.NewLoan(uuid.New(), domain.Terms{
		Type:         domain.LoanTypePersonal,
		Amount:       decimal.NewFromInt(10000),
		Currency:     domain.CurrencyUSD,
		InterestRate: decimal.NewFromInt(12),
		Term:         12,
		TermUnit:     domain.TermUnitMonths,
		Purpose:      "equipment purchase",
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return loan
}

func expectChildQueries(mock sqlmock.Sqlmock, loanID uuid.UUID) {
	mock.ExpectQuery("SELECT id, amount, date, transaction_ref, status FROM loan_payments").
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "date", "transaction_ref", "status"}))
	mock.ExpectQuery("SELECT id, content, author_id, created_at FROM loan_notes").
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "author_id", "created_at"}))
	mock.ExpectQuery("SELECT id, doc_type, name, url, uploaded_at FROM loan_documents").
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc_type", "name", "url", "uploaded_at"}))
}

func activeLoanRow(id, borrowerID uuid.UUID, dueDate time.Time) *sqlmock.Rows {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(loanColumnNames).AddRow(
		id.String(), borrowerID.String(), "personal", "10000", "USD", "12", 12, "months", "equipment purchase",
		nil, nil, nil, nil,
		"active", nil, created, dueDate, nil,
		"11200", "933.3333", "9066.67",
		42, nil, nil, "0", 0,
		nil, nil, nil, nil,
		created, created,
	)
}

func TestLoanRepositoryCreate(t *testing.T) {
	t.Run("inserts the loan in a transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		loan := testLoan(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO loans").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Create(context.Background(), loan)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		loan := testLoan(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO loans").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.Create(context.Background(), loan)

		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepositoryGetByID(t *testing.T) {
	t.Run("scans the full aggregate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		borrower := uuid.New()
		due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id").
			WithArgs(id).
			WillReturnRows(activeLoanRow(id, borrower, due))
		expectChildQueries(mock, id)

		loan, err := repo.GetByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, loan.ID)
		assert.Equal(t, borrower, loan.BorrowerID)
		assert.Equal(t, domain.LoanStatusActive, loan.Status)
		require.NotNil(t, loan.DueDate)
		assert.Equal(t, due, loan.DueDate.UTC())
		require.NotNil(t, loan.TotalAmount)
		assert.True(t, loan.TotalAmount.Equal(decimal.NewFromInt(11200)))
		require.NotNil(t, loan.RiskScore)
		assert.Equal(t, int32(42), *loan.RiskScore)
		assert.Nil(t, loan.Collateral)
		assert.Nil(t, loan.Blockchain)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to the not found error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLoanRepositoryUpdate(t *testing.T) {
	t.Run("writes the row and upserts payments", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		loan := testLoan(t)
		require.NoError(t, loan.Approve(uuid.New(), 40, time.Now()))
		require.NoError(t, loan.Disburse(time.Now()))
		_, err := loan.ApplyPayment(decimal.NewFromInt(500), "0xabc", time.Now())
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE loans SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO loan_payments").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Update(context.Background(), loan))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected means the loan vanished", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		loan := testLoan(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE loans SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Update(context.Background(), loan)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepositoryListOverdue(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	borrower := uuid.New()
	asOf := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM loans WHERE status = (.+) AND due_date <").
		WithArgs(string(domain.LoanStatusActive), asOf).
		WillReturnRows(activeLoanRow(id, borrower, due))
	expectChildQueries(mock, id)

	loans, err := repo.ListOverdue(context.Background(), asOf)

	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, id, loans[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryListByBorrower(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	borrower := uuid.New()
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count").
		WithArgs(borrower).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT (.+) FROM loans WHERE borrower_id").
		WithArgs(borrower, int32(5), int32(5)).
		WillReturnRows(activeLoanRow(id, borrower, due))
	expectChildQueries(mock, id)

	loans, total, err := repo.ListByBorrower(context.Background(), borrower, 2, 5)

	require.NoError(t, err)
	assert.Equal(t, int32(7), total)
	require.Len(t, loans, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
