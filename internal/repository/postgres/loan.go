package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/domain"
	"github.com/Thaddeus254/blocklend/internal/repository"
)

type loanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `id, borrower_id, loan_type, amount, currency, interest_rate, term, term_unit, purpose,
	collateral_type, collateral_description, collateral_value, collateral_documents,
	status, approval_date, disbursement_date, due_date, completed_date,
	total_amount, monthly_payment, remaining_balance,
	risk_score, approved_by, rejection_reason, late_fees, days_late,
	contract_address, chain_loan_id, chain_tx_hash, chain_block_number,
	created_at, updated_at`

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO loans (` + loanColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	                  $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`
	if _, err := tx.ExecContext(ctx, query, loanArgs(l)...); err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	if err := upsertChildren(ctx, tx, l); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Update writes the whole aggregate atomically: the loans row is
// overwritten, payments are upserted (only the status of an existing
// payment can change), notes and documents are append-only.
func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE loans SET
		borrower_id=$2, loan_type=$3, amount=$4, currency=$5, interest_rate=$6, term=$7, term_unit=$8, purpose=$9,
		collateral_type=$10, collateral_description=$11, collateral_value=$12, collateral_documents=$13,
		status=$14, approval_date=$15, disbursement_date=$16, due_date=$17, completed_date=$18,
		total_amount=$19, monthly_payment=$20, remaining_balance=$21,
		risk_score=$22, approved_by=$23, rejection_reason=$24, late_fees=$25, days_late=$26,
		contract_address=$27, chain_loan_id=$28, chain_tx_hash=$29, chain_block_number=$30,
		created_at=$31, updated_at=$32
		WHERE id=$1`
	res, err := tx.ExecContext(ctx, query, loanArgs(l)...)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	if err := upsertChildren(ctx, tx, l); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *loanRepository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, page, pageSize int32) ([]domain.Loan, int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM loans WHERE borrower_id = $1`, borrowerID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + loanColumns + ` FROM loans WHERE borrower_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	loans, err := r.queryLoans(ctx, query, borrowerID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return loans, count, nil
}

func (r *loanRepository) ListActive(ctx context.Context) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY due_date`
	return r.queryLoans(ctx, query, domain.LoanStatusActive)
}

func (r *loanRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 AND due_date < $2 ORDER BY due_date`
	return r.queryLoans(ctx, query, domain.LoanStatusActive, asOf)
}

func (r *loanRepository) queryLoans(ctx context.Context, query string, args ...interface{}) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range loans {
		if err := r.loadChildren(ctx, &loans[i]); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

func (r *loanRepository) loadChildren(ctx context.Context, l *domain.Loan) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, date, transaction_ref, status FROM loan_payments WHERE loan_id = $1 ORDER BY date`, l.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Payment
		var ref sql.NullString
		if err := rows.Scan(&p.ID, &p.Amount, &p.Date, &ref, &p.Status); err != nil {
			return err
		}
		p.TransactionRef = ref.String
		l.Payments = append(l.Payments, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	noteRows, err := r.db.QueryContext(ctx,
		`SELECT id, content, author_id, created_at FROM loan_notes WHERE loan_id = $1 ORDER BY created_at`, l.ID)
	if err != nil {
		return err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n domain.Note
		if err := noteRows.Scan(&n.ID, &n.Content, &n.AuthorID, &n.CreatedAt); err != nil {
			return err
		}
		l.Notes = append(l.Notes, n)
	}
	if err := noteRows.Err(); err != nil {
		return err
	}

	docRows, err := r.db.QueryContext(ctx,
		`SELECT id, doc_type, name, url, uploaded_at FROM loan_documents WHERE loan_id = $1 ORDER BY uploaded_at`, l.ID)
	if err != nil {
		return err
	}
	defer docRows.Close()
	for docRows.Next() {
		var d domain.Document
		if err := docRows.Scan(&d.ID, &d.Type, &d.Name, &d.URL, &d.UploadedAt); err != nil {
			return err
		}
		l.Documents = append(l.Documents, d)
	}
	return docRows.Err()
}

func upsertChildren(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	for _, p := range l.Payments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loan_payments (id, loan_id, amount, date, transaction_ref, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
			p.ID, l.ID, p.Amount, p.Date, p.TransactionRef, p.Status)
		if err != nil {
			return fmt.Errorf("failed to upsert payment: %w", err)
		}
	}
	for _, n := range l.Notes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loan_notes (id, loan_id, content, author_id, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			n.ID, l.ID, n.Content, n.AuthorID, n.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}
	}
	for _, d := range l.Documents {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loan_documents (id, loan_id, doc_type, name, url, uploaded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			d.ID, l.ID, d.Type, d.Name, d.URL, d.UploadedAt)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}
	return nil
}

func loanArgs(l *domain.Loan) []interface{} {
	var collateralType, collateralDesc interface{}
	var collateralValue decimal.NullDecimal
	var collateralDocs interface{}
	if l.Collateral != nil {
		collateralType = string(l.Collateral.Type)
		collateralDesc = l.Collateral.Description
		collateralValue = decimal.NullDecimal{Decimal: l.Collateral.Value, Valid: true}
		collateralDocs = pq.Array(l.Collateral.Documents)
	} else {
		collateralDocs = pq.Array([]string(nil))
	}

	var contractAddress, chainLoanID, chainTxHash interface{}
	var blockNumber interface{}
	if l.Blockchain != nil {
		contractAddress = l.Blockchain.ContractAddress
		chainLoanID = l.Blockchain.LoanID
		chainTxHash = l.Blockchain.TxHash
		blockNumber = l.Blockchain.BlockNumber
	}

	return []interface{}{
		l.ID, l.BorrowerID, l.Type, l.Amount, l.Currency, l.InterestRate, l.Term, l.TermUnit, l.Purpose,
		collateralType, collateralDesc, collateralValue, collateralDocs,
		l.Status, l.ApprovalDate, l.DisbursementDate, l.DueDate, l.CompletedDate,
		l.TotalAmount, l.MonthlyPayment, l.RemainingBalance,
		l.RiskScore, l.ApprovedBy, l.RejectionReason, l.LateFees, l.DaysLate,
		contractAddress, chainLoanID, chainTxHash, blockNumber,
		l.CreatedAt, l.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var l domain.Loan
	var collateralType, collateralDesc sql.NullString
	var collateralValue decimal.NullDecimal
	var collateralDocs pq.StringArray
	var approval, disbursement, due, completed sql.NullTime
	var totalAmount, monthlyPayment decimal.NullDecimal
	var riskScore sql.NullInt32
	var approvedBy, rejectionReason sql.NullString
	var contractAddress, chainLoanID, chainTxHash sql.NullString
	var blockNumber sql.NullInt64

	err := row.Scan(
		&l.ID, &l.BorrowerID, &l.Type, &l.Amount, &l.Currency, &l.InterestRate, &l.Term, &l.TermUnit, &l.Purpose,
		&collateralType, &collateralDesc, &collateralValue, &collateralDocs,
		&l.Status, &approval, &disbursement, &due, &completed,
		&totalAmount, &monthlyPayment, &l.RemainingBalance,
		&riskScore, &approvedBy, &rejectionReason, &l.LateFees, &l.DaysLate,
		&contractAddress, &chainLoanID, &chainTxHash, &blockNumber,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if collateralType.Valid {
		l.Collateral = &domain.Collateral{
			Type:        domain.CollateralType(collateralType.String),
			Description: collateralDesc.String,
			Value:       collateralValue.Decimal,
			Documents:   collateralDocs,
		}
	}
	if approval.Valid {
		l.ApprovalDate = &approval.Time
	}
	if disbursement.Valid {
		l.DisbursementDate = &disbursement.Time
	}
	if due.Valid {
		l.DueDate = &due.Time
	}
	if completed.Valid {
		l.CompletedDate = &completed.Time
	}
	if totalAmount.Valid {
		l.TotalAmount = &totalAmount.Decimal
	}
	if monthlyPayment.Valid {
		l.MonthlyPayment = &monthlyPayment.Decimal
	}
	if riskScore.Valid {
		l.RiskScore = &riskScore.Int32
	}
	if approvedBy.Valid {
		id, err := uuid.Parse(approvedBy.String)
		if err != nil {
			return nil, fmt.Errorf("invalid approver id: %w", err)
		}
		l.ApprovedBy = &id
	}
	l.RejectionReason = rejectionReason.String
	if contractAddress.Valid || chainTxHash.Valid {
		l.Blockchain = &domain.BlockchainRef{
			ContractAddress: contractAddress.String,
			LoanID:          chainLoanID.String,
			TxHash:          chainTxHash.String,
			BlockNumber:     blockNumber.Int64,
		}
	}
	return &l, nil
}
