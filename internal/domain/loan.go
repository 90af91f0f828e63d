package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/amortize"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

type LoanType string

const (
	LoanTypePersonal LoanType = "personal"
	LoanTypeBusiness LoanType = "business"
	LoanTypeMortgage LoanType = "mortgage"
	LoanTypeAuto     LoanType = "auto"
	LoanTypeStudent  LoanType = "student"
)

type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyEUR  Currency = "EUR"
	CurrencyGBP  Currency = "GBP"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDC Currency = "USDC"
	CurrencyUSDT Currency = "USDT"
)

type TermUnit string

const (
	TermUnitDays   TermUnit = "days"
	TermUnitMonths TermUnit = "months"
	TermUnitYears  TermUnit = "years"
)

type CollateralType string

const (
	CollateralTypeRealEstate CollateralType = "real_estate"
	CollateralTypeVehicle    CollateralType = "vehicle"
	CollateralTypeCrypto     CollateralType = "crypto"
	CollateralTypeStocks     CollateralType = "stocks"
	CollateralTypeOther      CollateralType = "other"
)

type DocumentType string

const (
	DocumentTypeIncomeProof        DocumentType = "income_proof"
	DocumentTypeBankStatement      DocumentType = "bank_statement"
	DocumentTypeIdentityDocument   DocumentType = "identity_document"
	DocumentTypeCollateralDocument DocumentType = "collateral_document"
	DocumentTypeOther              DocumentType = "other"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is a single repayment record. Payments are append-only; a
// confirmed payment is never removed and its balance effect is applied
// exactly once.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	Status         PaymentStatus   `json:"status"`
}

// Note is an audit-trail entry. Notes are never mutated or deleted.
type Note struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a reference to an uploaded supporting document. Upload
// handling itself lives outside this engine; only the reference is kept.
type Document struct {
	ID         uuid.UUID    `json:"id"`
	Type       DocumentType `json:"type"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// Collateral describes an asset pledged against the loan. Recorded but
// not managed here.
type Collateral struct {
	Type        CollateralType  `json:"type"`
	Description string          `json:"description,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Documents   []string        `json:"documents,omitempty"`
}

// BlockchainRef records on-chain identifiers for a loan. The engine
// never submits transactions; it only stores what callers report.
type BlockchainRef struct {
	ContractAddress string `json:"contract_address"`
	LoanID          string `json:"loan_id"`
	TxHash          string `json:"transaction_hash"`
	BlockNumber     int64  `json:"block_number"`
}

// Terms are the financial terms of a loan. Immutable after approval
// except through SetTerms, which refuses active and terminal loans.
type Terms struct {
	Type         LoanType        `json:"loan_type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Term         int32           `json:"term"`
	TermUnit     TermUnit        `json:"term_unit"`
	Purpose      string          `json:"purpose"`
	Collateral   *Collateral     `json:"collateral,omitempty"`
}

type Loan struct {
	ID         uuid.UUID `json:"id"`
	BorrowerID uuid.UUID `json:"borrower_id"`

	Type         LoanType        `json:"loan_type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Term         int32           `json:"term"`
	TermUnit     TermUnit        `json:"term_unit"`
	Purpose      string          `json:"purpose"`
	Collateral   *Collateral     `json:"collateral,omitempty"`

	Status LoanStatus `json:"status"`

	// Timeline fields are each set exactly once, by the transition that
	// produces them, and never reset.
	ApprovalDate     *time.Time `json:"approval_date,omitempty"`
	DisbursementDate *time.Time `json:"disbursement_date,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CompletedDate    *time.Time `json:"completed_date,omitempty"`

	// Derived by the amortization calculator on approval; nil while the
	// loan is pending or rejected.
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment,omitempty"`

	// RemainingBalance tracks principal reduction: it starts at Amount
	// and each confirmed payment reduces it, clamped at zero. Interest
	// lives only in TotalAmount.
	RemainingBalance decimal.Decimal `json:"remaining_balance"`

	Payments []Payment `json:"payments"`

	RiskScore       *int32     `json:"risk_score,omitempty"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	LateFees decimal.Decimal `json:"late_fees"`
	DaysLate int32           `json:"days_late"`

	Notes      []Note         `json:"notes"`
	Documents  []Document     `json:"documents"`
	Blockchain *BlockchainRef `json:"blockchain_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLoan constructs a loan in pending state with only terms populated.
// The calculator is not invoked yet; TotalAmount and MonthlyPayment stay
// unset until approval.
func NewLoan(borrowerID uuid.UUID, terms Terms, now time.Time) (*Loan, error) {
	terms.normalize()
	if err := terms.Validate(borrowerID); err != nil {
		return nil, err
	}
	l := &Loan{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		Status:     LoanStatusPending,
		LateFees:   decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.applyTerms(terms)
	return l, nil
}

func (l *Loan) applyTerms(t Terms) {
	l.Type = t.Type
	l.Amount = t.Amount
	l.Currency = t.Currency
	l.InterestRate = t.InterestRate
	l.Term = t.Term
	l.TermUnit = t.TermUnit
	l.Purpose = t.Purpose
	l.Collateral = t.Collateral
	l.RemainingBalance = t.Amount
}

// SetTerms replaces the financial terms. Allowed while pending, and
// while approved but not yet disbursed (the schedule is recomputed).
// Refused once active: a mid-life edit would silently change the
// monthly payment.
func (l *Loan) SetTerms(t Terms, now time.Time) error {
	if l.Status != LoanStatusPending && l.Status != LoanStatusApproved {
		return &InvalidStateError{Operation: "edit terms", Status: string(l.Status)}
	}
	t.normalize()
	if err := t.Validate(l.BorrowerID); err != nil {
		return err
	}
	l.applyTerms(t)
	if l.Status == LoanStatusApproved {
		l.recalculate()
	}
	l.UpdatedAt = now
	return nil
}

// recalculate re-runs the amortization calculator and overwrites the
// derived fields from the current amount, rate and term.
func (l *Loan) recalculate() {
	s := amortize.ComputeSchedule(l.Amount, l.InterestRate, l.Term)
	l.TotalAmount = &s.TotalAmount
	l.MonthlyPayment = &s.MonthlyPayment
}

// Approve moves a pending loan to approved, records who approved it and
// the assessed risk score, and populates the derived financial fields.
func (l *Loan) Approve(approverID uuid.UUID, riskScore int32, now time.Time) error {
	if l.Status != LoanStatusPending {
		return &InvalidStateError{Operation: "approve", Status: string(l.Status)}
	}
	if riskScore < 0 || riskScore > 100 {
		return &ValidationError{Violations: []FieldViolation{
			{Field: "riskScore", Message: "must be between 0 and 100"},
		}}
	}
	l.Status = LoanStatusApproved
	l.ApprovalDate = &now
	l.ApprovedBy = &approverID
	l.RiskScore = &riskScore
	l.recalculate()
	l.UpdatedAt = now
	return nil
}

// Reject moves a pending loan to the terminal rejected state. No
// financial fields are populated; the rejection reason is mutually
// exclusive with the approval fields.
func (l *Loan) Reject(reason string, now time.Time) error {
	if l.Status != LoanStatusPending {
		return &InvalidStateError{Operation: "reject", Status: string(l.Status)}
	}
	l.Status = LoanStatusRejected
	l.RejectionReason = reason
	l.UpdatedAt = now
	return nil
}

// Disburse releases funds on an approved loan: status becomes active,
// the repayment clock starts, and the due date is the disbursement date
// advanced by the full term.
func (l *Loan) Disburse(now time.Time) error {
	if l.Status != LoanStatusApproved {
		return &InvalidStateError{Operation: "disburse", Status: string(l.Status)}
	}
	l.Status = LoanStatusActive
	l.DisbursementDate = &now
	due := l.termEnd(now)
	l.DueDate = &due
	if l.RemainingBalance.IsZero() {
		l.RemainingBalance = l.Amount
	}
	l.UpdatedAt = now
	return nil
}

func (l *Loan) termEnd(from time.Time) time.Time {
	switch l.TermUnit {
	case TermUnitDays:
		return from.AddDate(0, 0, int(l.Term))
	case TermUnitYears:
		return from.AddDate(int(l.Term), 0, 0)
	default:
		return from.AddDate(0, int(l.Term), 0)
	}
}

// ApplyPayment appends a confirmed payment and reduces the remaining
// balance. When the balance reaches zero the loan completes.
func (l *Loan) ApplyPayment(amount decimal.Decimal, transactionRef string, now time.Time) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &InvalidAmountError{Amount: amount}
	}
	if l.Status != LoanStatusActive {
		return nil, &InvalidStateError{Operation: "apply payment", Status: string(l.Status)}
	}
	p := Payment{
		ID:             uuid.New(),
		Amount:         amount,
		Date:           now,
		TransactionRef: transactionRef,
		Status:         PaymentStatusConfirmed,
	}
	l.Payments = append(l.Payments, p)
	l.reduceBalance(amount, now)
	l.UpdatedAt = now
	return &p, nil
}

// RecordPendingPayment appends a payment awaiting settlement. It has no
// balance effect until confirmed.
func (l *Loan) RecordPendingPayment(amount decimal.Decimal, transactionRef string, now time.Time) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &InvalidAmountError{Amount: amount}
	}
	if l.Status != LoanStatusActive {
		return nil, &InvalidStateError{Operation: "record payment", Status: string(l.Status)}
	}
	p := Payment{
		ID:             uuid.New(),
		Amount:         amount,
		Date:           now,
		TransactionRef: transactionRef,
		Status:         PaymentStatusPending,
	}
	l.Payments = append(l.Payments, p)
	l.UpdatedAt = now
	return &p, nil
}

// ConfirmPayment marks a pending payment as settled and applies its
// balance effect. Confirming twice fails; the effect is applied exactly
// once.
func (l *Loan) ConfirmPayment(paymentID uuid.UUID, now time.Time) error {
	if l.Status != LoanStatusActive {
		return &InvalidStateError{Operation: "confirm payment", Status: string(l.Status)}
	}
	p := l.payment(paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	if p.Status != PaymentStatusPending {
		return &InvalidStateError{Operation: "confirm payment", Status: string(p.Status)}
	}
	p.Status = PaymentStatusConfirmed
	l.reduceBalance(p.Amount, now)
	l.UpdatedAt = now
	return nil
}

// FailPayment marks a pending payment as failed. No balance effect.
func (l *Loan) FailPayment(paymentID uuid.UUID, now time.Time) error {
	p := l.payment(paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	if p.Status != PaymentStatusPending {
		return &InvalidStateError{Operation: "fail payment", Status: string(p.Status)}
	}
	p.Status = PaymentStatusFailed
	l.UpdatedAt = now
	return nil
}

func (l *Loan) payment(id uuid.UUID) *Payment {
	for i := range l.Payments {
		if l.Payments[i].ID == id {
			return &l.Payments[i]
		}
	}
	return nil
}

func (l *Loan) reduceBalance(amount decimal.Decimal, now time.Time) {
	l.RemainingBalance = decimal.Max(decimal.Zero, l.RemainingBalance.Sub(amount))
	if l.RemainingBalance.IsZero() {
		l.Status = LoanStatusCompleted
		l.CompletedDate = &now
	}
}

// AssessLateness recomputes DaysLate and LateFees as of now. Idempotent:
// fields are overwritten, never accumulated. No-op unless the loan is
// active; status never changes here, defaulting is an explicit
// administrative transition.
func (l *Loan) AssessLateness(now time.Time, feeRatePercent decimal.Decimal) decimal.Decimal {
	if l.Status != LoanStatusActive {
		return decimal.Zero
	}
	due := l.DueDate
	if due == nil {
		due = l.NextPaymentDate()
	}
	if due == nil || l.MonthlyPayment == nil {
		return decimal.Zero
	}
	l.DaysLate = int32(amortize.DaysLate(*due, now))
	l.LateFees = amortize.LateFee(*l.MonthlyPayment, *due, now, feeRatePercent)
	l.UpdatedAt = now
	return l.LateFees
}

// MarkDefaulted is the administrative transition from active to the
// terminal defaulted state.
func (l *Loan) MarkDefaulted(now time.Time) error {
	if l.Status != LoanStatusActive {
		return &InvalidStateError{Operation: "mark defaulted", Status: string(l.Status)}
	}
	l.Status = LoanStatusDefaulted
	l.UpdatedAt = now
	return nil
}

// AddNote appends an audit-trail note.
func (l *Loan) AddNote(authorID uuid.UUID, content string, now time.Time) error {
	if content == "" {
		return &ValidationError{Violations: []FieldViolation{
			{Field: "content", Message: "note content is required"},
		}}
	}
	l.Notes = append(l.Notes, Note{
		ID:        uuid.New(),
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: now,
	})
	l.UpdatedAt = now
	return nil
}

// AttachDocument records a reference to an uploaded document.
func (l *Loan) AttachDocument(docType DocumentType, name, url string, now time.Time) (*Document, error) {
	if !docType.Valid() {
		return nil, &ValidationError{Violations: []FieldViolation{
			{Field: "type", Message: "unknown document type"},
		}}
	}
	d := Document{
		ID:         uuid.New(),
		Type:       docType,
		Name:       name,
		URL:        url,
		UploadedAt: now,
	}
	l.Documents = append(l.Documents, d)
	l.UpdatedAt = now
	return &d, nil
}

// SetBlockchainRef records the on-chain identifiers reported by the
// caller.
func (l *Loan) SetBlockchainRef(ref BlockchainRef, now time.Time) {
	l.Blockchain = &ref
	l.UpdatedAt = now
}

// ConfirmedPayments returns the confirmed subset of the payment history.
func (l *Loan) ConfirmedPayments() []Payment {
	var out []Payment
	for _, p := range l.Payments {
		if p.Status == PaymentStatusConfirmed {
			out = append(out, p)
		}
	}
	return out
}

// Progress returns the repaid share of the principal as a rounded
// percentage. Zero unless the loan is active or completed.
func (l *Loan) Progress() int32 {
	if l.Status != LoanStatusActive && l.Status != LoanStatusCompleted {
		return 0
	}
	paid := l.Amount.Sub(l.RemainingBalance)
	return int32(paid.Div(l.Amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// NextPaymentDate returns when the next payment falls due, nil unless
// the loan is active.
func (l *Loan) NextPaymentDate() *time.Time {
	if l.Status != LoanStatusActive {
		return nil
	}
	var dates []time.Time
	for _, p := range l.Payments {
		if p.Status == PaymentStatusConfirmed {
			dates = append(dates, p.Date)
		}
	}
	return amortize.NextPaymentDate(dates, l.DisbursementDate)
}

// DaysUntilNextPayment returns whole days until the next payment, nil
// when no payment is scheduled.
func (l *Loan) DaysUntilNextPayment(now time.Time) *int {
	next := l.NextPaymentDate()
	if next == nil {
		return nil
	}
	d := amortize.DaysUntil(*next, now)
	return &d
}
