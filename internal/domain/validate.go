package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	minAmount = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(1_000_000)
	maxRate   = decimal.NewFromInt(100)
)

const (
	minTerm          = 1
	maxTerm          = 360
	maxPurposeLength = 500
)

func (t LoanType) Valid() bool {
	switch t {
	case LoanTypePersonal, LoanTypeBusiness, LoanTypeMortgage, LoanTypeAuto, LoanTypeStudent:
		return true
	}
	return false
}

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyETH, CurrencyUSDC, CurrencyUSDT:
		return true
	}
	return false
}

func (u TermUnit) Valid() bool {
	switch u {
	case TermUnitDays, TermUnitMonths, TermUnitYears:
		return true
	}
	return false
}

func (t CollateralType) Valid() bool {
	switch t {
	case CollateralTypeRealEstate, CollateralTypeVehicle, CollateralTypeCrypto, CollateralTypeStocks, CollateralTypeOther:
		return true
	}
	return false
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeIncomeProof, DocumentTypeBankStatement, DocumentTypeIdentityDocument, DocumentTypeCollateralDocument, DocumentTypeOther:
		return true
	}
	return false
}

// normalize fills the defaulted fields.
func (t *Terms) normalize() {
	if t.Currency == "" {
		t.Currency = CurrencyUSD
	}
	if t.TermUnit == "" {
		t.TermUnit = TermUnitMonths
	}
}

// Validate checks the terms against the schema bounds and returns a
// ValidationError listing every violated field, or nil.
func (t Terms) Validate(borrowerID uuid.UUID) error {
	var violations []FieldViolation
	add := func(field, message string) {
		violations = append(violations, FieldViolation{Field: field, Message: message})
	}

	if borrowerID == uuid.Nil {
		add("borrower", "borrower is required")
	}
	if !t.Type.Valid() {
		add("loanType", "must be one of personal, business, mortgage, auto, student")
	}
	if t.Amount.LessThan(minAmount) {
		add("amount", fmt.Sprintf("minimum loan amount is %s", minAmount))
	}
	if t.Amount.GreaterThan(maxAmount) {
		add("amount", fmt.Sprintf("maximum loan amount is %s", maxAmount))
	}
	if !t.Currency.Valid() {
		add("currency", "unsupported currency")
	}
	if t.InterestRate.IsNegative() {
		add("interestRate", "interest rate cannot be negative")
	}
	if t.InterestRate.GreaterThan(maxRate) {
		add("interestRate", "interest rate cannot exceed 100%")
	}
	if t.Term < minTerm {
		add("term", fmt.Sprintf("minimum term is %d", minTerm))
	}
	if t.Term > maxTerm {
		add("term", fmt.Sprintf("maximum term is %d", maxTerm))
	}
	if !t.TermUnit.Valid() {
		add("termUnit", "must be one of days, months, years")
	}
	if t.Purpose == "" {
		add("purpose", "loan purpose is required")
	}
	if len(t.Purpose) > maxPurposeLength {
		add("purpose", fmt.Sprintf("purpose cannot exceed %d characters", maxPurposeLength))
	}
	if t.Collateral != nil {
		if !t.Collateral.Type.Valid() {
			add("collateral.type", "unknown collateral type")
		}
		if t.Collateral.Value.IsNegative() {
			add("collateral.value", "collateral value cannot be negative")
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
