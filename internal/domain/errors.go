package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no loan exists for the requested id.
var ErrNotFound = errors.New("loan not found")

// ErrPaymentNotFound is returned when a payment id does not belong to
// the loan being mutated.
var ErrPaymentNotFound = errors.New("payment not found")

// FieldViolation describes a single invalid field on a loan.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field, not just the first.
// Invalid values are never auto-corrected.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "invalid loan: " + strings.Join(parts, "; ")
}

// InvalidStateError is returned when a lifecycle operation is attempted
// from the wrong status. The loan is left untouched.
type InvalidStateError struct {
	Operation string
	Status    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: invalid state %q", e.Operation, e.Status)
}

// InvalidAmountError is returned for non-positive payment amounts.
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("payment amount must be positive, got %s", e.Amount)
}
