package amortize

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFeeRatePercent is the penalty charged per full 30-day period
// overdue, as a percentage of the monthly payment.
var DefaultFeeRatePercent = decimal.NewFromInt(5)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

const lateFeePeriodDays = 30

// Schedule holds the derived financial fields of an approved loan.
type Schedule struct {
	TotalAmount    decimal.Decimal
	MonthlyPayment decimal.Decimal
}

// ComputeSchedule derives the repayment schedule using simple,
// non-compounding interest: totalInterest = principal * monthlyRate *
// term. The monthly payment is constant for the life of the loan and
// per-payment interest is never recomputed.
//
// termMonths must be >= 1; callers validate the term before calling.
// No rounding is applied here, display precision is the caller's call.
func ComputeSchedule(principal, annualRatePercent decimal.Decimal, termMonths int32) Schedule {
	term := decimal.NewFromInt32(termMonths)
	monthlyRate := annualRatePercent.Div(hundred).Div(twelve)
	totalAmount := principal.Add(principal.Mul(monthlyRate).Mul(term))
	return Schedule{
		TotalAmount:    totalAmount,
		MonthlyPayment: totalAmount.Div(term),
	}
}

// NextPaymentDate returns the date the next payment falls due: one
// calendar month after the latest confirmed payment, or the disbursement
// date when nothing has been paid yet. Month arithmetic normalizes per
// time.AddDate, so Jan 31 + 1 month lands in early March rather than
// clamping to the end of February.
//
// Returns nil when the loan has not been disbursed.
func NextPaymentDate(confirmedDates []time.Time, disbursed *time.Time) *time.Time {
	var last *time.Time
	for i := range confirmedDates {
		d := confirmedDates[i]
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	if last == nil {
		return disbursed
	}
	next := last.AddDate(0, 1, 0)
	return &next
}

// DaysUntil returns the number of whole days from now until target,
// rounding up. Negative when target is already past.
func DaysUntil(target, now time.Time) int {
	diff := target.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// DaysLate returns the number of full days now is past dueDate, never
// negative.
func DaysLate(dueDate, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate) / (24 * time.Hour))
}

// LateFee returns the penalty owed on an overdue loan: feeRatePercent of
// the monthly payment per full 30-day period overdue. Partial periods
// are not prorated. Zero when now is on or before dueDate.
func LateFee(monthlyPayment decimal.Decimal, dueDate, now time.Time, feeRatePercent decimal.Decimal) decimal.Decimal {
	periods := DaysLate(dueDate, now) / lateFeePeriodDays
	if periods <= 0 {
		return decimal.Zero
	}
	return monthlyPayment.Mul(feeRatePercent.Div(hundred)).Mul(decimal.NewFromInt(int64(periods)))
}
