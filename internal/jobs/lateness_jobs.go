package jobs

import (
	"context"
	"time"

	"github.com/Thaddeus254/blocklend/internal/logger"
)

// SweepLateness reassesses late fees and days late for every active
// loan. The assessment is idempotent, so re-running the sweep within
// the same day is harmless.
func (jr *JobRunner) SweepLateness() {
	jr.runWithRecovery("SweepLateness", func() {
		ctx := context.Background()
		now := time.Now()

		loans, err := jr.loans.FindActiveLoans(ctx)
		if err != nil {
			logger.Error("Failed to list active loans for lateness sweep", "error", err)
			return
		}

		assessed := 0
		for _, l := range loans {
			updated, err := jr.loans.AssessLateness(ctx, l.ID, now)
			if err != nil {
				logger.Error("Failed to assess lateness", "loan_id", l.ID, "error", err)
				continue
			}
			assessed++
			if updated.DaysLate > 0 {
				logger.Warn("Loan is late",
					"loan_id", updated.ID,
					"borrower_id", updated.BorrowerID,
					"days_late", updated.DaysLate,
					"late_fees", updated.LateFees.StringFixed(2))
			}
		}

		logger.Info("Lateness sweep completed", "active_loans", len(loans), "assessed", assessed)
	})
}

// ReportOverdue logs the set of overdue loans. Reminder delivery is out
// of scope; downstream systems consume these records through the query
// API.
func (jr *JobRunner) ReportOverdue() {
	jr.runWithRecovery("ReportOverdue", func() {
		ctx := context.Background()
		now := time.Now()

		loans, err := jr.loans.FindOverdueLoans(ctx, now)
		if err != nil {
			logger.Error("Failed to list overdue loans", "error", err)
			return
		}

		for _, l := range loans {
			logger.Warn("Overdue loan",
				"loan_id", l.ID,
				"borrower_id", l.BorrowerID,
				"due_date", l.DueDate,
				"remaining_balance", l.RemainingBalance.StringFixed(2))
		}

		logger.Info("Overdue report completed", "overdue_loans", len(loans))
	})
}
