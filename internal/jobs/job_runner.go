package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Thaddeus254/blocklend/internal/config"
	"github.com/Thaddeus254/blocklend/internal/domain"
	"github.com/Thaddeus254/blocklend/internal/logger"
)

// LoanSweeper is the slice of the loan engine the scheduled jobs need.
type LoanSweeper interface {
	FindActiveLoans(ctx context.Context) ([]domain.Loan, error)
	FindOverdueLoans(ctx context.Context, now time.Time) ([]domain.Loan, error)
	AssessLateness(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Loan, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	loans  LoanSweeper
	config *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(loans LoanSweeper, cfg *config.Config) *JobRunner {
	return &JobRunner{
		loans:  loans,
		config: cfg,
	}
}

// Config returns the runner's configuration
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.SweepLateness()
	jr.ReportOverdue()
}
