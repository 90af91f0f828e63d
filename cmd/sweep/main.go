package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/config"
	"github.com/Thaddeus254/blocklend/internal/jobs"
	"github.com/Thaddeus254/blocklend/internal/logger"
	"github.com/Thaddeus254/blocklend/internal/repository/postgres"
	"github.com/Thaddeus254/blocklend/internal/scheduler"
	"github.com/Thaddeus254/blocklend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'sweep-lateness', 'report-overdue', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Blocklend sweep runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories and Services
	store := postgres.NewStore(db)
	loanService := service.NewLoanService(store.LoanRepository, decimal.NewFromFloat(cfg.Lateness.FeeRatePercent))
	jobRunner := jobs.NewJobRunner(loanService, cfg)

	// One-shot execution
	if *runOnce != "" {
		switch *runOnce {
		case "sweep-lateness":
			jobRunner.SweepLateness()
		case "report-overdue":
			jobRunner.ReportOverdue()
		case "all-nightly":
			jobRunner.RunAllNightlyJobs()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		return
	}

	// Long-running scheduler
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	logger.Info("Sweep runner stopped")
}
