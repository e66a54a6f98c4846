package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/scheduler"
	"github.com/mingzhao/fundv/internal/scheduler/jobs"
	"github.com/mingzhao/fundv/internal/store"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/database"
	"github.com/mingzhao/fundv/pkg/logger"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Scheduled batch valuation",
}

// scheduleRunCmd starts the cron scheduler
var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler and block",
	Long: `Starts the cron scheduler with the watchlist revaluation job and
blocks until interrupted.

Example:
  WATCHLIST=600900,000858 go run ./cmd/fundv schedule run`,
	RunE: runSchedule,
}

// scheduleOnceCmd runs the revaluation immediately
var scheduleOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Revalue the watchlist once and exit",
	RunE:  runScheduleOnce,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	scheduleCmd.AddCommand(scheduleOnceCmd)
}

func buildRevaluationJob(cfg *config.Config, log *logger.Logger) (*jobs.RevaluationJob, func(), error) {
	provider, cleanup, err := newProvider(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init market data provider: %w", err)
	}

	var repo contracts.RunRepository
	closeAll := cleanup
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		repo = store.NewRepository(db.Pool)
		closeAll = func() {
			db.Close()
			cleanup()
		}
	} else {
		log.Warn("DATABASE_URL not set, revaluation runs will not be persisted")
	}

	engine := newEngine(cfg, log)
	job := jobs.NewRevaluationJob(provider, engine, repo, cfg.Watchlist, log)
	return job, closeAll, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	fmt.Println("=== fundv Scheduler ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	job, cleanup, err := buildRevaluationJob(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.New(log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("register job: %w", err)
	}

	sched.Start()
	fmt.Printf("Scheduler running, %d jobs registered\n", len(sched.GetAllJobs()))
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runScheduleOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	job, cleanup, err := buildRevaluationJob(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	return job.Run(context.Background())
}
