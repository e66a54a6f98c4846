package jobs

import (
	"context"
	"fmt"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/valuation"
	"github.com/mingzhao/fundv/pkg/logger"
)

// RevaluationJob revalues the configured watchlist after the close
type RevaluationJob struct {
	provider  contracts.SnapshotProvider
	engine    *valuation.Engine
	repo      contracts.RunRepository
	watchlist []string
	logger    *logger.Logger
}

// NewRevaluationJob creates a new watchlist revaluation job. repo may be
// nil, results are then logged only.
func NewRevaluationJob(provider contracts.SnapshotProvider, engine *valuation.Engine, repo contracts.RunRepository, watchlist []string, log *logger.Logger) *RevaluationJob {
	return &RevaluationJob{
		provider:  provider,
		engine:    engine,
		repo:      repo,
		watchlist: watchlist,
		logger:    log,
	}
}

// Name returns the job name
func (j *RevaluationJob) Name() string {
	return "watchlist_revaluation"
}

// Schedule returns the cron schedule (weekdays at 5 PM, after the close)
func (j *RevaluationJob) Schedule() string {
	return "0 0 17 * * MON-FRI"
}

// Run revalues every watchlist ticker. One failing ticker does not stop
// the batch; the job fails only when every ticker failed.
func (j *RevaluationJob) Run(ctx context.Context) error {
	if len(j.watchlist) == 0 {
		j.logger.Warn("Watchlist is empty, nothing to revalue")
		return nil
	}

	j.logger.WithField("count", len(j.watchlist)).Info("Starting watchlist revaluation")

	var failed int
	for _, ticker := range j.watchlist {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := j.revalue(ctx, ticker); err != nil {
			failed++
			j.logger.WithError(err).WithField("ticker", ticker).Error("Revaluation failed")
		}
	}

	if failed == len(j.watchlist) {
		return fmt.Errorf("all %d watchlist tickers failed", failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"total":  len(j.watchlist),
		"failed": failed,
	}).Info("Watchlist revaluation completed")

	return nil
}

func (j *RevaluationJob) revalue(ctx context.Context, ticker string) error {
	snap, mkt, err := j.provider.Snapshot(ctx, ticker)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	run := j.engine.Valuate(snap, mkt)

	j.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"signal":     run.Signal,
		"confidence": run.Confidence,
		"class":      run.Class,
	}).Info("Ticker revalued")

	if j.repo != nil {
		if err := j.repo.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
	}

	return nil
}
