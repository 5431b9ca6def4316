package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/ranking"
	"github.com/wonny/rsrank/pkg/logger"
)

// RankingSchedule runs on weekdays at 17:30 New York time, after the US close
const RankingSchedule = "0 30 17 * * 1-5"

// Runner executes one collect → rank pipeline
type Runner interface {
	Run(ctx context.Context) (*contracts.RankingRun, error)
}

// RankingJob refreshes data and recomputes the RS ranking
// ⭐ SSOT: 랭킹 파이프라인 스케줄은 이 Job에서만
type RankingJob struct {
	pipeline Runner
	logger   *logger.Logger
}

// NewRankingJob creates a new ranking job
func NewRankingJob(pipeline Runner, log *logger.Logger) *RankingJob {
	return &RankingJob{
		pipeline: pipeline,
		logger:   log,
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "ranking_pipeline"
}

// Schedule returns the cron schedule (with seconds)
func (j *RankingJob) Schedule() string {
	return RankingSchedule
}

// Retryable rejects failures a later attempt cannot fix: bad configuration
// needs an operator, and an in-flight run already covers this activation
func (j *RankingJob) Retryable(err error) bool {
	if contracts.IsConfigurationFault(err) {
		return false
	}
	return !errors.Is(err, ranking.ErrRunInProgress)
}

// Run executes the pipeline
func (j *RankingJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled ranking pipeline")

	run, err := j.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ranking pipeline: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": run.RunID.String(),
		"as_of":  run.AsOf.Format("2006-01-02"),
		"ranked": len(run.Entries),
		"table":  len(run.Table),
		"faults": len(run.Faults),
	}).Info("Scheduled ranking completed")

	return nil
}
