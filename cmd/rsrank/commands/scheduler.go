package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/scheduler"
	"github.com/wonny/rsrank/internal/scheduler/jobs"
	"github.com/wonny/rsrank/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/rsrank scheduler start
  go run ./cmd/rsrank scheduler list
  go run ./cmd/rsrank scheduler run ranking_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (America/New_York):
- ranking_pipeline: 평일 17:30 (미국 장 마감 후 수집 + 랭킹)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// observedRunner reports every finished run to onRun (API in-memory view)
type observedRunner struct {
	runner jobs.Runner
	onRun  func(run *contracts.RankingRun)
}

func (o *observedRunner) Run(ctx context.Context) (*contracts.RankingRun, error) {
	run, err := o.runner.Run(ctx)
	if run != nil && o.onRun != nil {
		o.onRun(run)
	}
	return run, err
}

// newScheduler registers the ranking job against runner
func newScheduler(runner jobs.Runner, log *logger.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log).WithRetry(2, 5*time.Minute)

	if err := sched.AddJob(jobs.NewRankingJob(runner, log)); err != nil {
		return nil, fmt.Errorf("add ranking job: %w", err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a.pipeline, a.logger)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	PrintHeader("rsrank Scheduler")
	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 작업 목록만 필요하므로 파이프라인 없이 등록
	sched, err := newScheduler(nil, logger.New(cfg))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	printJobs(sched)

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a.pipeline, a.logger)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	// 수동 실행은 재시도 없이 결과를 바로 보고
	sched.WithRetry(0, 0)

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed: %s", jobName, result.Error))
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %.1fs", jobName, result.Duration.Seconds()))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		line := fmt.Sprintf("%s (%s)", name, stats[name].Schedule)
		if next := sched.NextRun(name); !next.IsZero() {
			line += " next: " + next.Format("2006-01-02 15:04 MST")
		}
		PrintList([]string{line})
	}
}
