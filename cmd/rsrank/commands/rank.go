package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/report"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "저장된 스냅샷으로 랭킹 계산 (S1~S4)",
	Long: `마지막으로 수집된 스냅샷을 읽어 유니버스 필터, RS 점수, 백분위 순위를 계산하고
CSV 테이블을 출력합니다. 데이터는 다시 수집하지 않습니다.

Example:
  go run ./cmd/rsrank rank
  go run ./cmd/rsrank rank --config config.yaml`,
	RunE: runRank,
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "수집 + 랭킹 전체 파이프라인 실행",
	Long: `S0 수집부터 S4 CSV 출력까지 한 번에 실행하고 상위 종목 요약을 출력합니다.

Example:
  go run ./cmd/rsrank run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(runCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	PrintHeader("RS Ranking")

	run, err := a.pipeline.Rank(ctx)
	return finishRun(a, run, err)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	PrintHeader("RS Pipeline (collect + rank)")

	run, err := a.pipeline.Run(ctx)
	return finishRun(a, run, err)
}

// finishRun prints the run and its top-N summary; a run returned with an output error is still shown
func finishRun(a *app, run *contracts.RankingRun, err error) error {
	if run == nil {
		PrintError(err.Error())
		return fmt.Errorf("ranking: %w", err)
	}

	path := a.writer.Path()
	if err != nil {
		path = ""
	}
	printRunResult(os.Stdout, run, path)
	report.WriteSummary(os.Stdout, run, a.rankCfg.MinPercentile)

	if err != nil {
		PrintWarning(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%d tickers ranked, %d at or above percentile %d",
		len(run.Entries), len(run.Table), a.rankCfg.MinPercentile))
	return nil
}

// signalContext cancels on Ctrl+C / SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
