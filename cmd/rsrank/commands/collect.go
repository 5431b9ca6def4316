package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "시세/프로필 수집 (S0)",
	Long: `활성화된 인덱스 구성종목(및 시가총액 후보)의 일봉과 프로필을 수집해 저장합니다.

이 명령어는:
- Wikipedia 인덱스 구성종목 조회
- Nasdaq Trader 상장 종목 디렉토리 조회 (INCLUDE_BY_MARKET_CAP)
- Yahoo Finance 일봉/프로필 수집
- 데이터 품질 검사 후 스냅샷 저장

Example:
  go run ./cmd/rsrank collect
  go run ./cmd/rsrank collect --config config.yaml`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	PrintHeader("S0 Data Collection")

	start := time.Now()
	result, err := a.collector.Collect(ctx, a.rankCfg)
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("collect: %w", err)
	}

	printCollectResult(os.Stdout, result, time.Since(start))
	PrintSeparator()
	PrintSuccess(fmt.Sprintf("Stored %d tickers", len(result.Tickers)))

	return nil
}
