package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/pkg/logger"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 관리",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "ranking config 검증",
	Long: `ranking config(YAML)를 읽어 검증하고 유효 설정과 해시를 출력합니다.
오류(ConfigurationFault)가 있으면 0이 아닌 코드로 종료합니다.

Example:
  go run ./cmd/rsrank config check --config config.yaml`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rankCfg, err := loadRankingConfig(cfg, logger.Nop())
	if err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := rankconfig.Hash(rankCfg)
	if err != nil {
		return err
	}

	indexes := make([]string, 0, 5)
	for _, set := range rankCfg.EnabledIndexes() {
		indexes = append(indexes, string(set))
	}

	PrintHeader("Ranking Config")
	const w = 22
	PrintKeyValue("Path", cfg.RankingConfigPath, w)
	PrintKeyValue("Indexes", strings.Join(indexes, ", "), w)
	PrintKeyValue("INCLUDE_BY_MARKET_CAP", strconv.FormatBool(rankCfg.IncludeByMarketCap), w)
	PrintKeyValue("MIN_MARKET_CAP", fmt.Sprintf("%.0f", rankCfg.MinMarketCap), w)
	PrintKeyValue("MAX_TICKERS_BY_CAP", strconv.Itoa(rankCfg.MaxTickersByCap), w)
	PrintKeyValue("MIN_TRADING_DAYS", strconv.Itoa(rankCfg.MinTradingDays), w)
	PrintKeyValue("MIN_AVG_VOLUME", fmt.Sprintf("%.0f", rankCfg.MinAvgVolume), w)
	PrintKeyValue("MIN_PERCENTILE", strconv.Itoa(rankCfg.MinPercentile), w)
	PrintKeyValue("REFERENCE_TICKER", rankCfg.ReferenceTicker, w)
	PrintKeyValue("OUTPUT_DIR", rankCfg.OutputDir, w)
	PrintKeyValue("WORKERS", strconv.Itoa(rankCfg.Workers), w)
	PrintKeyValue("HISTORY_DAYS", strconv.Itoa(rankCfg.HistoryDays), w)
	PrintKeyValue("Hash", hash, w)
	PrintSeparator()

	for _, warn := range rankconfig.Warn(rankCfg) {
		PrintInfo(fmt.Sprintf("%s: %s", warn.Code, warn.Message))
	}

	PrintSuccess("Config is valid")
	return nil
}
