package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rsrank",
	Short: "Relative Strength ranking for US equities",
	Long: `rsrank Unified CLI

IBD 스타일 Relative Strength 랭킹.
S0 수집 → S1 유니버스 → S2 RS 점수 → S3 백분위 → S4 CSV 출력.

Usage:
  go run ./cmd/rsrank [command]

Examples:
  go run ./cmd/rsrank run
  go run ./cmd/rsrank rank --config config.yaml
  go run ./cmd/rsrank scheduler start
  go run ./cmd/rsrank api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "ranking config file (default is $RANKING_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides $ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
