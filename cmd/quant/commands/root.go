package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Aegis Backtest - 공시 기반 포트폴리오 백테스터",
	Long: `Aegis Backtest Unified CLI

공시(DART) 이벤트와 가격 데이터로 포트폴리오 전략을 시뮬레이션합니다.
유니버스 → 스크리닝 → 데이터 로드 → 시뮬레이션 → 분석 순서로 실행.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant backtest run --config-file configs/backtest/disclosure_portfolio.yaml
  go run ./cmd/quant backtest validate --config-file configs/backtest/disclosure_portfolio.yaml
  go run ./cmd/quant data-check --symbols 005930,035720
  go run ./cmd/quant test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug log level)")
}
