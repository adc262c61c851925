package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-backtest/internal/audit"
	"github.com/wonny/aegis-backtest/internal/backtest"
	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "공시 기반 포트폴리오 백테스트",
	Long: `과거 가격/공시 데이터로 포트폴리오 전략을 시뮬레이션합니다.

결과 지표:
- 누적/연환산 수익률
- MDD, Sharpe
- 승률 및 이벤트 유형별 성과

Example:
  go run ./cmd/quant backtest run --config-file configs/backtest/disclosure_portfolio.yaml
  go run ./cmd/quant backtest run --from 2023-01-01 --to 2023-12-31 --rebalance weekly
  go run ./cmd/quant backtest validate --config-file configs/backtest/disclosure_portfolio.yaml`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `설정 파일 또는 플래그로 백테스트를 실행합니다.

Flags:
  --config-file    실행 설정 파일 (YAML/JSON, 플래그 설정과 동시 사용 불가)
  --from           시작 날짜 (YYYY-MM-DD)
  --to             종료 날짜 (YYYY-MM-DD, 기본: 오늘)
  --symbols        대상 종목 (쉼표 구분, 기본: 전체)
  --capital        초기 자본 (기본: 1억원)
  --rebalance      리밸런싱 주기 (daily|weekly|monthly|quarterly)
  --commission     수수료율 (기본: 0.0005 = 0.05%)
  --slippage       슬리피지율 (기본: 0.001 = 0.1%)
  --max-positions  최대 보유 종목 수
  --sort-by        스크리닝 기준
  --out            결과 디렉토리 (report.md, result.json, snapshot.json)
  --timeout        실행 제한 시간 (기본: BACKTEST_RUN_TIMEOUT)

Example:
  go run ./cmd/quant backtest run --config-file run.yaml --out out/run1
  go run ./cmd/quant backtest run --from 2023-01-01 --symbols 005930,035720
  go run ./cmd/quant backtest run --from 2023-01-01 --commission 0.002 --timeout 5m`,
		RunE: runBacktest,
	}

	backtestValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "실행 설정 검증",
		Long: `실행 설정 파일을 검증하고 해시를 출력합니다. DB 연결 없이 동작합니다.

Example:
  go run ./cmd/quant backtest validate --config-file configs/backtest/disclosure_portfolio.yaml`,
		RunE: runBacktestValidate,
	}

	// Flags
	backtestConfigFile   string
	backtestFrom         string
	backtestTo           string
	backtestSymbols      []string
	backtestCapital      float64
	backtestRebalance    string
	backtestCommission   float64
	backtestSlippage     float64
	backtestMaxPositions int
	backtestSortBy       string
	backtestOut          string
	backtestTimeout      time.Duration
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestValidateCmd)

	// Flags
	f := backtestRunCmd.Flags()
	f.StringVar(&backtestConfigFile, "config-file", "", "실행 설정 파일 (YAML/JSON)")
	f.StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	f.StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	f.StringSliceVar(&backtestSymbols, "symbols", nil, "대상 종목 코드 (쉼표 구분)")
	f.Float64Var(&backtestCapital, "capital", 0, "초기 자본 (원, 기본: 100,000,000)")
	f.StringVar(&backtestRebalance, "rebalance", "", "리밸런싱 주기 (기본: monthly)")
	f.Float64Var(&backtestCommission, "commission", 0, "수수료율 (기본: 0.0005)")
	f.Float64Var(&backtestSlippage, "slippage", 0, "슬리피지율 (기본: 0.001)")
	f.IntVar(&backtestMaxPositions, "max-positions", 0, "최대 보유 종목 수 (기본: 10)")
	f.StringVar(&backtestSortBy, "sort-by", "", "스크리닝 기준 (기본: disclosure)")
	f.StringVar(&backtestOut, "out", "", "결과 디렉토리")
	f.DurationVar(&backtestTimeout, "timeout", 0, "실행 제한 시간")

	backtestRunCmd.MarkFlagsOneRequired("config-file", "from")
	backtestRunCmd.MarkFlagsMutuallyExclusive("config-file", "from")

	backtestValidateCmd.Flags().StringVar(&backtestConfigFile, "config-file", "", "실행 설정 파일 (YAML/JSON, 필수)")
	_ = backtestValidateCmd.MarkFlagRequired("config-file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	runCfg, snapshot, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	PrintHeader("Aegis Backtest Engine",
		fmt.Sprintf("Name      : %s", runCfg.Name),
		fmt.Sprintf("Period    : %s ~ %s", runCfg.StartDate.Format(strategyconfig.DateLayout), runCfg.EndDate.Format(strategyconfig.DateLayout)),
		fmt.Sprintf("Capital   : %s", formatWon(runCfg.InitialCash)),
		fmt.Sprintf("Rebalance : %s (max %d positions)", runCfg.RebalancePeriod, runCfg.MaxPositions),
		fmt.Sprintf("Costs     : commission %.2f%%, slippage %.2f%%", runCfg.Commission*100, runCfg.Slippage*100),
		fmt.Sprintf("Config    : %s", snapshot.ConfigHash),
	)

	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	timeout := backtestTimeout
	if timeout <= 0 {
		timeout = rt.cfg.Backtest.RunTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fmt.Println("🚀 Starting backtest...")

	engine := backtest.NewEngine(rt.loader(), rt.log)
	result, err := engine.Run(ctx, runCfg)
	switch {
	case err == nil:
	case isEmptyOutcome(err) && result != nil:
		PrintWarning(fmt.Sprintf("Backtest produced no trades: %v", err))
	default:
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)

	if backtestOut != "" {
		if err := writeRunOutput(backtestOut, runCfg, result, snapshot); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		PrintSuccess(fmt.Sprintf("Output written to %s", backtestOut))
	}
	return nil
}

func runBacktestValidate(cmd *cobra.Command, args []string) error {
	runCfg, cfg, raw, err := strategyconfig.LoadBacktestConfig(backtestConfigFile)
	if err != nil {
		PrintError("Invalid config")
		return err
	}

	snapshot, err := strategyconfig.NewRunSnapshot(cfg, raw)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Config is valid: %s", backtestConfigFile))
	PrintKeyValue("name", runCfg.Name, 12)
	PrintKeyValue("config_hash", snapshot.ConfigHash, 12)
	PrintKeyValue("file_hash", snapshot.FileHash, 12)
	PrintKeyValue("period", runCfg.StartDate.Format(strategyconfig.DateLayout)+" ~ "+runCfg.EndDate.Format(strategyconfig.DateLayout), 12)
	PrintKeyValue("rules", fmt.Sprintf("%d category, %d event, %d indicator",
		len(runCfg.CategorySignals), len(runCfg.EventSignals), len(runCfg.IndicatorConditions)), 12)

	printWarnings(strategyconfig.Warn(cfg))
	return nil
}

// resolveRunConfig builds the run config from --config-file or the flags
func resolveRunConfig(cmd *cobra.Command) (contracts.BacktestConfig, *strategyconfig.RunSnapshot, error) {
	var (
		cfg *strategyconfig.Config
		raw []byte
		err error
	)
	if backtestConfigFile != "" {
		cfg, raw, err = strategyconfig.Load(backtestConfigFile)
		if err != nil {
			return contracts.BacktestConfig{}, nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		cfg = configFromFlags(cmd)
		if raw, err = yaml.Marshal(cfg); err != nil {
			return contracts.BacktestConfig{}, nil, err
		}
	}

	runCfg, err := strategyconfig.ToBacktestConfig(cfg)
	if err != nil {
		return contracts.BacktestConfig{}, nil, fmt.Errorf("invalid config: %w", err)
	}
	snapshot, err := strategyconfig.NewRunSnapshot(cfg, raw)
	if err != nil {
		return contracts.BacktestConfig{}, nil, err
	}

	printWarnings(strategyconfig.Warn(cfg))
	return runCfg, snapshot, nil
}

// configFromFlags maps the run flags onto a file config; unset flags keep defaults
func configFromFlags(cmd *cobra.Command) *strategyconfig.Config {
	flags := cmd.Flags()

	end := backtestTo
	if end == "" {
		end = time.Now().Format(strategyconfig.DateLayout)
	}

	cfg := &strategyconfig.Config{
		Period:    strategyconfig.Period{Start: backtestFrom, End: end},
		Capital:   strategyconfig.Capital{InitialCash: backtestCapital},
		Portfolio: strategyconfig.Portfolio{RebalancePeriod: backtestRebalance, MaxPositions: backtestMaxPositions},
		Universe:  strategyconfig.Universe{TargetSymbols: parseSymbols(backtestSymbols)},
		Screening: strategyconfig.Screening{SortBy: backtestSortBy},
	}
	if flags.Changed("commission") {
		cfg.Capital.Commission = &backtestCommission
	}
	if flags.Changed("slippage") {
		cfg.Capital.Slippage = &backtestSlippage
	}
	return cfg
}

func isEmptyOutcome(err error) bool {
	return errors.Is(err, backtest.ErrEmptyUniverse) ||
		errors.Is(err, backtest.ErrNoCandidates) ||
		errors.Is(err, backtest.ErrNoPriceData)
}

func printWarnings(warnings []strategyconfig.Warning) {
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
}

func printBacktestResult(result *contracts.BacktestResult) {
	fmt.Println()
	PrintSuccess("Backtest Completed")
	PrintDoubleSeparator()

	// Summary
	fmt.Println("📊 Summary")
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s (%d trading days)",
		result.StartDate.Format(strategyconfig.DateLayout),
		result.EndDate.Format(strategyconfig.DateLayout),
		result.TradingDays), 16)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", len(result.Symbols)), 16)
	PrintKeyValue("Rebalances", fmt.Sprintf("%d times", result.RebalanceCount), 16)
	fmt.Println()

	// Performance
	fmt.Println("💰 Performance")
	PrintKeyValue("Initial Cash", formatWon(result.InitialCash), 16)
	PrintKeyValue("Final Equity", formatWon(result.FinalEquity), 16)
	PrintKeyValue("Total Return", formatPercent(result.TotalReturn), 16)
	PrintKeyValue("Annual Return", formatPercent(result.AnnualizedReturn), 16)
	PrintKeyValue("Max Drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdown), 16)
	PrintKeyValue("Sharpe Ratio", fmt.Sprintf("%.2f", result.SharpeRatio), 16)
	fmt.Println()

	// Trading
	fmt.Println("💹 Trading")
	PrintKeyValue("Buys / Sells", fmt.Sprintf("%d / %d", result.BuyCount, result.SellCount), 16)
	PrintKeyValue("Win Rate", fmt.Sprintf("%.1f%% (%d W / %d L)", result.WinRate, result.WinningTrades, result.LosingTrades), 16)
	PrintKeyValue("Profit / Loss", formatWon(result.TotalProfit)+" / "+formatWon(result.TotalLoss), 16)
	fmt.Println()

	// Event buckets
	if len(result.EventPerformance) > 0 {
		fmt.Println("📰 Event Performance")
		widths := []int{20, 6, 6, 6, 18}
		PrintTableHeader([]string{"Event", "Count", "Win", "Loss", "Net"}, widths)
		for _, eventType := range audit.SortedEventTypes(result.EventPerformance) {
			s := result.EventPerformance[eventType]
			PrintTableRow([]string{
				eventType,
				fmt.Sprintf("%d", s.Count),
				fmt.Sprintf("%d", s.WinCount),
				fmt.Sprintf("%d", s.LossCount),
				formatWon(s.TotalProfit - s.TotalLoss),
			}, widths)
		}
		fmt.Println()
	}

	// Equity Curve (last 5 points)
	if n := len(result.EquityCurve); n > 0 {
		fmt.Println("📈 Equity Curve (Last 5 Days)")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, point := range result.EquityCurve[start:] {
			fmt.Printf("   %s: %s (%+.2f%%)\n",
				point.Date.Format(strategyconfig.DateLayout),
				formatWon(point.Equity),
				point.Return*100)
		}
		fmt.Println()
	}
	PrintDoubleSeparator()
}

// writeRunOutput writes report.md, result.json and snapshot.json into dir
func writeRunOutput(dir string, runCfg contracts.BacktestConfig, result *contracts.BacktestResult, snapshot *strategyconfig.RunSnapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	report := result.Report
	if report == "" {
		report = audit.RenderReport(runCfg, result)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(report), 0o644); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "result.json"), result); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "snapshot.json"), snapshot)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// parseSymbols splits a comma list and drops blanks
func parseSymbols(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
