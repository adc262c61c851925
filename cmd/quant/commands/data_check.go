package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/internal/s0_data/quality"
	"github.com/wonny/aegis-backtest/internal/strategyconfig"
)

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "종목별 데이터 커버리지 확인",
	Long: `백테스트 전에 종목별 데이터 상태를 확인합니다.

확인 항목:
- 가격 데이터 (일봉 커버리지, 거래량)
- 공시 데이터 (건수, 긍정/부정)
- 공시 지표 데이터 (--report-types 지정 시)

Example:
  go run ./cmd/quant data-check --symbols 005930,035720
  go run ./cmd/quant data-check --symbols 005930 --from 2023-01-01 --report-types "유상증자 결정"
  go run ./cmd/quant data-check --symbols 005930 --json`,
	RunE: runDataCheck,
}

var (
	dataCheckSymbols     []string
	dataCheckFrom        string
	dataCheckTo          string
	dataCheckReportTypes []string
	dataCheckJSON        bool
)

func init() {
	rootCmd.AddCommand(dataCheckCmd)

	dataCheckCmd.Flags().StringSliceVar(&dataCheckSymbols, "symbols", nil, "확인할 종목 코드 (쉼표 구분, 필수)")
	dataCheckCmd.Flags().StringVar(&dataCheckFrom, "from", "", "시작 날짜 (YYYY-MM-DD, 기본: 1년 전)")
	dataCheckCmd.Flags().StringVar(&dataCheckTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	dataCheckCmd.Flags().StringSliceVar(&dataCheckReportTypes, "report-types", nil, "지표 커버리지를 확인할 보고서 유형")
	dataCheckCmd.Flags().BoolVar(&dataCheckJSON, "json", false, "JSON 출력")
	_ = dataCheckCmd.MarkFlagRequired("symbols")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	start, end, err := dataCheckPeriod()
	if err != nil {
		return err
	}
	symbols := parseSymbols(dataCheckSymbols)
	if len(symbols) == 0 {
		return fmt.Errorf("--symbols is empty")
	}

	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	market, err := rt.loader().LoadAll(cmd.Context(), symbols, s0_data.LoadRequest{
		Start:          start,
		End:            end,
		WithPrices:     true,
		WithDisclosure: true,
		ReportTypes:    dataCheckReportTypes,
	})
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	gate := quality.NewQualityGate(quality.DefaultConfig())
	snapshots := make([]*quality.CoverageSnapshot, 0, len(symbols))
	for _, symbol := range market.Symbols {
		d := market.Get(symbol)
		snapshot := gate.Check(symbol, start, end, d.Prices, d.Disclosures, d.Indicators)
		if snapshot.CorpName == "" {
			snapshot.CorpName = d.CorpName
		}
		snapshots = append(snapshots, snapshot)
	}

	if dataCheckJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	}

	PrintHeader("Aegis Data Check",
		fmt.Sprintf("Period    : %s ~ %s", start.Format(strategyconfig.DateLayout), end.Format(strategyconfig.DateLayout)),
		fmt.Sprintf("Symbols   : %d", len(symbols)),
		fmt.Sprintf("Weekdays  : %d", quality.Weekdays(start, end)),
	)

	widths := []int{8, 14, 6, 8, 8, 12, 8, 6}
	PrintTableHeader([]string{"Symbol", "Name", "Bars", "Price", "Volume", "Disclosure", "Indic.", "Score"}, widths)

	passed := 0
	for _, s := range snapshots {
		PrintTableRow([]string{
			s.Symbol,
			s.CorpName,
			fmt.Sprintf("%d", s.PriceBars),
			formatRatio(s.Coverage["price"]),
			formatRatio(s.Coverage["volume"]),
			fmt.Sprintf("%d (+%d/-%d)", s.Disclosures, s.Positive, s.Negative),
			fmt.Sprintf("%d", s.Indicators),
			fmt.Sprintf("%.2f", s.QualityScore),
		}, widths)
		if s.Passed {
			passed++
		}
	}

	fmt.Println()
	if passed == len(snapshots) {
		PrintSuccess(fmt.Sprintf("All %d symbols passed the quality gate", passed))
	} else {
		PrintWarning(fmt.Sprintf("%d/%d symbols passed the quality gate", passed, len(snapshots)))
	}
	return nil
}

func dataCheckPeriod() (time.Time, time.Time, error) {
	end := time.Now()
	if dataCheckTo != "" {
		t, err := time.Parse(strategyconfig.DateLayout, dataCheckTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t
	}

	start := end.AddDate(-1, 0, 0)
	if dataCheckFrom != "" {
		t, err := time.Parse(strategyconfig.DateLayout, dataCheckFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be on or before --to")
	}
	return start, end, nil
}
