package audit

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// RecentTradeCount is how many trailing trades the report lists
const RecentTradeCount = 20

// RenderReport renders the fixed-structure markdown report of a run.
// The output depends only on cfg and result, never on wall-clock time.
func RenderReport(cfg contracts.BacktestConfig, result *contracts.BacktestResult) string {
	p := message.NewPrinter(language.Korean)
	var b strings.Builder

	b.WriteString("# 백테스트 결과 리포트\n\n")

	b.WriteString("## 실행 정보\n")
	p.Fprintf(&b, "- 이름: %s\n", cfg.Name)
	p.Fprintf(&b, "- 기간: %s ~ %s\n", cfg.StartDate.Format("2006-01-02"), cfg.EndDate.Format("2006-01-02"))
	p.Fprintf(&b, "- 초기 자본: %.0f원\n", cfg.InitialCash)
	p.Fprintf(&b, "- 리밸런싱 주기: %s\n", cfg.RebalancePeriod)
	p.Fprintf(&b, "- 최대 보유 종목 수: %d\n", cfg.MaxPositions)
	p.Fprintf(&b, "- 스크리닝 기준: %s\n", cfg.SortBy)
	p.Fprintf(&b, "- 대상 종목 수: %d\n\n", len(result.Symbols))

	b.WriteString("## 성과 지표\n")
	p.Fprintf(&b, "- 최종 평가금액: %.0f원\n", result.FinalEquity)
	p.Fprintf(&b, "- 누적 수익률: %.2f%%\n", result.TotalReturn)
	p.Fprintf(&b, "- 연환산 수익률: %.2f%%\n", result.AnnualizedReturn)
	p.Fprintf(&b, "- 최대 낙폭 (MDD): %.2f%%\n", result.MaxDrawdown)
	p.Fprintf(&b, "- 샤프 지수: %.2f\n", result.SharpeRatio)
	p.Fprintf(&b, "- 승률: %.2f%%\n", result.WinRate)
	p.Fprintf(&b, "- 청산 거래 수: %d (매수 %d / 매도 %d)\n", result.TotalTrades, result.BuyCount, result.SellCount)
	p.Fprintf(&b, "- 거래일 수: %d, 리밸런싱 %d회\n\n", result.TradingDays, result.RebalanceCount)

	b.WriteString("## 손익 분석\n")
	p.Fprintf(&b, "- 총 수익: %.0f원\n", result.TotalProfit)
	p.Fprintf(&b, "- 총 손실: %.0f원\n", result.TotalLoss)
	p.Fprintf(&b, "- 순 손익: %.0f원\n\n", result.TotalProfit-result.TotalLoss)

	b.WriteString("## 이벤트별 성과\n")
	if len(result.EventPerformance) == 0 {
		b.WriteString("- 없음\n")
	}
	for _, eventType := range SortedEventTypes(result.EventPerformance) {
		s := result.EventPerformance[eventType]
		p.Fprintf(&b, "\n### %s\n", eventType)
		p.Fprintf(&b, "- 거래 횟수: %d\n", s.Count)
		p.Fprintf(&b, "- 승률: %.2f%%\n", WinRate(s.WinCount, s.WinCount+s.LossCount))
		p.Fprintf(&b, "- 총 수익: %.0f원\n", s.TotalProfit)
		p.Fprintf(&b, "- 총 손실: %.0f원\n", s.TotalLoss)
	}
	b.WriteString("\n")

	b.WriteString("## 거래 내역\n")
	p.Fprintf(&b, "총 %d건\n\n", len(result.Trades))
	p.Fprintf(&b, "### 최근 %d건\n", RecentTradeCount)
	recent := result.Trades
	if len(recent) > RecentTradeCount {
		recent = recent[len(recent)-RecentTradeCount:]
	}
	for _, t := range recent {
		p.Fprintf(&b, "- %s | %s | %s | %d주 | %.0f원 | %s\n",
			t.Date.Format("2006-01-02"), t.Symbol, t.Action, t.Size, t.Price, t.Reason)
	}

	return b.String()
}
