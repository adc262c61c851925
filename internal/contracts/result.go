package contracts

import "time"

// TradeRecord is one executed fill
// ⭐ SSOT: 거래 로그는 append-only
type TradeRecord struct {
	Date       time.Time `json:"date"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Size       int64     `json:"size"`
	Price      float64   `json:"price"`
	Amount     float64   `json:"amount"` // size × price
	Commission float64   `json:"commission"`
	PnL        float64   `json:"pnl"` // SELL만: 왕복 손익 (수수료 포함)
	Reason     string    `json:"reason"`
}

// Closed reports whether the record closes a round trip
func (t TradeRecord) Closed() bool {
	return t.Action == ActionSell
}

// EventStats is the per-event-type trade bucket
type EventStats struct {
	Count       int     `json:"count"`
	TotalProfit float64 `json:"total_profit"`
	TotalLoss   float64 `json:"total_loss"`
	WinCount    int     `json:"win_count"`
	LossCount   int     `json:"loss_count"`
}

// EquityPoint is the marked-to-market portfolio value at a day's close
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Return float64   `json:"return"` // 전일 대비
}

// BacktestResult is built once at the end of a run
type BacktestResult struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	InitialCash float64 `json:"initial_cash"`
	FinalEquity float64 `json:"final_equity"`

	CumulativeReturn float64 `json:"cumulative_return"` // fraction
	TotalReturn      float64 `json:"total_return"`      // %
	AnnualizedReturn float64 `json:"annualized_return"` // %
	MaxDrawdown      float64 `json:"mdd"`               // %
	SharpeRatio      float64 `json:"sharpe_ratio"`
	WinRate          float64 `json:"win_rate"` // %

	TotalTrades   int     `json:"total_trades"` // closed round trips
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	BuyCount      int     `json:"buy_count"`
	SellCount     int     `json:"sell_count"`
	TotalProfit   float64 `json:"total_profit"`
	TotalLoss     float64 `json:"total_loss"`

	TradingDays    int      `json:"trading_days"`
	RebalanceCount int      `json:"rebalance_count"`
	Symbols        []string `json:"symbols"`
	ConfigHash     string   `json:"config_hash,omitempty"`

	Trades           []TradeRecord         `json:"trades"`
	EquityCurve      []EquityPoint         `json:"equity_curve"`
	EventPerformance map[string]EventStats `json:"event_performance"`
	Report           string                `json:"report"`
}

// EmptyResult is the zeroed result of a run that could not execute
func EmptyResult(cfg BacktestConfig) *BacktestResult {
	return &BacktestResult{
		Name:             cfg.Name,
		StartDate:        cfg.StartDate,
		EndDate:          cfg.EndDate,
		InitialCash:      cfg.InitialCash,
		FinalEquity:      cfg.InitialCash,
		Trades:           []TradeRecord{},
		EquityCurve:      []EquityPoint{},
		EventPerformance: map[string]EventStats{},
	}
}
