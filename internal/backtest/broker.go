package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// Reasons recorded by the broker itself
const (
	ReasonRebalance  = "rebalance"
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
)

// Position represents a stock position
type Position struct {
	Symbol     string
	Size       int64
	EntryPrice float64         // 체결가 (슬리피지 반영)
	CostBasis  decimal.Decimal // 매수금액 + 수수료
	OpenedAt   time.Time
}

// Bracket is the pending OCO stop-loss / take-profit pair of one position
type Bracket struct {
	Stop  float64
	Limit float64
}

// Broker is the in-process cash ledger, position book and order book.
// ⭐ SSOT: 체결/현금 계산은 여기서만
type Broker struct {
	cash       decimal.Decimal
	commission decimal.Decimal
	slippage   decimal.Decimal

	positions map[string]*Position
	order     []string // 보유 종목 진입 순서
	brackets  map[string]Bracket
	trades    []contracts.TradeRecord
}

// NewBroker creates a broker with cash and fee rates
func NewBroker(cash, commission, slippage float64) *Broker {
	return &Broker{
		cash:       decimal.NewFromFloat(cash),
		commission: decimal.NewFromFloat(commission),
		slippage:   decimal.NewFromFloat(slippage),
		positions:  make(map[string]*Position),
		brackets:   make(map[string]Bracket),
		trades:     make([]contracts.TradeRecord, 0),
	}
}

// Cash returns available cash
func (b *Broker) Cash() float64 {
	return b.cash.InexactFloat64()
}

// Position returns the open position for symbol
func (b *Broker) Position(symbol string) (*Position, bool) {
	p, ok := b.positions[symbol]
	return p, ok
}

// Held returns open symbols in entry order
func (b *Broker) Held() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Bracket returns the pending orders of symbol
func (b *Broker) Bracket(symbol string) (Bracket, bool) {
	br, ok := b.brackets[symbol]
	return br, ok
}

// Trades returns the append-only trade log
func (b *Broker) Trades() []contracts.TradeRecord {
	return b.trades
}

// Equity is cash plus every position marked at marks[symbol].
// Positions without a mark are valued at entry price.
func (b *Broker) Equity(marks map[string]float64) float64 {
	equity := b.cash
	for _, symbol := range b.order {
		p := b.positions[symbol]
		mark, ok := marks[symbol]
		if !ok {
			mark = p.EntryPrice
		}
		equity = equity.Add(decimal.NewFromFloat(mark).Mul(decimal.NewFromInt(p.Size)))
	}
	return equity.InexactFloat64()
}

// Buy fills size shares at close×(1+slippage). When fees make the order
// unaffordable the size shrinks to the largest affordable count.
func (b *Broker) Buy(date time.Time, symbol string, size int64, close float64, reason string) (contracts.TradeRecord, bool) {
	if size <= 0 || close <= 0 {
		return contracts.TradeRecord{}, false
	}

	one := decimal.NewFromInt(1)
	price := decimal.NewFromFloat(close).Mul(one.Add(b.slippage))
	costOf := func(n int64) (value, fee decimal.Decimal) {
		value = price.Mul(decimal.NewFromInt(n))
		return value, value.Mul(b.commission)
	}

	value, fee := costOf(size)
	if value.Add(fee).GreaterThan(b.cash) {
		size = b.cash.Div(price.Mul(one.Add(b.commission))).Floor().IntPart()
		for size > 0 {
			value, fee = costOf(size)
			if !value.Add(fee).GreaterThan(b.cash) {
				break
			}
			size--
		}
		if size <= 0 {
			return contracts.TradeRecord{}, false
		}
	}

	b.cash = b.cash.Sub(value).Sub(fee)

	if p, ok := b.positions[symbol]; ok {
		p.CostBasis = p.CostBasis.Add(value).Add(fee)
		total := p.Size + size
		p.EntryPrice = decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromInt(p.Size)).
			Add(value).Div(decimal.NewFromInt(total)).InexactFloat64()
		p.Size = total
	} else {
		b.positions[symbol] = &Position{
			Symbol:     symbol,
			Size:       size,
			EntryPrice: price.InexactFloat64(),
			CostBasis:  value.Add(fee),
			OpenedAt:   contracts.DateOf(date),
		}
		b.order = append(b.order, symbol)
	}

	rec := contracts.TradeRecord{
		Date:       contracts.DateOf(date),
		Symbol:     symbol,
		Action:     contracts.ActionBuy,
		Size:       size,
		Price:      price.InexactFloat64(),
		Amount:     value.InexactFloat64(),
		Commission: fee.InexactFloat64(),
		Reason:     reason,
	}
	b.trades = append(b.trades, rec)
	return rec, true
}

// Sell liquidates the whole position at price×(1−slippage) and cancels its orders
func (b *Broker) Sell(date time.Time, symbol string, price float64, reason string) (contracts.TradeRecord, bool) {
	p, ok := b.positions[symbol]
	if !ok || p.Size <= 0 {
		return contracts.TradeRecord{}, false
	}

	fill := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Sub(b.slippage))
	value := fill.Mul(decimal.NewFromInt(p.Size))
	fee := value.Mul(b.commission)
	proceeds := value.Sub(fee)
	pnl := proceeds.Sub(p.CostBasis)

	b.cash = b.cash.Add(proceeds)
	b.close(symbol)

	rec := contracts.TradeRecord{
		Date:       contracts.DateOf(date),
		Symbol:     symbol,
		Action:     contracts.ActionSell,
		Size:       p.Size,
		Price:      fill.InexactFloat64(),
		Amount:     value.InexactFloat64(),
		Commission: fee.InexactFloat64(),
		PnL:        pnl.InexactFloat64(),
		Reason:     reason,
	}
	b.trades = append(b.trades, rec)
	return rec, true
}

// PlaceBracket replaces the pending orders of an open position
func (b *Broker) PlaceBracket(symbol string, stop, limit float64) {
	if _, ok := b.positions[symbol]; !ok {
		return
	}
	b.brackets[symbol] = Bracket{Stop: stop, Limit: limit}
}

// CancelOrders drops the pending orders of symbol
func (b *Broker) CancelOrders(symbol string) {
	delete(b.brackets, symbol)
}

// Settle checks symbol's pending orders against bar.
// A touched stop fills at min(open, stop) and wins over a touched
// take-profit, which fills at max(open, limit).
func (b *Broker) Settle(symbol string, bar contracts.PriceBar) (contracts.TradeRecord, bool) {
	br, ok := b.brackets[symbol]
	if !ok {
		return contracts.TradeRecord{}, false
	}

	switch {
	case bar.Low <= br.Stop:
		price := br.Stop
		if bar.Open < price {
			price = bar.Open // 갭 하락
		}
		return b.Sell(bar.Date, symbol, price, ReasonStopLoss)
	case bar.High >= br.Limit:
		price := br.Limit
		if bar.Open > price {
			price = bar.Open // 갭 상승
		}
		return b.Sell(bar.Date, symbol, price, ReasonTakeProfit)
	default:
		return contracts.TradeRecord{}, false
	}
}

func (b *Broker) close(symbol string) {
	delete(b.positions, symbol)
	delete(b.brackets, symbol)
	out := b.order[:0]
	for _, s := range b.order {
		if s != symbol {
			out = append(out, s)
		}
	}
	b.order = out
}
