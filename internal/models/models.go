package models

import "github.com/shopspring/decimal"

// TimestampLayout is the wall-clock format used in the persisted state and
// trade history files. Kept stable because the idempotency check matches on
// the date prefix and operators grep these files by hand.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the date-only prefix of TimestampLayout.
const DateLayout = "2006-01-02"

// Trade/ledger actions. BUY/SELL_* are live fills; BLOCKED_* are guardrail
// rejections recorded for the audit trail.
const (
	ActionBuy             = "BUY"
	ActionSell            = "SELL"
	ActionSellFull        = "SELL_FULL"
	ActionSellPartial     = "SELL_PARTIAL"
	ActionHold            = "HOLD"
	ActionBlockedATR      = "BLOCKED_ATR"
	ActionBlockedDrawdown = "BLOCKED_DRAWDOWN"
	ActionBlockedDup      = "BLOCKED_DUPLICATE"
	ActionBlockedBuy      = "BLOCKED_BUY"
	ActionBlockedSell     = "BLOCKED_SELL"
)

// Portfolio is the single persisted portfolio row: cash, one long-only
// position in the tracked symbol, and the running peak for drawdown math.
// Invariants: Shares == 0 implies CostBasis == 0; Cash never goes negative
// (no margin); PeakValue never decreases.
type Portfolio struct {
	Cash           decimal.Decimal `json:"cash"`
	Shares         int64           `json:"shares"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	PeakValue      decimal.Decimal `json:"peak_value"`
	LastUpdated    string          `json:"last_updated"`
}

// DefaultPortfolio returns the state used on first run, before any persisted
// file exists: 100k cash, flat.
func DefaultPortfolio() Portfolio {
	capital := decimal.NewFromInt(100000)
	return Portfolio{
		Cash:           capital,
		Shares:         0,
		CostBasis:      decimal.Zero,
		InitialCapital: capital,
		PeakValue:      capital,
	}
}

// TradeRecord is one immutable entry in the append-only trade history.
// Optional metric fields are pointers so blocked/hold records only carry
// what was actually known at the time.
type TradeRecord struct {
	Timestamp       string           `json:"timestamp"`
	Action          string           `json:"action"`
	Qty             int64            `json:"qty"`
	Price           decimal.Decimal  `json:"price"`
	Reason          string           `json:"reason"`
	PortfolioValue  decimal.Decimal  `json:"portfolio_value"`
	RealizedPnL     *decimal.Decimal `json:"realized_pnl,omitempty"`
	RemainingShares *int64           `json:"remaining_shares,omitempty"`
	RSI14           *float64         `json:"rsi_14,omitempty"`
	ATR14           *float64         `json:"atr_14,omitempty"`
	Regime          string           `json:"regime,omitempty"`
	MinATR          *float64         `json:"min_atr,omitempty"`
	MaxATR          *float64         `json:"max_atr,omitempty"`
	RequestedAction string           `json:"requested_action,omitempty"`
}

// IsLiveTrade reports whether the record represents an executed fill, as
// opposed to a HOLD or a blocked attempt. The daily idempotency gate only
// counts these.
func (r TradeRecord) IsLiveTrade() bool {
	switch r.Action {
	case ActionBuy, ActionSell, ActionSellPartial, ActionSellFull:
		return true
	}
	return false
}
