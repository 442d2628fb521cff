package models

import "github.com/shopspring/decimal"

// Constraints are the static risk limits handed to both the decision-maker
// and the execution engine. Percentages are fractions (0.20 = 20%) except
// the ATR bounds, which are absolute dollar ranges.
type Constraints struct {
	MaxPositionSizePct float64 `json:"max_position_size_pct" yaml:"max_position_size_pct"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	RiskPerTradePct    float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	MinATR             float64 `json:"min_atr" yaml:"min_atr"`
	MaxATR             float64 `json:"max_atr" yaml:"max_atr"`
}

// PortfolioView is the portfolio snapshot inside a decision packet, the
// persisted fields plus metrics derived at build time.
type PortfolioView struct {
	Cash               decimal.Decimal `json:"cash"`
	Shares             int64           `json:"shares"`
	CostBasis          decimal.Decimal `json:"cost_basis"`
	TotalEquity        decimal.Decimal `json:"total_equity"`
	UnrealizedPnL      decimal.Decimal `json:"unrealized_pnl"`
	TotalReturnPct     float64         `json:"total_return_pct"`
	CurrentDrawdownPct float64         `json:"current_drawdown_pct"`
	UnrealizedPnLPct   float64         `json:"unrealized_pnl_pct"`
}

// MarketView carries the indicator snapshot for the decision-maker.
// SMA fields are pointers because they are absent until enough history
// exists; the prompt contract treats a null sma_200 as a forced HOLD.
type MarketView struct {
	Price                 float64   `json:"price"`
	History               []float64 `json:"history"`
	Volume                int64     `json:"volume"`
	Volatility            float64   `json:"volatility"`
	RSI14                 float64   `json:"rsi_14"`
	ATR14                 float64   `json:"atr_14"`
	ATRPercentile         float64   `json:"atr_percentile"`
	ATRExpansionRatio     float64   `json:"atr_expansion_ratio"`
	MarketRegime          string    `json:"market_regime"`
	RegimeMultiplier      float64   `json:"regime_multiplier"`
	StopLossSuggestion    float64   `json:"stop_loss_suggestion"`
	TakeProfitSuggestion  float64   `json:"take_profit_suggestion"`
	SuggestedPositionSize int64     `json:"suggested_position_size"`
	SMA50                 *float64  `json:"sma_50"`
	SMA200                *float64  `json:"sma_200"`
	PriceAbove200SMA      bool      `json:"price_above_200_sma"`
	TrendLabel            string    `json:"trend_label"`
	LatestVolume          int64     `json:"latest_volume"`
	AvgVolume20d          int64     `json:"avg_volume_20d"`
	RelativeVolume        float64   `json:"relative_volume"`
}

// Packet is the complete decision packet: the sole input handed to the
// external decision-maker, rebuilt from scratch every cycle and never
// persisted.
type Packet struct {
	Timestamp   string        `json:"timestamp"`
	Symbol      string        `json:"symbol"`
	Portfolio   PortfolioView `json:"portfolio"`
	MarketData  MarketView    `json:"market_data"`
	Constraints Constraints   `json:"constraints"`
}
