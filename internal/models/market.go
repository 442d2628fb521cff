package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one daily OHLCV candlestick.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Fill is the broker's confirmation of an executed market order.
// FilledAvgPrice may be nil when the broker acknowledged the order but has
// not reported the average fill price yet; callers fall back to the
// decision-time quote in that case.
type Fill struct {
	OrderID        string
	Symbol         string
	Qty            int64
	Side           string
	FilledAvgPrice *decimal.Decimal
}
