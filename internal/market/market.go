package market

import (
	"time"

	"daily_loop/internal/models"
)

// DataProvider fetches daily OHLCV history for one symbol, most-recent
// last. An empty result is treated as a fetch failure by the caller.
// Implementations: Alpaca market data, Yahoo Finance.
type DataProvider interface {
	GetDailyBars(symbol string, lookbackDays int) ([]models.Bar, error)
	Name() string
}

// Calendar answers whether a trading session exists on a given date.
// Weekends are short-circuited locally by callers; holidays go through
// here.
type Calendar interface {
	HasSessionOn(date time.Time) (bool, error)
}

// Broker places live orders. Any error aborts the trade with no retry;
// re-submitting a possibly-accepted order risks a duplicate fill.
type Broker interface {
	PlaceMarketOrder(symbol string, qty int64, side string) (*models.Fill, error)
}

// WeekdayCalendar approximates the trading calendar with weekdays only.
// Used when no broker credentials are configured (e.g. dry runs against
// the Yahoo data source); holidays are not detected.
type WeekdayCalendar struct{}

func (WeekdayCalendar) HasSessionOn(date time.Time) (bool, error) {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday, nil
}
