package market

import (
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"daily_loop/internal/models"
)

// YahooProvider fetches daily bars from Yahoo Finance. It carries no
// credentials and no broker side, which suits dry runs and the ATR report.
type YahooProvider struct{}

func NewYahooProvider() *YahooProvider { return &YahooProvider{} }

func (y *YahooProvider) Name() string { return "yahoo" }

func (y *YahooProvider) GetDailyBars(symbol string, lookbackDays int) ([]models.Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []models.Bar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, models.Bar{
			Date:   time.Unix(int64(b.Timestamp), 0),
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart for %s: %w", symbol, err)
	}
	return bars, nil
}
