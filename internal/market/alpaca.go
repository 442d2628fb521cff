package market

import (
	"fmt"
	"log"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"daily_loop/internal/config"
	"daily_loop/internal/models"
)

// AlpacaProvider serves daily bars, the trading calendar, and live order
// placement through the Alpaca API. One struct implements DataProvider,
// Calendar, and Broker since they share the same pair of clients.
type AlpacaProvider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
}

func NewAlpacaProvider(cfg *config.Config) *AlpacaProvider {
	return &AlpacaProvider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.SecretKey,
		}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.SecretKey,
			BaseURL:   cfg.Alpaca.BaseURL,
		}),
	}
}

func (a *AlpacaProvider) Name() string { return "alpaca" }

// GetDailyBars fetches daily candles for the lookback window, oldest first.
func (a *AlpacaProvider) GetDailyBars(symbol string, lookbackDays int) ([]models.Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	raw, err := a.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars for %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, models.Bar{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return bars, nil
}

// HasSessionOn asks the broker calendar whether the date has a trading
// session.
func (a *AlpacaProvider) HasSessionOn(date time.Time) (bool, error) {
	day := date.Format("2006-01-02")
	days, err := a.tradeClient.GetCalendar(alpaca.GetCalendarRequest{
		Start: date,
		End:   date,
	})
	if err != nil {
		return false, fmt.Errorf("alpaca calendar: %w", err)
	}
	for _, d := range days {
		if d.Date == day {
			return true, nil
		}
	}
	return false, nil
}

// PlaceMarketOrder submits a day market order and returns the fill
// confirmation. The fill price may still be unset right after acceptance;
// callers fall back to the decision-time quote.
func (a *AlpacaProvider) PlaceMarketOrder(symbol string, qty int64, side string) (*models.Fill, error) {
	dq := decimal.NewFromInt(qty)
	log.Printf("Placing %s order for %d shares of %s", side, qty, symbol)

	order, err := a.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &dq,
		Side:        alpaca.Side(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca order %s %d %s: %w", side, qty, symbol, err)
	}

	log.Printf("Order placed successfully. Order ID: %s", order.ID)
	return &models.Fill{
		OrderID:        order.ID,
		Symbol:         symbol,
		Qty:            qty,
		Side:           side,
		FilledAvgPrice: order.FilledAvgPrice,
	}, nil
}
