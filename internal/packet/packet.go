package packet

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"daily_loop/internal/indicators"
	"daily_loop/internal/models"
)

const (
	indicatorPeriod = 14
	historyDays     = 60
)

// PreviousTradingDay walks backwards from the day before reference until
// it lands on a weekday. Holidays are not considered here; the market
// calendar gate upstream handles those.
func PreviousTradingDay(reference time.Time) time.Time {
	d := reference.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Metrics holds portfolio figures derived from the live price. PeakValue
// is the running peak including the current equity; the engine persists
// it after a cycle completes.
type Metrics struct {
	TotalEquity        decimal.Decimal
	PositionValue      decimal.Decimal
	UnrealizedPnL      decimal.Decimal
	TotalReturnPct     float64
	PeakValue          decimal.Decimal
	CurrentDrawdownPct float64
	UnrealizedPnLPct   float64
}

// ComputeMetrics derives equity, P&L, and drawdown from the persisted
// portfolio and the current price. With zero shares the unrealized P&L
// figures are zero, not NaN.
func ComputeMetrics(pf *models.Portfolio, price decimal.Decimal) Metrics {
	positionValue := price.Mul(decimal.NewFromInt(pf.Shares))
	totalEquity := pf.Cash.Add(positionValue)

	unrealized := decimal.Zero
	unrealizedPct := 0.0
	if pf.Shares > 0 {
		unrealized = price.Sub(pf.CostBasis).Mul(decimal.NewFromInt(pf.Shares))
		if positionValue.IsPositive() {
			unrealizedPct = round2(unrealized.Div(positionValue).InexactFloat64() * 100)
		}
	}

	returnPct := 0.0
	if pf.InitialCapital.IsPositive() {
		returnPct = round2(totalEquity.Sub(pf.InitialCapital).Div(pf.InitialCapital).InexactFloat64() * 100)
	}

	peak := pf.PeakValue
	if totalEquity.GreaterThan(peak) {
		peak = totalEquity
	}
	drawdown := 0.0
	if peak.IsPositive() {
		drawdown = round2(peak.Sub(totalEquity).Div(peak).InexactFloat64() * 100)
	}

	return Metrics{
		TotalEquity:        totalEquity.Round(2),
		PositionValue:      positionValue.Round(2),
		UnrealizedPnL:      unrealized.Round(2),
		TotalReturnPct:     returnPct,
		PeakValue:          peak.Round(2),
		CurrentDrawdownPct: drawdown,
		UnrealizedPnLPct:   unrealizedPct,
	}
}

// Build assembles the complete decision packet from daily bars and the
// persisted portfolio. It fails when the history is empty or the latest
// bar is older than the previous trading day, so a closed market or a
// data outage aborts the cycle before any decision is requested.
func Build(bars []models.Bar, pf *models.Portfolio, cons models.Constraints, symbol string, now time.Time) (*models.Packet, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no historical data for %s", symbol)
	}

	latest := bars[len(bars)-1]
	lastBarDate := latest.Date.Format(models.DateLayout)
	today := now.Format(models.DateLayout)
	prevDay := PreviousTradingDay(now).Format(models.DateLayout)
	if lastBarDate != today && lastBarDate != prevDay {
		return nil, fmt.Errorf("stale data: last bar is %s, expected %s or %s", lastBarDate, prevDay, today)
	}
	log.Printf("Data fresh: last bar %s", lastBarDate)

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	price := round2(latest.Close)
	priceDec := decimal.NewFromFloat(price)

	rsi := indicators.RSI(closes, indicatorPeriod)
	atr := indicators.ATR(bars, indicatorPeriod)
	switch {
	case atr == 0.0:
		log.Println("WARNING: ATR is 0.0, position sizing will be 0, check data quality")
	case atr < 1.0:
		log.Printf("WARNING: ATR is very low (%.2f), position sizing may be affected", atr)
	}

	atrSeries := indicators.ATRSeries(bars, indicatorPeriod)
	atrPercentile := indicators.PercentileRank(atrSeries, atr)
	expansion := indicators.ExpansionRatio(atrSeries, indicatorPeriod)
	regime, multiplier := indicators.Regime(expansion)

	var sma50, sma200 *float64
	if v, ok := indicators.SMA(closes, 50); ok {
		v = round2(v)
		sma50 = &v
	}
	if v, ok := indicators.SMA(closes, 200); ok {
		v = round2(v)
		sma200 = &v
	}
	trend := indicators.TrendLabel(price, sma50, sma200)
	above200 := sma200 != nil && price > *sma200

	stopLoss := round2(price - atr*2)
	takeProfit := round2(price + atr*3)

	// Size off a 2x ATR stop against the configured per-trade risk,
	// scaled down by the volatility regime.
	suggested := int64(0)
	if atr > 0 {
		riskAmount := pf.Cash.InexactFloat64() * cons.RiskPerTradePct
		suggested = int64(math.Floor(riskAmount/(atr*2)) * multiplier)
	}

	n := historyDays
	if len(closes) < n {
		n = len(closes)
	}
	history := make([]float64, n)
	for i, c := range closes[len(closes)-n:] {
		history[i] = round2(c)
	}

	avgVol, relVol := indicators.RelativeVolume(bars)
	metrics := ComputeMetrics(pf, priceDec)

	pkt := &models.Packet{
		Timestamp: today,
		Symbol:    symbol,
		Portfolio: models.PortfolioView{
			Cash:               pf.Cash.Round(2),
			Shares:             pf.Shares,
			CostBasis:          pf.CostBasis.Round(2),
			TotalEquity:        metrics.TotalEquity,
			UnrealizedPnL:      metrics.UnrealizedPnL,
			TotalReturnPct:     metrics.TotalReturnPct,
			CurrentDrawdownPct: metrics.CurrentDrawdownPct,
			UnrealizedPnLPct:   metrics.UnrealizedPnLPct,
		},
		MarketData: models.MarketView{
			Price:                 price,
			History:               history,
			Volume:                latest.Volume,
			Volatility:            indicators.Volatility(closes),
			RSI14:                 rsi,
			ATR14:                 atr,
			ATRPercentile:         atrPercentile,
			ATRExpansionRatio:     expansion,
			MarketRegime:          regime,
			RegimeMultiplier:      multiplier,
			StopLossSuggestion:    stopLoss,
			TakeProfitSuggestion:  takeProfit,
			SuggestedPositionSize: suggested,
			SMA50:                 sma50,
			SMA200:                sma200,
			PriceAbove200SMA:      above200,
			TrendLabel:            trend,
			LatestVolume:          latest.Volume,
			AvgVolume20d:          avgVol,
			RelativeVolume:        relVol,
		},
		Constraints: cons,
	}

	log.Printf("Packet built for %s: price $%.2f, RSI %.2f, ATR %.2f, regime %s, suggested shares %d, rel vol %.2f",
		symbol, price, rsi, atr, regime, suggested, relVol)

	return pkt, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
