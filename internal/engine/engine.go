package engine

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daily_loop/internal/market"
	"daily_loop/internal/models"
	"daily_loop/internal/notify"
	"daily_loop/internal/recorder"
	"daily_loop/internal/storage"
)

// Engine validates a decision against the risk guardrails and, when it
// passes, executes it against the broker and persists the outcome. All
// money math runs on decimals; share counts are whole.
type Engine struct {
	symbol   string
	broker   market.Broker
	store    *storage.PortfolioStore
	ledger   *storage.TradeLedger
	rec      recorder.Recorder
	notifier *notify.Notifier

	now func() time.Time
}

func New(symbol string, broker market.Broker, store *storage.PortfolioStore, ledger *storage.TradeLedger, rec recorder.Recorder, notifier *notify.Notifier) *Engine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Engine{
		symbol:   symbol,
		broker:   broker,
		store:    store,
		ledger:   ledger,
		rec:      rec,
		notifier: notifier,
		now:      time.Now,
	}
}

// Execute runs the guardrail chain and then the action. The return value
// reports whether the cycle ended cleanly: a HOLD is success, a blocked
// or failed trade is not. In dry-run mode nothing is persisted and no
// order is placed.
func (e *Engine) Execute(action, reason string, pkt *models.Packet, dryRun bool) bool {
	price := decimal.NewFromFloat(pkt.MarketData.Price)
	pf := pkt.Portfolio
	cons := pkt.Constraints

	log.Printf("Executing action: %s | portfolio: $%s cash, %d shares, equity $%s, drawdown %.2f%%",
		action, pf.Cash.StringFixed(2), pf.Shares, pf.TotalEquity.StringFixed(2), pf.CurrentDrawdownPct)

	// ATR bounds gate trade actions only. A HOLD in wild volatility is
	// still a HOLD.
	atr := pkt.MarketData.ATR14
	if (action == models.ActionBuy || action == models.ActionSell) && (atr < cons.MinATR || atr > cons.MaxATR) {
		log.Printf("WARNING: TRADE BLOCKED: ATR (%.2f) outside allowed range [%.2f, %.2f]", atr, cons.MinATR, cons.MaxATR)
		e.record(dryRun, models.TradeRecord{
			Action:          models.ActionBlockedATR,
			Price:           price,
			Reason:          fmt.Sprintf("ATR out of bounds: %.2f", atr),
			PortfolioValue:  pf.TotalEquity,
			ATR14:           &atr,
			MinATR:          &cons.MinATR,
			MaxATR:          &cons.MaxATR,
			RequestedAction: action,
		})
		return false
	}

	// Drawdown protection applies to every action, HOLD included, so a
	// breached account leaves an audit trail each cycle.
	maxDrawdown := cons.MaxDrawdownPct * 100
	if pf.CurrentDrawdownPct > maxDrawdown {
		log.Printf("WARNING: TRADE BLOCKED: drawdown (%.2f%%) exceeds maximum allowed (%.2f%%)", pf.CurrentDrawdownPct, maxDrawdown)
		e.record(dryRun, models.TradeRecord{
			Action:          models.ActionBlockedDrawdown,
			Price:           price,
			Reason:          fmt.Sprintf("Drawdown too high: %.2f%%", pf.CurrentDrawdownPct),
			PortfolioValue:  pf.TotalEquity,
			RequestedAction: action,
		})
		return false
	}

	// One live trade per day. Dry runs neither count nor are counted.
	if (action == models.ActionBuy || action == models.ActionSell) && !dryRun && e.ledger.HasTradedToday(e.now()) {
		log.Println("WARNING: TRADE BLOCKED: a live trade has already been executed today")
		e.record(false, models.TradeRecord{
			Action:          models.ActionBlockedDup,
			Price:           price,
			Reason:          "Duplicate daily trade prevented",
			PortfolioValue:  pf.TotalEquity,
			RequestedAction: action,
		})
		return false
	}

	switch action {
	case models.ActionBuy:
		return e.executeBuy(reason, pkt, price, dryRun)
	case models.ActionSell:
		return e.executeSell(reason, pkt, price, dryRun)
	default:
		log.Printf("Holding position: %s - %s", action, reason)
		e.record(dryRun, models.TradeRecord{
			Action:         models.ActionHold,
			Price:          price,
			Reason:         reason,
			PortfolioValue: pf.TotalEquity,
			RSI14:          &pkt.MarketData.RSI14,
			ATR14:          &pkt.MarketData.ATR14,
			Regime:         pkt.MarketData.MarketRegime,
		})
		return true
	}
}

func (e *Engine) executeBuy(reason string, pkt *models.Packet, price decimal.Decimal, dryRun bool) bool {
	pf := pkt.Portfolio
	suggested := pkt.MarketData.SuggestedPositionSize

	maxAffordable := int64(0)
	if price.IsPositive() {
		maxAffordable = pf.Cash.Div(price).IntPart()
	}

	// Position limit: room left under max_position_size_pct of equity.
	maxPositionValue := pf.TotalEquity.Mul(decimal.NewFromFloat(pkt.Constraints.MaxPositionSizePct))
	currentPositionValue := price.Mul(decimal.NewFromInt(pf.Shares))
	capacity := maxPositionValue.Sub(currentPositionValue)
	maxByLimit := int64(0)
	if capacity.IsPositive() && price.IsPositive() {
		maxByLimit = capacity.Div(price).IntPart()
	}

	qty := int64(0)
	if suggested > 0 {
		qty = min3(suggested, maxAffordable, maxByLimit)
	}
	log.Printf("Position sizing: suggested=%d, affordable=%d, positionLimit=%d, final=%d",
		suggested, maxAffordable, maxByLimit, qty)

	if qty <= 0 {
		log.Println("WARNING: cannot buy, quantity is 0 after applying constraints")
		e.record(dryRun, models.TradeRecord{
			Action:         models.ActionBlockedBuy,
			Price:          price,
			Reason:         "No capacity to buy (constraints)",
			PortfolioValue: pf.TotalEquity,
		})
		return false
	}

	if dryRun {
		newCash := pf.Cash.Sub(price.Mul(decimal.NewFromInt(qty)))
		newShares := pf.Shares + qty
		newBasis := blendedCostBasis(pf.Shares, pf.CostBasis, qty, price)
		newEquity := newCash.Add(price.Mul(decimal.NewFromInt(newShares)))
		log.Printf("DRY-RUN BUY: would buy %d %s at $%s, simulated portfolio cash $%s, shares %d, cost basis $%s, equity $%s",
			qty, e.symbol, price.StringFixed(2), newCash.StringFixed(2), newShares, newBasis.StringFixed(2), newEquity.StringFixed(2))
		return true
	}

	fill, err := e.broker.PlaceMarketOrder(e.symbol, qty, "buy")
	if err != nil {
		log.Printf("ERROR: BUY order failed: %v", err)
		return false
	}
	execPrice := price
	if fill.FilledAvgPrice != nil {
		execPrice = *fill.FilledAvgPrice
	}

	state := e.store.Load()
	newCash := state.Cash.Sub(execPrice.Mul(decimal.NewFromInt(qty)))
	newShares := state.Shares + qty
	state.CostBasis = blendedCostBasis(state.Shares, state.CostBasis, qty, execPrice)
	state.Cash = newCash
	state.Shares = newShares

	newEquity := newCash.Add(execPrice.Mul(decimal.NewFromInt(newShares)))
	if newEquity.GreaterThan(state.PeakValue) {
		state.PeakValue = newEquity
	}

	if err := e.store.Save(&state); err != nil {
		e.reportSaveFailure("BUY", qty, execPrice, err)
		return false
	}

	e.record(false, models.TradeRecord{
		Action:         models.ActionBuy,
		Qty:            qty,
		Price:          execPrice,
		Reason:         reason,
		PortfolioValue: newEquity.Round(2),
		RSI14:          &pkt.MarketData.RSI14,
		ATR14:          &pkt.MarketData.ATR14,
		Regime:         pkt.MarketData.MarketRegime,
	})
	log.Printf("BUY executed: %d shares at $%s, new portfolio: $%s cash, %d shares",
		qty, execPrice.StringFixed(2), newCash.StringFixed(2), newShares)
	return true
}

func (e *Engine) executeSell(reason string, pkt *models.Packet, price decimal.Decimal, dryRun bool) bool {
	pf := pkt.Portfolio

	if pf.Shares <= 0 {
		log.Println("WARNING: no shares to sell")
		e.record(dryRun, models.TradeRecord{
			Action:         models.ActionBlockedSell,
			Price:          price,
			Reason:         "No shares to sell",
			PortfolioValue: pf.TotalEquity,
		})
		return false
	}

	positionValue := price.Mul(decimal.NewFromInt(pf.Shares))
	unrealized := price.Sub(pf.CostBasis).Mul(decimal.NewFromInt(pf.Shares))
	pnlPct := 0.0
	if positionValue.IsPositive() {
		pnlPct = round2(unrealized.Div(positionValue).InexactFloat64() * 100)
	}

	// Tiered exits: keep runners when the gain is real, cut everything
	// when it is not.
	var sellPct float64
	switch {
	case pnlPct < 8.0:
		sellPct = 1.0
	case pnlPct < 15.0:
		sellPct = 0.30
	case pnlPct < 25.0:
		sellPct = 0.40
	default:
		sellPct = 0.60
	}

	if strings.Contains(pkt.MarketData.TrendLabel, "Bearish") {
		sellPct = 1.0
		reason += " (full exit due to Bearish trend)"
	}

	qty := int64(float64(pf.Shares) * sellPct)
	if qty < 1 {
		qty = pf.Shares
	}
	log.Printf("SELL decision: unrealized PnL %.2f%%, trend: %s, selling %.0f%% -> %d shares",
		pnlPct, pkt.MarketData.TrendLabel, sellPct*100, qty)

	action := models.ActionSellFull
	if sellPct < 1.0 {
		action = models.ActionSellPartial
	}

	if dryRun {
		newCash := pf.Cash.Add(price.Mul(decimal.NewFromInt(qty)))
		realized := price.Sub(pf.CostBasis).Mul(decimal.NewFromInt(qty))
		remaining := pf.Shares - qty
		newEquity := newCash.Add(price.Mul(decimal.NewFromInt(remaining)))
		log.Printf("DRY-RUN SELL: would sell %d %s at $%s, simulated portfolio cash $%s, shares %d, realized PnL $%s, equity $%s",
			qty, e.symbol, price.StringFixed(2), newCash.StringFixed(2), remaining, realized.StringFixed(2), newEquity.StringFixed(2))
		return true
	}

	fill, err := e.broker.PlaceMarketOrder(e.symbol, qty, "sell")
	if err != nil {
		log.Printf("ERROR: SELL order failed: %v", err)
		return false
	}
	execPrice := price
	if fill.FilledAvgPrice != nil {
		execPrice = *fill.FilledAvgPrice
	}

	state := e.store.Load()
	realized := execPrice.Sub(state.CostBasis).Mul(decimal.NewFromInt(qty)).Round(2)
	remaining := state.Shares - qty
	if remaining < 0 {
		remaining = 0
	}
	state.Cash = state.Cash.Add(execPrice.Mul(decimal.NewFromInt(qty)))
	state.Shares = remaining
	if remaining == 0 {
		state.CostBasis = decimal.Zero
	}

	newEquity := state.Cash.Add(execPrice.Mul(decimal.NewFromInt(remaining)))
	if newEquity.GreaterThan(state.PeakValue) {
		state.PeakValue = newEquity
	}

	if err := e.store.Save(&state); err != nil {
		e.reportSaveFailure("SELL", qty, execPrice, err)
		return false
	}

	e.record(false, models.TradeRecord{
		Action:          action,
		Qty:             qty,
		Price:           execPrice,
		Reason:          fmt.Sprintf("%s | PnL %.2f%% | Sold %.0f%%", reason, pnlPct, sellPct*100),
		PortfolioValue:  newEquity.Round(2),
		RealizedPnL:     &realized,
		RemainingShares: &remaining,
		RSI14:           &pkt.MarketData.RSI14,
		ATR14:           &pkt.MarketData.ATR14,
		Regime:          pkt.MarketData.MarketRegime,
	})
	log.Printf("SELL executed: %d shares (%.0f%%) at $%s, realized P&L $%s, remaining shares %d",
		qty, sellPct*100, execPrice.StringFixed(2), realized.StringFixed(2), remaining)
	return true
}

// record appends a ledger entry and mirrors it to the recorder. Dry runs
// only log what would have been written.
func (e *Engine) record(dryRun bool, rec models.TradeRecord) {
	if dryRun {
		log.Printf("DRY-RUN: would record %s event", rec.Action)
		return
	}
	rec.Timestamp = e.now().Format(models.TimestampLayout)
	if err := e.ledger.Append(rec); err != nil {
		log.Printf("ERROR: failed to append trade record: %v", err)
	}
	if err := e.rec.RecordTrade(&rec); err != nil {
		log.Printf("WARNING: trade recorder failed: %v", err)
	}
}

// reportSaveFailure handles the worst case: an order filled at the
// broker but the portfolio file could not be written. The position is
// live and the state on disk is wrong, so this needs a human.
func (e *Engine) reportSaveFailure(side string, qty int64, price decimal.Decimal, err error) {
	log.Printf("CRITICAL: trade executed but portfolio save failed: %v", err)
	log.Printf("CRITICAL: manual intervention required: %s %d shares of %s at $%s was executed",
		side, qty, e.symbol, price.StringFixed(2))
	e.notifier.Alert(fmt.Sprintf("CRITICAL: %s %d %s at $%s executed but portfolio state save failed, manual reconciliation required",
		side, qty, e.symbol, price.StringFixed(2)))
}

// blendedCostBasis returns the weighted-average basis after buying qty
// shares at price on top of an existing position.
func blendedCostBasis(oldShares int64, oldBasis decimal.Decimal, qty int64, price decimal.Decimal) decimal.Decimal {
	newShares := oldShares + qty
	if newShares <= 0 {
		return decimal.Zero
	}
	oldCost := oldBasis.Mul(decimal.NewFromInt(oldShares))
	newCost := price.Mul(decimal.NewFromInt(qty))
	return oldCost.Add(newCost).Div(decimal.NewFromInt(newShares)).Round(2)
}

func min3(a, b, c int64) int64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
