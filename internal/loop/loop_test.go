package loop

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daily_loop/internal/config"
	"daily_loop/internal/engine"
	"daily_loop/internal/models"
	"daily_loop/internal/storage"
)

type fakeProvider struct {
	bars []models.Bar
	err  error
}

func (p *fakeProvider) GetDailyBars(symbol string, lookbackDays int) ([]models.Bar, error) {
	return p.bars, p.err
}

func (p *fakeProvider) Name() string { return "fake" }

type fakeCalendar struct {
	open bool
	err  error
}

func (c *fakeCalendar) HasSessionOn(date time.Time) (bool, error) { return c.open, c.err }

type fakeDecider struct {
	action string
	reason string
	err    error
	panics bool
	called bool
}

func (d *fakeDecider) Decide(pkt *models.Packet) (string, string, error) {
	d.called = true
	if d.panics {
		panic("decider exploded")
	}
	return d.action, d.reason, d.err
}

type fakeAlerter struct {
	messages []string
}

func (a *fakeAlerter) Alert(text string) { a.messages = append(a.messages, text) }

type noopBroker struct{}

func (noopBroker) PlaceMarketOrder(symbol string, qty int64, side string) (*models.Fill, error) {
	return &models.Fill{OrderID: "noop", Symbol: symbol, Qty: qty, Side: side}, nil
}

// monday is a known weekday used to pin l.now in tests.
var monday = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

func flatBars(n int, end time.Time) []models.Bar {
	bars := make([]models.Bar, n)
	day := end
	for i := n - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		bars[i] = models.Bar{Date: day, Open: 399, High: 402, Low: 398, Close: 400, Volume: 1000}
		day = day.AddDate(0, 0, -1)
	}
	return bars
}

func newTestLoop(t *testing.T, provider *fakeProvider, cal *fakeCalendar, dec *fakeDecider) *Loop {
	return newTestLoopWithAlerter(t, provider, cal, dec, nil)
}

func newTestLoopWithAlerter(t *testing.T, provider *fakeProvider, cal *fakeCalendar, dec *fakeDecider, alerter Alerter) *Loop {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Symbol:       "MSFT",
		LookbackDays: 365,
		Risk: models.Constraints{
			MaxPositionSizePct: 0.20,
			MaxDrawdownPct:     0.10,
			RiskPerTradePct:    0.02,
			MinATR:             3.5,
			MaxATR:             18.0,
		},
	}
	store := storage.NewPortfolioStore(filepath.Join(dir, "portfolio_state.json"))
	ledger := storage.NewTradeLedger(filepath.Join(dir, "trade_history.json"))
	eng := engine.New(cfg.Symbol, noopBroker{}, store, ledger, nil, nil)

	l := New(cfg, provider, cal, dec, eng, store, alerter)
	l.now = func() time.Time { return monday }
	return l
}

func TestRun_WeekendIsCleanNoop(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold}
	l := newTestLoop(t, &fakeProvider{}, &fakeCalendar{open: true}, dec)
	l.now = func() time.Time { return time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC) } // Sunday

	if err := l.Run(false, false); err != nil {
		t.Fatalf("weekend run should be a clean no-op, got %v", err)
	}
	if dec.called {
		t.Error("decider must not be consulted on a weekend")
	}
}

func TestRun_HolidayClosedViaCalendar(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold}
	l := newTestLoop(t, &fakeProvider{}, &fakeCalendar{open: false}, dec)

	if err := l.Run(false, false); err != nil {
		t.Fatalf("holiday run should be a clean no-op, got %v", err)
	}
	if dec.called {
		t.Error("decider must not be consulted on a holiday")
	}
}

func TestRun_IgnoreMarketCheckBypassesCalendar(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold, reason: "weekend dry-run"}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoop(t, provider, &fakeCalendar{open: false}, dec)

	if err := l.Run(true, true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !dec.called {
		t.Error("decider should run when the market check is bypassed")
	}
}

func TestRun_ProviderErrorAborts(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold}
	l := newTestLoop(t, &fakeProvider{err: errors.New("feed down")}, &fakeCalendar{open: true}, dec)

	err := l.Run(false, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "fetch market data") {
		t.Errorf("err = %v", err)
	}
	if dec.called {
		t.Error("decider must not run without market data")
	}
}

func TestRun_StaleDataAborts(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold}
	provider := &fakeProvider{bars: flatBars(30, monday.AddDate(0, 0, -7))}
	l := newTestLoop(t, provider, &fakeCalendar{open: true}, dec)

	err := l.Run(false, false)
	if err == nil || !strings.Contains(err.Error(), "build decision packet") {
		t.Fatalf("err = %v, want packet build failure", err)
	}
	if dec.called {
		t.Error("decider must not run on stale data")
	}
}

func TestRun_DeciderErrorAborts(t *testing.T) {
	dec := &fakeDecider{err: errors.New("api timeout")}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoop(t, provider, &fakeCalendar{open: true}, dec)

	err := l.Run(false, false)
	if err == nil || !strings.Contains(err.Error(), "decision request") {
		t.Fatalf("err = %v, want decision failure", err)
	}
}

func TestRun_HoldCycleSucceeds(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold, reason: "no setup"}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoop(t, provider, &fakeCalendar{open: true}, dec)

	if err := l.Run(false, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_ContainsPanics(t *testing.T) {
	dec := &fakeDecider{panics: true}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoop(t, provider, &fakeCalendar{open: true}, dec)

	err := l.Run(false, false)
	if err == nil || !strings.Contains(err.Error(), "panic in trading loop") {
		t.Fatalf("err = %v, want contained panic", err)
	}
}

func TestRun_CalendarErrorAbortsCycle(t *testing.T) {
	// An unverified session must never trade: a weekday can still be a
	// holiday, and the previous weekday's bar passes the freshness check.
	dec := &fakeDecider{action: models.ActionBuy}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoop(t, provider, &fakeCalendar{open: false, err: errors.New("calendar api down")}, dec)

	err := l.Run(false, false)
	if err == nil || !strings.Contains(err.Error(), "market calendar check") {
		t.Fatalf("err = %v, want calendar failure to abort the cycle", err)
	}
	if dec.called {
		t.Error("decider must not run on an unconfirmed session")
	}
}

func TestRun_CycleErrorAlertsOperator(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold}
	alerter := &fakeAlerter{}
	l := newTestLoopWithAlerter(t, &fakeProvider{err: errors.New("feed down")}, &fakeCalendar{open: true}, dec, alerter)

	if err := l.Run(false, false); err == nil {
		t.Fatal("expected error")
	}
	if len(alerter.messages) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerter.messages))
	}
	if !strings.Contains(alerter.messages[0], "Trading cycle failed") {
		t.Errorf("alert = %q", alerter.messages[0])
	}
}

func TestRun_CleanCycleSendsNoAlert(t *testing.T) {
	dec := &fakeDecider{action: models.ActionHold, reason: "no setup"}
	alerter := &fakeAlerter{}
	provider := &fakeProvider{bars: flatBars(30, monday)}
	l := newTestLoopWithAlerter(t, provider, &fakeCalendar{open: true}, dec, alerter)

	if err := l.Run(false, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(alerter.messages) != 0 {
		t.Errorf("alerts = %v, want none on a clean cycle", alerter.messages)
	}
}
