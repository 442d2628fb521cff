package loop

import (
	"fmt"
	"log"
	"time"

	"daily_loop/internal/config"
	"daily_loop/internal/engine"
	"daily_loop/internal/market"
	"daily_loop/internal/models"
	"daily_loop/internal/packet"
	"daily_loop/internal/storage"
)

// Decider produces a trading decision from a packet. The production
// implementation is the Grok client.
type Decider interface {
	Decide(pkt *models.Packet) (action, reason string, err error)
}

// Alerter pushes operator alerts. Satisfied by *notify.Notifier.
type Alerter interface {
	Alert(text string)
}

// Loop wires one full daily cycle: market gate, data fetch, packet
// build, decision, execution.
type Loop struct {
	cfg      *config.Config
	provider market.DataProvider
	calendar market.Calendar
	decider  Decider
	engine   *engine.Engine
	store    *storage.PortfolioStore
	alerter  Alerter

	now func() time.Time
}

func New(cfg *config.Config, provider market.DataProvider, calendar market.Calendar, decider Decider, eng *engine.Engine, store *storage.PortfolioStore, alerter Alerter) *Loop {
	return &Loop{
		cfg:      cfg,
		provider: provider,
		calendar: calendar,
		decider:  decider,
		engine:   eng,
		store:    store,
		alerter:  alerter,
		now:      time.Now,
	}
}

// Run executes one trading cycle. A closed market is a clean no-op; any
// other early exit is an error. Panics from downstream code are
// contained so a scheduler keeps running.
func (l *Loop) Run(dryRun, ignoreMarketCheck bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in trading loop: %v", r)
		}
		// A failed cycle under unattended operation must reach an
		// operator, not just the log file.
		if err != nil && l.alerter != nil {
			l.alerter.Alert(fmt.Sprintf("Trading cycle failed: %v", err))
		}
	}()

	log.Println("=== Starting Daily Trading Loop ===")
	if dryRun {
		log.Println("DRY-RUN MODE ENABLED: no orders will be placed and no state files will be modified")
	}

	now := l.now()
	if ignoreMarketCheck {
		log.Println("WARNING: market check ignored via flag, continuing execution")
	} else {
		open, checkErr := l.marketOpen(now)
		if checkErr != nil {
			// An unverified session is treated as closed: never trade on
			// a day the calendar could not confirm.
			return fmt.Errorf("market calendar check: %w", checkErr)
		}
		if !open {
			log.Println("Market is closed (weekend/holiday), exiting")
			return nil
		}
	}

	bars, err := l.provider.GetDailyBars(l.cfg.Symbol, l.cfg.LookbackDays)
	if err != nil {
		return fmt.Errorf("fetch market data from %s: %w", l.provider.Name(), err)
	}
	log.Printf("Fetched %d daily bars for %s from %s", len(bars), l.cfg.Symbol, l.provider.Name())

	pf := l.store.Load()
	pkt, err := packet.Build(bars, &pf, l.cfg.Risk, l.cfg.Symbol, now)
	if err != nil {
		return fmt.Errorf("build decision packet: %w", err)
	}

	action, reason, err := l.decider.Decide(pkt)
	if err != nil {
		return fmt.Errorf("decision request: %w", err)
	}
	log.Printf("Decision: %s - %s", action, reason)

	if ok := l.engine.Execute(action, reason, pkt, dryRun); !ok {
		log.Println("=== Trading loop completed with errors ===")
		return fmt.Errorf("cycle ended without a clean execution")
	}
	log.Println("=== Trading loop completed successfully ===")
	return nil
}

// marketOpen answers whether today is a trading session. Weekends are
// rejected without a calendar lookup; the calendar then covers holidays.
func (l *Loop) marketOpen(now time.Time) (bool, error) {
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}
	if l.calendar == nil {
		return true, nil
	}
	return l.calendar.HasSessionOn(now)
}
