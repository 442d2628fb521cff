package recorder

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"daily_loop/internal/models"
)

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	rec, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	defer rec.Close()

	realized := decimal.NewFromFloat(1260.00)
	remaining := int64(70)
	rsi := 61.2
	atr := 4.3
	err = rec.RecordTrade(&models.TradeRecord{
		Timestamp:       "2026-08-31 16:00:00",
		Action:          models.ActionSellPartial,
		Qty:             30,
		Price:           decimal.NewFromFloat(392.00),
		Reason:          "taking profit",
		PortfolioValue:  decimal.NewFromFloat(103000.00),
		RealizedPnL:     &realized,
		RemainingShares: &remaining,
		RSI14:           &rsi,
		ATR14:           &atr,
		Regime:          "Normal",
	})
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	// A HOLD with no optional fields inserts NULLs, not zeroes.
	err = rec.RecordTrade(&models.TradeRecord{
		Timestamp:      "2026-08-31 16:00:01",
		Action:         models.ActionHold,
		Price:          decimal.NewFromFloat(392.00),
		Reason:         "no edge",
		PortfolioValue: decimal.NewFromFloat(103000.00),
	})
	if err != nil {
		t.Fatalf("RecordTrade hold: %v", err)
	}

	var count int
	if err := rec.db.QueryRow("SELECT COUNT(*) FROM trade_events").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	var action string
	var realizedOut *float64
	row := rec.db.QueryRow("SELECT action, realized_pnl FROM trade_events WHERE action = ?", models.ActionHold)
	if err := row.Scan(&action, &realizedOut); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if realizedOut != nil {
		t.Errorf("realized_pnl = %v, want NULL for HOLD", *realizedOut)
	}
}

func TestSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	rec, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	rec.Close()

	// Migrations are idempotent on an existing database.
	rec2, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec2.Close()
}
