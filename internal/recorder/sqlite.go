package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"daily_loop/internal/models"
)

// SQLiteRecorder persists trade events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_events (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        TEXT NOT NULL,
			action           TEXT NOT NULL,
			qty              INTEGER,
			price            REAL,
			reason           TEXT,
			portfolio_value  REAL,
			realized_pnl     REAL,
			remaining_shares INTEGER,
			rsi_14           REAL,
			atr_14           REAL,
			regime           TEXT,
			requested_action TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_ts ON trade_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_action ON trade_events(action)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTrade(rec *models.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var realized, rsi, atr any
	var remaining any
	if rec.RealizedPnL != nil {
		realized = rec.RealizedPnL.InexactFloat64()
	}
	if rec.RemainingShares != nil {
		remaining = *rec.RemainingShares
	}
	if rec.RSI14 != nil {
		rsi = *rec.RSI14
	}
	if rec.ATR14 != nil {
		atr = *rec.ATR14
	}

	_, err := r.db.Exec(`INSERT INTO trade_events
		(timestamp, action, qty, price, reason, portfolio_value,
		 realized_pnl, remaining_shares, rsi_14, atr_14, regime, requested_action)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Timestamp, rec.Action, rec.Qty, rec.Price.InexactFloat64(),
		rec.Reason, rec.PortfolioValue.InexactFloat64(),
		realized, remaining, rsi, atr, rec.Regime, rec.RequestedAction,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
