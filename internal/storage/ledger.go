package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"daily_loop/internal/models"
)

// TradeLedger is the append-only trade history: a JSON array rewritten as a
// whole on every append. Insertion order is significant: the file is both
// the audit trail and the source of truth for the one-trade-per-day gate.
type TradeLedger struct {
	Path string
}

func NewTradeLedger(path string) *TradeLedger {
	return &TradeLedger{Path: path}
}

// All returns the full history, oldest first. A missing or corrupt file
// degrades to an empty history with a logged warning; the ledger never
// blocks the pipeline on read.
func (l *TradeLedger) All() []models.TradeRecord {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARNING: Reading trade history: %v. Treating as empty.", err)
		}
		return nil
	}
	var records []models.TradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("WARNING: Parsing trade history: %v. Treating as empty.", err)
		return nil
	}
	return records
}

// Append loads the existing history, appends the record, and rewrites the
// file atomically.
func (l *TradeLedger) Append(rec models.TradeRecord) error {
	records := append(l.All(), rec)

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trade history: %w", err)
	}

	tmp := l.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("write trade history: %w", err)
	}
	if err := os.Rename(tmp, l.Path); err != nil {
		return fmt.Errorf("replace trade history: %w", err)
	}

	log.Printf("Logged trade: %s %d shares at $%s", rec.Action, rec.Qty, rec.Price.StringFixed(2))
	return nil
}

// HasTradedToday reports whether a live BUY/SELL fill was already recorded
// on the given day. It scans newest-first; this is a logical guard, not a
// cross-process lock.
func (l *TradeLedger) HasTradedToday(now time.Time) bool {
	today := now.Format(models.DateLayout)
	records := l.All()
	for i := len(records) - 1; i >= 0; i-- {
		if strings.HasPrefix(records[i].Timestamp, today) && records[i].IsLiveTrade() {
			return true
		}
	}
	return false
}
