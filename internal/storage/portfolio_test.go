package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"daily_loop/internal/models"
)

func TestLoad_CreatesDefaultOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio_state.json")
	store := NewPortfolioStore(path)

	p := store.Load()

	if !p.Cash.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected default cash 100000, got %s", p.Cash)
	}
	if p.Shares != 0 {
		t.Errorf("expected 0 shares, got %d", p.Shares)
	}
	if !p.PeakValue.Equal(p.InitialCapital) {
		t.Errorf("expected peak == initial capital, got %s vs %s", p.PeakValue, p.InitialCapital)
	}

	// The default must have been persisted so the next run finds it.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected state file to exist after first load: %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio_state.json")
	store := NewPortfolioStore(path)

	p := models.Portfolio{
		Cash:           decimal.NewFromFloat(80123.45),
		Shares:         50,
		CostBasis:      decimal.NewFromFloat(397.53),
		InitialCapital: decimal.NewFromInt(100000),
		PeakValue:      decimal.NewFromFloat(101500.00),
	}
	if err := store.Save(&p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := store.Load()
	if !got.Cash.Equal(p.Cash) {
		t.Errorf("cash mismatch: %s vs %s", got.Cash, p.Cash)
	}
	if got.Shares != p.Shares {
		t.Errorf("shares mismatch: %d vs %d", got.Shares, p.Shares)
	}
	if !got.CostBasis.Equal(p.CostBasis) {
		t.Errorf("cost basis mismatch: %s vs %s", got.CostBasis, p.CostBasis)
	}
	if !got.InitialCapital.Equal(p.InitialCapital) {
		t.Errorf("initial capital mismatch: %s vs %s", got.InitialCapital, p.InitialCapital)
	}
	if !got.PeakValue.Equal(p.PeakValue) {
		t.Errorf("peak mismatch: %s vs %s", got.PeakValue, p.PeakValue)
	}
	if got.LastUpdated == "" {
		t.Error("expected LastUpdated to be set on save")
	}
}

func TestLoad_CorruptFileDegradesToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store := NewPortfolioStore(path)
	p := store.Load()
	if !p.Cash.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected default on corrupt file, got cash %s", p.Cash)
	}
}

func TestSave_TerminalErrorAfterRetries(t *testing.T) {
	// Point the store at a path whose parent directory does not exist so
	// every attempt fails.
	store := NewPortfolioStore(filepath.Join(t.TempDir(), "missing", "portfolio.json"))
	p := models.DefaultPortfolio()

	err := store.Save(&p)
	if err == nil {
		t.Fatal("expected terminal save error")
	}
	if !errors.Is(err, ErrSaveFailed) {
		t.Errorf("expected ErrSaveFailed, got %v", err)
	}
}

func TestSave_NoPartialFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio_state.json")
	store := NewPortfolioStore(path)
	store.now = func() time.Time { return time.Date(2026, 8, 31, 17, 0, 0, 0, time.UTC) }

	p := models.DefaultPortfolio()
	if err := store.Save(&p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if p.LastUpdated != "2026-08-31 17:00:00" {
		t.Errorf("unexpected LastUpdated %q", p.LastUpdated)
	}

	// The temp file must not linger after a successful rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
