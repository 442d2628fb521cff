package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"daily_loop/internal/models"
)

// ErrSaveFailed marks the terminal persistence failure: all retries are
// exhausted and a trade may already be irreversibly executed. Callers must
// treat it as an operator-intervention condition, not a transient error.
var ErrSaveFailed = errors.New("portfolio save failed after all retries")

const saveRetries = 3

// PortfolioStore persists the portfolio snapshot as a human-inspectable
// JSON file. The path is injected so tests (and recovery procedures) can
// point it anywhere.
type PortfolioStore struct {
	Path string

	// now is swapped in tests to pin LastUpdated.
	now func() time.Time
}

func NewPortfolioStore(path string) *PortfolioStore {
	return &PortfolioStore{Path: path, now: time.Now}
}

// Load reads the portfolio from disk. On first use it creates and persists
// the default state. Read or parse failures are logged and degrade to the
// default, so loading never blocks the pipeline.
func (s *PortfolioStore) Load() models.Portfolio {
	def := models.DefaultPortfolio()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("No existing portfolio file found, using default portfolio")
			if saveErr := s.Save(&def); saveErr != nil {
				log.Printf("ERROR: Failed to persist default portfolio: %v", saveErr)
			}
			return def
		}
		log.Printf("ERROR: Reading portfolio state: %v. Using default portfolio.", err)
		return def
	}

	var p models.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("ERROR: Parsing portfolio state: %v. Using default portfolio.", err)
		return def
	}
	log.Printf("Loaded portfolio state: cash=%s shares=%d cost_basis=%s",
		p.Cash.StringFixed(2), p.Shares, p.CostBasis.StringFixed(2))
	return p
}

// Save writes the portfolio atomically: marshal, write to a temp file in the
// same directory, sync, rename. Up to 3 attempts; the final failure returns
// ErrSaveFailed since the caller's trade may already be live.
func (s *PortfolioStore) Save(p *models.Portfolio) error {
	p.LastUpdated = s.now().Format(models.TimestampLayout)

	var lastErr error
	for attempt := 1; attempt <= saveRetries; attempt++ {
		if err := s.writeAtomic(p); err != nil {
			lastErr = err
			log.Printf("ERROR: Saving portfolio state (attempt %d/%d): %v", attempt, saveRetries, err)
			continue
		}
		log.Printf("Saved portfolio state: cash=%s shares=%d cost_basis=%s peak=%s",
			p.Cash.StringFixed(2), p.Shares, p.CostBasis.StringFixed(2), p.PeakValue.StringFixed(2))
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSaveFailed, lastErr)
}

func (s *PortfolioStore) writeAtomic(p *models.Portfolio) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp := s.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	// Sync before rename so a crash cannot leave an empty renamed file.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
