package recorder

import "daily_loop/internal/models"

// Recorder mirrors ledger events into a queryable store for offline
// analysis. The JSON trade history remains the source of truth; recording
// failures are logged by callers and never block a cycle.
type Recorder interface {
	RecordTrade(rec *models.TradeRecord) error
	Close() error
}
