package recorder

import "daily_loop/internal/models"

// NoopRecorder discards all events. Used when no SQLite path is configured
// or opening the database fails.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrade(*models.TradeRecord) error { return nil }
func (n *NoopRecorder) Close() error                          { return nil }
