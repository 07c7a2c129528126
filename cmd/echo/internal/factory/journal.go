package factory

import (
	"context"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/config"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/journal"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

// JournalFactory creates the session journal based on configuration
type JournalFactory struct {
	cfg *config.Config
}

// NewJournalFactory creates a new journal factory
func NewJournalFactory(cfg *config.Config) *JournalFactory {
	return &JournalFactory{cfg: cfg}
}

// Create opens the configured journal. It returns nil, nil when no journal
// driver is configured.
func (f *JournalFactory) Create(ctx context.Context) (*journal.Journal, error) {
	if f.cfg.JournalDriver == config.JournalNone {
		logger.Info("Session journal disabled")
		return nil, nil
	}

	logger.Info("Opening session journal", "driver", f.cfg.JournalDriver)
	return journal.Open(ctx, string(f.cfg.JournalDriver), f.cfg.JournalDSN)
}
