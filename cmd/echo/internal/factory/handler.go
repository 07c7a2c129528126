package factory

import (
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/config"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/echo"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/journal"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

// HandlerFactory creates the connection handler
type HandlerFactory struct {
	cfg *config.Config
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(cfg *config.Config) *HandlerFactory {
	return &HandlerFactory{cfg: cfg}
}

// Create builds the echo handler. j may be nil.
func (f *HandlerFactory) Create(j *journal.Journal, stats *core.Stats) core.ConnectionHandler {
	logger.Info("Creating echo handler", "max_len", echo.MaxLen, "journal", j != nil)

	h := &echo.Handler{Stats: stats}
	// Keep Recorder a true nil interface when there is no journal.
	if j != nil {
		h.Recorder = j
	}
	return h
}
