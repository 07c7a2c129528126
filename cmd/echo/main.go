package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/api"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/config"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/echo"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/factory"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

func main() {
	ctx := context.Background()

	// Writes to a peer that closed its read side must fail, not kill us
	core.IgnoreBrokenPipe()

	// Load configuration from defaults, file, environment and arguments
	cfg, err := config.LoadFromEnv()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(logger.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
	logger.Info("Starting xecho...",
		"bind_address", cfg.BindAddress,
		"bind_port", cfg.BindPort,
		"max_len", echo.MaxLen,
		"backlog", core.Backlog)

	if err := run(ctx, cfg, nil); err != nil {
		logger.Fatal("Server error", "error", err)
	}
}

// run wires the service and serves until the listener closes. onListen, if
// set, is called with the bound listener before serving starts.
func run(ctx context.Context, cfg *config.Config, onListen func(net.Listener)) error {
	stats := &core.Stats{}

	// Open the session journal (optional)
	j, err := factory.NewJournalFactory(cfg).Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	// Start health server
	var healthServer *api.HealthServer
	if addr := cfg.HealthAddr(); addr != "" {
		var sessions api.SessionLister
		if j != nil {
			sessions = j
		}
		healthServer = api.NewHealthServer(addr, stats, sessions)
		healthServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Stop(shutdownCtx); err != nil {
				logger.Warn("Health server shutdown failed", "error", err)
			}
		}()
	}

	handler := factory.NewHandlerFactory(cfg).Create(j, stats)

	// Start TCP listener
	listener, err := core.Listen(cfg.BindAddress, cfg.BindPort)
	if err != nil {
		return fmt.Errorf("failed to start listener on %s: %w", cfg.Addr(), err)
	}
	logger.Info("Echo server listening", "addr", listener.Addr().String(), "max_len", echo.MaxLen)

	server := &core.Server{
		Listener:           listener,
		ConnectionHandler:  handler,
		Stats:              stats,
		AcceptErrorLogRate: cfg.AcceptErrorLogRate,
	}

	// Mark as ready
	if healthServer != nil {
		healthServer.SetReady(true)
	}
	if onListen != nil {
		onListen(listener)
	}

	// Start serving (blocking)
	return server.Serve()
}
